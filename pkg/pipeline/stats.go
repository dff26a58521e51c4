// Copyright 2025 SP Consortium
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds the coordinator's observability surface, exported as
// Prometheus gauges/counters per SPEC_FULL.md's domain-stack wiring for
// github.com/prometheus/client_golang.
type Stats struct {
	SettlementsFinalized   prometheus.Counter
	TotalAmountSettled     prometheus.Counter
	PendingBatches         prometheus.Gauge
	ConsensusRound         prometheus.Gauge
	BatchesRejectedInvalid prometheus.Counter
}

// NewStats constructs and registers the coordinator's metrics against reg.
// Pass prometheus.NewRegistry() in tests to avoid polluting the default
// global registry.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		SettlementsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrnode",
			Subsystem: "pipeline",
			Name:      "settlements_finalized_total",
			Help:      "Number of bilateral or triangular settlements finalized.",
		}),
		TotalAmountSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrnode",
			Subsystem: "pipeline",
			Name:      "total_amount_settled_cents_total",
			Help:      "Cumulative settled amount, in cents.",
		}),
		PendingBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cdrnode",
			Subsystem: "pipeline",
			Name:      "pending_batches",
			Help:      "Number of CDR batches awaiting settlement threshold.",
		}),
		ConsensusRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cdrnode",
			Subsystem: "pipeline",
			Name:      "consensus_round",
			Help:      "Current consensus round number at the coordinator's local height.",
		}),
		BatchesRejectedInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrnode",
			Subsystem: "pipeline",
			Name:      "batches_rejected_invalid_proof_total",
			Help:      "CDR batch announcements rejected for failing circuit-P verification.",
		}),
	}
	reg.MustRegister(
		s.SettlementsFinalized,
		s.TotalAmountSettled,
		s.PendingBatches,
		s.ConsensusRound,
		s.BatchesRejectedInvalid,
	)
	return s
}
