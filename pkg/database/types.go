// Copyright 2025 SP Consortium
//
// Database types map the read-side reporting tables this package owns.
// The chain store (pkg/chainstore) remains the source of truth for
// consensus-committed state; these tables exist so operator-facing
// tooling (billing reconciliation dashboards, CLI reporting) can query
// batch/settlement history without replaying the chain.
package database

import (
	"database/sql"
	"time"
)

// BatchRecord mirrors a primitives.BCEBatch as persisted for reporting.
// Maps to: cdr_batches table.
type BatchRecord struct {
	BatchID           []byte    `db:"batch_id"`
	Home              string    `db:"home_operator"`
	Visited           string    `db:"visited_operator"`
	RecordCount       int       `db:"record_count"`
	TotalChargesCents uint64    `db:"total_charges_cents"`
	PeriodStart       time.Time `db:"period_start"`
	PeriodEnd         time.Time `db:"period_end"`
	Settled           bool      `db:"settled"`
	SettlementID      sql.NullString `db:"settlement_id"`
	CreatedAt         time.Time `db:"created_at"`
}

// SettlementRecord mirrors a settlement.Proposal as persisted for reporting.
// Maps to: settlement_proposals table.
type SettlementRecord struct {
	ProposalID         string         `db:"proposal_id"` // hex-encoded primitives.Hash
	Creditor           string         `db:"creditor_operator"`
	Debtor             string         `db:"debtor_operator"`
	AmountCents        uint64         `db:"amount_cents"`
	Currency           string         `db:"currency"`
	Status             string         `db:"status"`
	CounterAmountCents sql.NullInt64  `db:"counter_amount_cents"`
	RejectReason       sql.NullString `db:"reject_reason"`
	ProposedAt         time.Time      `db:"proposed_at"`
	ExpiresAt          time.Time      `db:"expires_at"`
	FinalizedAt        sql.NullTime   `db:"finalized_at"`
}

// NettingRecord mirrors a settlement.NettingProposal as persisted for
// reporting. Maps to: netting_proposals table.
type NettingRecord struct {
	ProposalID     string    `db:"proposal_id"`
	ParticipantA   string    `db:"participant_a"`
	ParticipantB   string    `db:"participant_b"`
	ParticipantC   string    `db:"participant_c"`
	GrossCents     uint64    `db:"gross_cents"`
	NetCents       uint64    `db:"net_cents"`
	SavingsPercent uint64    `db:"savings_percent"`
	Status         string    `db:"status"`
	ProposedAt     time.Time `db:"proposed_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}
