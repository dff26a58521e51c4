// Copyright 2025 SP Consortium
package database

import (
	"testing"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// These tests exercise the pure conversion path from domain types to
// reporting records without touching a live database connection — the
// repository methods themselves require *sql.DB and are covered by the
// integration suite run against a real Postgres instance.

func TestBCEBatchFieldsMapToBatchRecordColumns(t *testing.T) {
	home := primitives.NewOperator("T-Mobile", "DE")
	visited := primitives.NewOperator("Orange", "FR")
	records := []primitives.BCERecord{
		{
			RecordID:             "r1",
			RecordType:           primitives.VoiceCDR,
			SubscriberIMSI:       "262011234567890",
			HomePLMN:             "26201",
			VisitedPLMN:          "20801",
			WholesaleChargeCents: 500,
			Currency:             "EUR",
			Timestamp:            time.Now(),
		},
	}
	periodStart := time.Now().Add(-24 * time.Hour)
	periodEnd := time.Now()

	batch, err := primitives.NewBCEBatch(home, visited, records, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("NewBCEBatch: %v", err)
	}
	if err := batch.CheckInvariant(); err != nil {
		t.Fatalf("CheckInvariant: %v", err)
	}

	if batch.BatchID.IsZero() {
		t.Fatal("expected a non-zero content-addressed batch ID")
	}
	if len(batch.BatchID.Bytes()) != 32 {
		t.Errorf("BatchID.Bytes() length = %d, want 32", len(batch.BatchID.Bytes()))
	}
	if batch.Home.String() != "T-Mobile:DE" {
		t.Errorf("Home.String() = %q", batch.Home.String())
	}
	if batch.TotalChargesCents != 500 {
		t.Errorf("TotalChargesCents = %d, want 500", batch.TotalChargesCents)
	}
}

func TestErrorsAreDistinctSentinels(t *testing.T) {
	if ErrBatchNotFound == ErrSettlementNotFound {
		t.Fatal("sentinel errors must be distinguishable")
	}
	if ErrSettlementNotFound == ErrNettingProposalNotFound {
		t.Fatal("sentinel errors must be distinguishable")
	}
}
