package settlement

import (
	"testing"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func TestDisputeForcesTerminalStatus(t *testing.T) {
	n := NewNegotiator(DefaultConfig())
	now := time.Now()
	p, _ := n.Initiate(testMsg(500), nil, now)
	if err := n.Accept(p.ProposalID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	dt := NewDisputeTable(n)
	evidence := primitives.HashBytes([]byte("invoice mismatch"))
	if err := dt.Initiate(DisputeInitiation{
		SettlementID: p.ProposalID,
		Reason:       DisputeAmountDiscrepancy,
		EvidenceHash: evidence,
	}); err != nil {
		t.Fatalf("initiate dispute: %v", err)
	}

	got, _ := n.Get(p.ProposalID)
	if got.Status != StatusDisputed {
		t.Errorf("status = %s, want disputed", got.Status)
	}
}

func TestDisputeUnknownSettlement(t *testing.T) {
	n := NewNegotiator(DefaultConfig())
	dt := NewDisputeTable(n)
	err := dt.Initiate(DisputeInitiation{SettlementID: primitives.HashBytes([]byte("nope"))})
	if err == nil {
		t.Error("expected error disputing an unknown settlement")
	}
}
