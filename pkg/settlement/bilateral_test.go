package settlement

import (
	"testing"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func testMsg(amount uint64) InitiateSettlement {
	return InitiateSettlement{
		Creditor:    primitives.NewOperator("T-Mobile", "DE"),
		Debtor:      primitives.NewOperator("Vodafone", "UK"),
		AmountCents: amount,
		Currency:    "EUR",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Nonce:       1,
	}
}

func TestInitiateRejectsSelfSettlement(t *testing.T) {
	n := NewNegotiator(DefaultConfig())
	msg := testMsg(500)
	msg.Debtor = msg.Creditor
	if _, err := n.Initiate(msg, nil, time.Now()); err == nil {
		t.Error("expected error for creditor == debtor")
	}
}

func TestAutoAcceptBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNegotiator(cfg)
	now := time.Now()
	p, err := n.Initiate(testMsg(cfg.AutoAcceptThresholdCents-1), nil, now)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	status, err := n.EvaluateAsDebtor(p.ProposalID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if status != StatusAccepted {
		t.Errorf("status = %s, want accepted", status)
	}
}

func TestUnderReviewAboveSettlementThreshold(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNegotiator(cfg)
	now := time.Now()
	p, err := n.Initiate(testMsg(cfg.SettlementThresholdCents+1), nil, now)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	status, err := n.EvaluateAsDebtor(p.ProposalID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if status != StatusUnderReview {
		t.Errorf("status = %s, want under_review", status)
	}
}

func TestExecuteSettlementRequiresAccepted(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNegotiator(cfg)
	now := time.Now()
	p, _ := n.Initiate(testMsg(100), nil, now)
	if _, err := n.ExecuteSettlement(p.ProposalID, now.Add(time.Hour), MethodBankTransfer); err == nil {
		t.Error("expected error executing a non-accepted proposal")
	}

	if err := n.Accept(p.ProposalID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	instr, err := n.ExecuteSettlement(p.ProposalID, now.Add(time.Hour), MethodBankTransfer)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if instr.FinalAmount != 100 || instr.Method != MethodBankTransfer {
		t.Errorf("unexpected instruction: %+v", instr)
	}

	got, _ := n.Get(p.ProposalID)
	if got.Status != StatusFinalized {
		t.Errorf("status after execute = %s, want finalized", got.Status)
	}
}

func TestCounterOfferThenExecuteUsesCounterAmount(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNegotiator(cfg)
	now := time.Now()
	p, _ := n.Initiate(testMsg(1000), nil, now)

	if err := n.Counter(CounterOffer{ProposalID: p.ProposalID, CounterAmount: 700}); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if err := n.Accept(p.ProposalID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	instr, err := n.ExecuteSettlement(p.ProposalID, now, MethodClearingHouse)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if instr.FinalAmount != 700 {
		t.Errorf("final amount = %d, want 700 (counter-offer)", instr.FinalAmount)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	n := NewNegotiator(DefaultConfig())
	now := time.Now()
	p, _ := n.Initiate(testMsg(500), nil, now)
	if err := n.Reject(p.ProposalID, RejectAmountMismatch); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := n.Accept(p.ProposalID); err == nil {
		t.Error("expected error accepting an already-rejected proposal")
	}
}

func TestOpenExcludesTerminalProposals(t *testing.T) {
	n := NewNegotiator(DefaultConfig())
	now := time.Now()
	p1, _ := n.Initiate(testMsg(500), nil, now)
	p2 := testMsg(600)
	p2.Nonce = 2
	p2Stored, _ := n.Initiate(p2, nil, now)

	if err := n.Reject(p1.ProposalID, RejectOther); err != nil {
		t.Fatalf("reject: %v", err)
	}
	open := n.Open()
	if len(open) != 1 || open[0].ProposalID != p2Stored.ProposalID {
		t.Errorf("open = %+v, want only %s", open, p2Stored.ProposalID)
	}
}
