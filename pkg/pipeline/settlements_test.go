package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
	"github.com/sp-cdr/consortium-chain/pkg/settlement"
)

func TestFindBestCycleFindsDirected3Cycle(t *testing.T) {
	a := primitives.NewOperator("T-Mobile", "DE")
	b := primitives.NewOperator("Vodafone", "UK")
	c := primitives.NewOperator("Orange", "FR")

	edges := []edge{
		{From: a, To: b, AmountCents: 1000},
		{From: b, To: c, AmountCents: 1000},
		{From: c, To: a, AmountCents: 1000},
	}
	best, savings, found := findBestCycle(edges)
	if !found {
		t.Fatal("expected a cycle to be found")
	}
	if savings != 100 {
		t.Errorf("savings = %d, want 100 (fully offsetting cycle)", savings)
	}
	seen := map[primitives.OpId]bool{best[0].From: true, best[1].From: true, best[2].From: true}
	if len(seen) != 3 {
		t.Errorf("cycle participants not distinct: %v", best)
	}
}

func TestFindBestCycleNoneWhenEdgesDoNotChain(t *testing.T) {
	a := primitives.NewOperator("T-Mobile", "DE")
	b := primitives.NewOperator("Vodafone", "UK")
	edges := []edge{{From: a, To: b, AmountCents: 500}}
	if _, _, found := findBestCycle(edges); found {
		t.Error("expected no cycle among a single edge")
	}
}

func TestCycleSavingsPercentPartialOffset(t *testing.T) {
	a := primitives.NewOperator("T-Mobile", "DE")
	b := primitives.NewOperator("Vodafone", "UK")
	c := primitives.NewOperator("Orange", "FR")
	ab := edge{From: a, To: b, AmountCents: 1000}
	bc := edge{From: b, To: c, AmountCents: 400}
	ca := edge{From: c, To: a, AmountCents: 1000}
	// gross = 2400. net: a=-1000+1000=0, b=1000-400=600, c=400-1000=-600.
	// netVolume = (600+600)/2 = 600. savings = (2400-600)*100/2400 = 75.
	got := cycleSavingsPercent(ab, bc, ca)
	if got != 75 {
		t.Errorf("savings = %d, want 75", got)
	}
}

func TestProcessSettlementsOpensNettingProposalAboveThreshold(t *testing.T) {
	neg := settlement.NewNegotiator(settlement.DefaultConfig())
	net := settlement.NewNettingBook(settlement.DefaultConfig())
	cfg := DefaultConfig()
	c := NewCoordinator(neg, net, fakeVerifier{ok: true}, fakeSProver{}, nil, NewStats(prometheus.NewRegistry()), cfg)

	opA := primitives.NewOperator("T-Mobile", "DE")
	opB := primitives.NewOperator("Vodafone", "UK")
	opC := primitives.NewOperator("Orange", "FR")
	now := time.Now()

	for _, leg := range []struct {
		debtor, creditor primitives.OpId
		amount           uint64
	}{
		{opA, opB, 1000},
		{opB, opC, 1000},
		{opC, opA, 1000},
	} {
		_, err := neg.Initiate(settlement.InitiateSettlement{
			Creditor:    leg.creditor,
			Debtor:      leg.debtor,
			AmountCents: leg.amount,
			Currency:    primitives.DefaultCurrency,
			PeriodStart: now.Add(-time.Hour),
			PeriodEnd:   now,
			Nonce:       uint64(leg.amount),
		}, nil, now)
		if err != nil {
			t.Fatalf("initiate leg %v->%v: %v", leg.debtor, leg.creditor, err)
		}
	}

	if err := c.ProcessSettlements(now); err != nil {
		t.Fatalf("process settlements: %v", err)
	}

	opened := net.Open()
	if len(opened) != 1 {
		t.Fatalf("open netting proposals = %d, want 1", len(opened))
	}
	if opened[0].SavingsPercent != 100 {
		t.Errorf("savings percent = %d, want 100", opened[0].SavingsPercent)
	}
	if !settlement.CheckConservation(opened[0].NetPositions) {
		t.Error("net positions must conserve to zero")
	}
}

func TestProcessSettlementsNoopWhenNoCycle(t *testing.T) {
	neg := settlement.NewNegotiator(settlement.DefaultConfig())
	net := settlement.NewNettingBook(settlement.DefaultConfig())
	cfg := DefaultConfig()
	c := NewCoordinator(neg, net, fakeVerifier{ok: true}, fakeSProver{}, nil, NewStats(prometheus.NewRegistry()), cfg)

	opA := primitives.NewOperator("T-Mobile", "DE")
	opB := primitives.NewOperator("Vodafone", "UK")
	now := time.Now()
	_, err := neg.Initiate(settlement.InitiateSettlement{
		Creditor: opB, Debtor: opA, AmountCents: 500, Currency: primitives.DefaultCurrency,
		PeriodStart: now.Add(-time.Hour), PeriodEnd: now, Nonce: 1,
	}, nil, now)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if err := c.ProcessSettlements(now); err != nil {
		t.Fatalf("process settlements should no-op without a cycle: %v", err)
	}
}
