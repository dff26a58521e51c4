package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
	"github.com/sp-cdr/consortium-chain/pkg/settlement"
	"github.com/sp-cdr/consortium-chain/pkg/zk"
)

type fakeVerifier struct {
	ok  bool
	err error
}

func (f fakeVerifier) VerifyRecordProof(proofBytes []byte, publicInputs zk.PrivacyWitness) (bool, error) {
	return f.ok, f.err
}

type fakeSProver struct{}

func (fakeSProver) GenerateSettlementProof(witness zk.NettingWitness) ([]byte, error) {
	return []byte("fake-proof"), nil
}

func newTestCoordinator(t *testing.T, verifier BatchProofVerifier) *Coordinator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SettlementThreshold = 1000
	return NewCoordinator(
		settlement.NewNegotiator(settlement.DefaultConfig()),
		settlement.NewNettingBook(settlement.DefaultConfig()),
		verifier,
		fakeSProver{},
		nil,
		NewStats(prometheus.NewRegistry()),
		cfg,
	)
}

func TestAcceptBatchAnnouncementStoresOnValidProof(t *testing.T) {
	c := newTestCoordinator(t, fakeVerifier{ok: true})
	ann := CDRBatchReady{
		BatchID:          primitives.HashBytes([]byte("batch-1")),
		NetworkPair:      primitives.UnorderedPair(primitives.NewOperator("T-Mobile", "DE"), primitives.NewOperator("Vodafone", "UK")),
		TotalAmountCents: 500,
	}
	if err := c.handleNetworkEvent(NetworkEvent{Kind: EventGossipReceived, BatchAnnounce: &ann}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if c.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1", c.PendingCount())
	}
}

func TestAcceptBatchAnnouncementRejectsInvalidProof(t *testing.T) {
	c := newTestCoordinator(t, fakeVerifier{ok: false})
	ann := CDRBatchReady{
		BatchID:          primitives.HashBytes([]byte("batch-2")),
		NetworkPair:      primitives.UnorderedPair(primitives.NewOperator("T-Mobile", "DE"), primitives.NewOperator("Vodafone", "UK")),
		TotalAmountCents: 500,
	}
	if err := c.handleNetworkEvent(NetworkEvent{Kind: EventGossipReceived, BatchAnnounce: &ann}); err == nil {
		t.Fatal("expected error for invalid proof")
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 (batch must not be stored)", c.PendingCount())
	}
}

func TestProcessPendingBatchesOpensSettlementAboveThreshold(t *testing.T) {
	c := newTestCoordinator(t, fakeVerifier{ok: true})
	home := primitives.NewOperator("T-Mobile", "DE")
	visited := primitives.NewOperator("Vodafone", "UK")
	pair := primitives.UnorderedPair(home, visited)

	for i := 0; i < 2; i++ {
		ann := CDRBatchReady{
			BatchID:          primitives.HashBytes([]byte{byte(i)}),
			NetworkPair:      pair,
			TotalAmountCents: 600,
		}
		if err := c.handleNetworkEvent(NetworkEvent{Kind: EventGossipReceived, BatchAnnounce: &ann}); err != nil {
			t.Fatalf("accept batch %d: %v", i, err)
		}
	}
	if c.PendingCount() != 2 {
		t.Fatalf("pending count = %d, want 2 before processing", c.PendingCount())
	}

	if err := c.ProcessPendingBatches(time.Now()); err != nil {
		t.Fatalf("process pending batches: %v", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0 after settlement opened", c.PendingCount())
	}
	open := c.negotiator.Open()
	if len(open) != 1 {
		t.Fatalf("open proposals = %d, want 1", len(open))
	}
	if open[0].AmountCents != 1200 {
		t.Errorf("proposal amount = %d, want 1200 (600+600)", open[0].AmountCents)
	}
}

func TestProcessPendingBatchesLeavesBelowThreshold(t *testing.T) {
	c := newTestCoordinator(t, fakeVerifier{ok: true})
	pair := primitives.UnorderedPair(primitives.NewOperator("T-Mobile", "DE"), primitives.NewOperator("Vodafone", "UK"))
	ann := CDRBatchReady{BatchID: primitives.HashBytes([]byte("small")), NetworkPair: pair, TotalAmountCents: 1}
	if err := c.handleNetworkEvent(NetworkEvent{Kind: EventGossipReceived, BatchAnnounce: &ann}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := c.ProcessPendingBatches(time.Now()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1 (below threshold, untouched)", c.PendingCount())
	}
}
