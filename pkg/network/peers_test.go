package network

import (
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func TestPeerTableUpsertAndLookup(t *testing.T) {
	pt := NewPeerTable(ConsortiumBootstrapAddrs)
	id := newTestPeerID(t)
	op := primitives.NewOperator("Orange", "FR")

	pt.Upsert(OperatorInfo{
		PeerID:              id,
		Operator:            op,
		ValidatorStakeCents: 900_000_00,
		SupportedCurrencies: []string{"EUR"},
		IsValidator:         true,
	})

	info, ok := pt.Lookup(id)
	if !ok {
		t.Fatal("expected peer to be found after upsert")
	}
	if info.Operator != op {
		t.Errorf("operator = %v, want %v", info.Operator, op)
	}
	if info.LastSeen.IsZero() {
		t.Error("expected LastSeen to be stamped on upsert")
	}

	peerID, ok := pt.PeerForOperator(op)
	if !ok || peerID != id {
		t.Errorf("PeerForOperator(%v) = %v, %v; want %v, true", op, peerID, ok, id)
	}

	if got := len(pt.Bootstrap()); got != len(ConsortiumBootstrapAddrs) {
		t.Errorf("bootstrap len = %d, want %d", got, len(ConsortiumBootstrapAddrs))
	}
	if got := len(pt.Operators()); got != 1 {
		t.Errorf("operators len = %d, want 1", got)
	}
}

func TestPeerTableLookupMiss(t *testing.T) {
	pt := NewPeerTable(nil)
	if _, ok := pt.Lookup(newTestPeerID(t)); ok {
		t.Error("expected lookup miss on empty table")
	}
}
