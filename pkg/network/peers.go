// Copyright 2025 SP Consortium
package network

import (
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// OperatorInfo describes a known SP consortium node, grounded on
// original_source/src/network/peer_discovery.rs's SPOperatorInfo.
type OperatorInfo struct {
	PeerID              peer.ID
	Operator            primitives.OpId
	Endpoints           []string
	ValidatorStakeCents uint64
	SupportedCurrencies []string
	IsValidator         bool
	LastSeen            time.Time
}

// ConsortiumBootstrapAddrs are the well-known dev-cluster bootstrap
// multiaddresses, matching peer_discovery.rs's with_sp_consortium demo
// fixture. Production deployments override these via pkg/config.
var ConsortiumBootstrapAddrs = []string{
	"/ip4/127.0.0.1/tcp/8000",
	"/ip4/127.0.0.1/tcp/8001",
	"/ip4/127.0.0.1/tcp/8002",
}

// PeerTable tracks known operators by peer ID and the reverse operator ->
// peer ID mapping, plus a bootstrap address list, per peer_discovery.rs's
// PeerDiscovery. Safe for concurrent use.
type PeerTable struct {
	mu             sync.RWMutex
	operators      map[peer.ID]OperatorInfo
	operatorToPeer map[primitives.OpId]peer.ID
	bootstrap      []string
}

// NewPeerTable builds a table seeded with the given bootstrap addresses.
func NewPeerTable(bootstrap []string) *PeerTable {
	return &PeerTable{
		operators:      make(map[peer.ID]OperatorInfo),
		operatorToPeer: make(map[primitives.OpId]peer.ID),
		bootstrap:      bootstrap,
	}
}

// Bootstrap returns the configured bootstrap multiaddresses.
func (t *PeerTable) Bootstrap() []string { return t.bootstrap }

// Upsert records or refreshes an operator's info, stamping LastSeen.
func (t *PeerTable) Upsert(info OperatorInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info.LastSeen = time.Now()
	t.operators[info.PeerID] = info
	t.operatorToPeer[info.Operator] = info.PeerID
}

// Lookup returns the known info for a peer ID.
func (t *PeerTable) Lookup(id peer.ID) (OperatorInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.operators[id]
	return info, ok
}

// PeerForOperator resolves an operator identity to its last-known peer ID.
func (t *PeerTable) PeerForOperator(op primitives.OpId) (peer.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.operatorToPeer[op]
	return id, ok
}

// Operators returns a snapshot of all known operator records.
func (t *PeerTable) Operators() []OperatorInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]OperatorInfo, 0, len(t.operators))
	for _, info := range t.operators {
		out = append(out, info)
	}
	return out
}
