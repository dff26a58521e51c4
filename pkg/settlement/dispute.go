// Copyright 2025 SP Consortium
package settlement

import (
	"fmt"

	"github.com/sp-cdr/consortium-chain/pkg/errkind"
)

// DisputeTable tracks disputes raised against finalized (or any)
// settlements. A disputed settlement becomes terminal for this layer;
// resolution happens off-protocol, per spec §4.3.
type DisputeTable struct {
	n *Negotiator
}

// NewDisputeTable wraps a Negotiator with dispute handling.
func NewDisputeTable(n *Negotiator) *DisputeTable {
	return &DisputeTable{n: n}
}

// Initiate records a dispute and forces the referenced settlement's status
// to Disputed, regardless of its current status (a dispute always wins).
func (d *DisputeTable) Initiate(dispute DisputeInitiation) error {
	d.n.mu.Lock()
	defer d.n.mu.Unlock()
	p, ok := d.n.proposals[dispute.SettlementID]
	if !ok {
		return errkind.New(errkind.NotFound, "Initiate", fmt.Errorf("settlement %s not found", dispute.SettlementID))
	}
	p.Status = StatusDisputed
	return nil
}
