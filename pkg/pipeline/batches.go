// Copyright 2025 SP Consortium
package pipeline

import (
	"fmt"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
	"github.com/sp-cdr/consortium-chain/pkg/settlement"
)

// ProcessPendingBatches groups held batches by unordered operator pair,
// sums total_charges_cents per pair, and opens a bilateral settlement
// proposal for every pair at or above the settlement threshold, per
// spec §4.4. Settled pairs are removed from the pending table.
func (c *Coordinator) ProcessPendingBatches(now time.Time) error {
	c.mu.Lock()
	byPair := make(map[primitives.OperatorPair][]primitives.Hash)
	totals := make(map[primitives.OperatorPair]uint64)
	for id, b := range c.batches {
		pair := b.Pair()
		byPair[pair] = append(byPair[pair], id)
		totals[pair] += b.TotalChargesCents
	}
	c.mu.Unlock()

	for pair, total := range totals {
		if total < c.cfg.SettlementThreshold {
			continue
		}
		if err := c.proposeBilateralSettlement(pair, total, now); err != nil {
			return fmt.Errorf("propose settlement for pair %v: %w", pair, err)
		}
		c.mu.Lock()
		for _, id := range byPair[pair] {
			delete(c.batches, id)
		}
		if c.stats != nil {
			c.stats.PendingBatches.Set(float64(len(c.batches)))
		}
		c.mu.Unlock()
	}
	return nil
}

// proposeBilateralSettlement opens the negotiation with no batch proofs
// attached (nil): held batches do not keep their circuit-P proof bytes
// after acceptance, and no circuit-S proof is generated for a bilateral
// proposal.
func (c *Coordinator) proposeBilateralSettlement(pair primitives.OperatorPair, total uint64, now time.Time) error {
	msg := settlement.InitiateSettlement{
		Creditor:    pair.A,
		Debtor:      pair.B,
		AmountCents: total,
		Currency:    primitives.DefaultCurrency,
		PeriodStart: now.Add(-24 * time.Hour),
		PeriodEnd:   now,
		Nonce:       uint64(now.UnixNano()),
	}
	_, err := c.negotiator.Initiate(msg, nil, now)
	return err
}
