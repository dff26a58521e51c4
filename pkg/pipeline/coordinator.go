// Copyright 2025 SP Consortium
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
	"github.com/sp-cdr/consortium-chain/pkg/settlement"
	"github.com/sp-cdr/consortium-chain/pkg/zk"
)

// BatchProofVerifier checks a CDRBatchReady announcement's circuit-P proof
// against its claimed public inputs before the coordinator will store the
// batch — the protocol's privacy firewall, per spec §4.4.
type BatchProofVerifier interface {
	VerifyRecordProof(proofBytes []byte, publicInputs zk.PrivacyWitness) (bool, error)
}

// SettlementProofGenerator produces a circuit-S proof for a triangular
// netting opportunity once all three participants have agreed.
type SettlementProofGenerator interface {
	GenerateSettlementProof(witness zk.NettingWitness) ([]byte, error)
}

// Config tunes the coordinator's loop cadence and settlement policy.
type Config struct {
	BatchTickInterval      time.Duration
	SettlementTickInterval time.Duration
	SettlementThreshold    uint64
	EnableTriangularNetting bool
	Logger                 *log.Logger
}

// DefaultConfig returns the cadences named in spec §4.4 (30s/60s).
func DefaultConfig() Config {
	return Config{
		BatchTickInterval:       30 * time.Second,
		SettlementTickInterval:  60 * time.Second,
		SettlementThreshold:     100_000_00,
		EnableTriangularNetting: true,
		Logger:                  log.New(os.Stderr, "[pipeline] ", log.LstdFlags),
	}
}

// Coordinator is the single-threaded cooperative event-loop driver (C8).
// It owns pending_batches and delegates to pkg/settlement for negotiation
// state, per spec §4.4. Not goroutine-safe beyond its own guarded maps —
// like pkg/consensus.Engine, it is meant to be driven by exactly one
// goroutine (Run's loop), matching spec §5's single-threaded model.
type Coordinator struct {
	mu      sync.RWMutex
	batches map[primitives.Hash]*primitives.BCEBatch

	negotiator *settlement.Negotiator
	netting    *settlement.NettingBook
	verifier   BatchProofVerifier
	sProver    SettlementProofGenerator
	dispatcher ContractDispatcher
	stats      *Stats
	cfg        Config
}

// NewCoordinator wires a coordinator over an already-constructed
// negotiator/netting book/verifier/prover.
func NewCoordinator(negotiator *settlement.Negotiator, netting *settlement.NettingBook, verifier BatchProofVerifier, sProver SettlementProofGenerator, dispatcher ContractDispatcher, stats *Stats, cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[pipeline] ", log.LstdFlags)
	}
	return &Coordinator{
		batches:    make(map[primitives.Hash]*primitives.BCEBatch),
		negotiator: negotiator,
		netting:    netting,
		verifier:   verifier,
		sProver:    sProver,
		dispatcher: dispatcher,
		stats:      stats,
		cfg:        cfg,
	}
}

// Run drives the select loop from spec §4.4:
//
//	select:
//	  on network event  → handle_network_event
//	  every 30s          → process_pending_batches
//	  every 60s          → sweep expired proposals, then
//	                       process_settlements (if netting enabled)
//
// It returns when ctx is canceled or events is closed.
func (c *Coordinator) Run(ctx context.Context, events <-chan NetworkEvent) error {
	batchTicker := time.NewTicker(c.cfg.BatchTickInterval)
	defer batchTicker.Stop()
	settlementTicker := time.NewTicker(c.cfg.SettlementTickInterval)
	defer settlementTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.handleNetworkEvent(ev); err != nil {
				c.cfg.Logger.Printf("handle network event: %v", err)
			}
		case <-batchTicker.C:
			if err := c.ProcessPendingBatches(time.Now()); err != nil {
				c.cfg.Logger.Printf("process pending batches: %v", err)
			}
		case <-settlementTicker.C:
			c.negotiator.SweepExpired(time.Now())
			c.netting.SweepExpired(time.Now())
			if c.cfg.EnableTriangularNetting {
				if err := c.ProcessSettlements(time.Now()); err != nil {
					c.cfg.Logger.Printf("process settlements: %v", err)
				}
			}
		}
	}
}

// handleNetworkEvent dispatches by event kind, per spec §4.4.
// PeerConnected/PeerDisconnected only log; batch/settlement announcements
// route to the appropriate store.
func (c *Coordinator) handleNetworkEvent(ev NetworkEvent) error {
	switch ev.Kind {
	case EventPeerConnected:
		c.cfg.Logger.Printf("peer connected: %s", ev.Peer)
		return nil
	case EventPeerDisconnected:
		c.cfg.Logger.Printf("peer disconnected: %s", ev.Peer)
		return nil
	case EventMessageReceived, EventGossipReceived:
		if ev.BatchAnnounce != nil {
			return c.acceptBatchAnnouncement(*ev.BatchAnnounce)
		}
		if ev.SettlementMessage != nil {
			// C7's wire handling is message-kind-specific and lives in
			// pkg/settlement; the coordinator only ensures delivery.
			c.cfg.Logger.Printf("settlement message routed: kind=%s", ev.SettlementMessage.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// acceptBatchAnnouncement is the privacy firewall from spec §4.4: it
// reconstructs the expected public inputs and verifies the supplied
// circuit-P proof before storing anything about the batch. Only the
// commitments (never record contents) cross this boundary.
func (c *Coordinator) acceptBatchAnnouncement(ann CDRBatchReady) error {
	pairHash, err := primitives.HashJSON(ann.NetworkPair)
	if err != nil {
		return fmt.Errorf("hash network pair: %w", err)
	}
	publicInputs := zk.PrivacyWitness{
		TotalChargesCents: ann.TotalAmountCents,
		PeriodHash:        ann.PeriodHash,
		NetworkPairHash:   pairHash,
	}
	ok, err := c.verifier.VerifyRecordProof(ann.Proof, publicInputs)
	if err != nil {
		if c.stats != nil {
			c.stats.BatchesRejectedInvalid.Inc()
		}
		return fmt.Errorf("verify batch %s proof: %w", ann.BatchID, err)
	}
	if !ok {
		if c.stats != nil {
			c.stats.BatchesRejectedInvalid.Inc()
		}
		return fmt.Errorf("batch %s: invalid circuit-P proof, not stored", ann.BatchID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches[ann.BatchID] = &primitives.BCEBatch{
		BatchID:           ann.BatchID,
		Home:              ann.NetworkPair.A,
		Visited:           ann.NetworkPair.B,
		TotalChargesCents: ann.TotalAmountCents,
	}
	if c.stats != nil {
		c.stats.PendingBatches.Set(float64(len(c.batches)))
	}
	return nil
}

// PendingCount returns the number of batches currently held.
func (c *Coordinator) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.batches)
}

// DispatchBlock routes every transaction in a newly committed block
// through the contract dispatcher (C4 verification for CDR/Settlement
// transactions), per spec §9's trivial-dispatcher design note. Wired as
// part of the consensus engine's OnCommit callback by cmd/cdrnode.
func (c *Coordinator) DispatchBlock(txs []chainstore.Transaction) error {
	if c.dispatcher == nil {
		return nil
	}
	for _, tx := range txs {
		if err := c.dispatcher.Dispatch(tx); err != nil {
			return fmt.Errorf("dispatch transaction: %w", err)
		}
	}
	return nil
}
