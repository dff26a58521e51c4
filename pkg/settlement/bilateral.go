// Copyright 2025 SP Consortium
package settlement

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/errkind"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// Config tunes the negotiation policy thresholds, per spec §4.3/§6.
type Config struct {
	AutoAcceptThresholdCents uint64
	SettlementThresholdCents uint64
	BilateralExpiry          time.Duration
	NettingExpiry            time.Duration
	Logger                   *log.Logger
}

// DefaultConfig returns the default policy: expiries from pkg/primitives,
// an auto-accept threshold of 1,000,000 cents and a settlement threshold of
// 10,000,000 cents.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThresholdCents: 10_000_00,
		SettlementThresholdCents: 100_000_00,
		BilateralExpiry:          primitives.DefaultBilateralExpiry,
		NettingExpiry:            primitives.DefaultNettingExpiry,
		Logger:                   log.New(os.Stderr, "[settlement] ", log.LstdFlags),
	}
}

// Negotiator owns the in-memory table of bilateral proposals, indexed by
// proposal ID, and drives their status transitions. Safe for concurrent
// use; grounded on the teacher's pkg/batch guarded-map-of-state idiom
// (Collector's in-flight-batch table) generalized from batches to
// settlement proposals.
type Negotiator struct {
	mu        sync.RWMutex
	proposals map[primitives.Hash]*Proposal
	cfg       Config
}

// NewNegotiator constructs an empty negotiator.
func NewNegotiator(cfg Config) *Negotiator {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[settlement] ", log.LstdFlags)
	}
	return &Negotiator{proposals: make(map[primitives.Hash]*Proposal), cfg: cfg}
}

// Initiate opens a new bilateral negotiation from an InitiateSettlement
// message, returning the stored Proposal in status Proposed.
func (n *Negotiator) Initiate(msg InitiateSettlement, batchProofs [][]byte, now time.Time) (*Proposal, error) {
	if msg.Creditor == msg.Debtor {
		return nil, errkind.New(errkind.InvalidState, "Initiate", fmt.Errorf("creditor and debtor must differ"))
	}
	id, err := primitives.HashJSON(msg)
	if err != nil {
		return nil, errkind.New(errkind.Serialization, "Initiate", err)
	}
	p := &Proposal{
		ProposalID:  id,
		Creditor:    msg.Creditor,
		Debtor:      msg.Debtor,
		AmountCents: msg.AmountCents,
		Currency:    msg.Currency,
		PeriodStart: msg.PeriodStart,
		PeriodEnd:   msg.PeriodEnd,
		BatchHash:   msg.BatchHash,
		BatchProofs: batchProofs,
		Status:      StatusProposed,
		ProposedAt:  now,
		ExpiresAt:   now.Add(n.cfg.BilateralExpiry),
	}
	if !p.Valid() {
		return nil, errkind.New(errkind.InvalidState, "Initiate", fmt.Errorf("invalid proposal: creditor == debtor"))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.proposals[id] = p
	n.cfg.Logger.Printf("proposal %s: %s -> %s opened for %d cents", id, msg.Debtor, msg.Creditor, msg.AmountCents)
	return p, nil
}

// EvaluateAsDebtor applies the debtor's automatic evaluation policy from
// spec §4.3: auto-accept at or below the threshold, counter-offer logic is left
// to the caller (debtors that want to counter call Counter directly), and
// amounts needing review are marked UnderReview.
func (n *Negotiator) EvaluateAsDebtor(proposalID primitives.Hash) (Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[proposalID]
	if !ok {
		return "", errkind.New(errkind.NotFound, "EvaluateAsDebtor", fmt.Errorf("proposal %s not found", proposalID))
	}
	if p.Status != StatusProposed {
		return p.Status, errkind.New(errkind.InvalidState, "EvaluateAsDebtor", fmt.Errorf("proposal %s not open (status=%s)", proposalID, p.Status))
	}

	switch {
	case p.AmountCents <= n.cfg.AutoAcceptThresholdCents:
		p.Status = StatusAccepted
	case p.AmountCents > n.cfg.SettlementThresholdCents:
		p.Status = StatusUnderReview
	default:
		p.Status = StatusUnderReview
	}
	return p.Status, nil
}

// Accept marks a proposal Accepted directly (used by manual operator
// review flows; EvaluateAsDebtor's auto-accept path sets the status itself).
func (n *Negotiator) Accept(proposalID primitives.Hash) error {
	return n.transition(proposalID, StatusAccepted, "")
}

// Reject marks a proposal Rejected with a reason.
func (n *Negotiator) Reject(proposalID primitives.Hash, reason RejectReason) error {
	return n.transitionWithReason(proposalID, StatusRejected, reason)
}

// Counter records a counter-offer and moves the proposal to
// CounterProposed.
func (n *Negotiator) Counter(offer CounterOffer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[offer.ProposalID]
	if !ok {
		return errkind.New(errkind.NotFound, "Counter", fmt.Errorf("proposal %s not found", offer.ProposalID))
	}
	if terminal(p.Status) {
		return errkind.New(errkind.InvalidState, "Counter", fmt.Errorf("proposal %s already terminal (status=%s)", offer.ProposalID, p.Status))
	}
	p.Status = StatusCounterProposed
	p.CounterAmountCents = offer.CounterAmount
	return nil
}

func (n *Negotiator) transition(proposalID primitives.Hash, to Status, reason RejectReason) error {
	return n.transitionWithReason(proposalID, to, reason)
}

func (n *Negotiator) transitionWithReason(proposalID primitives.Hash, to Status, reason RejectReason) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[proposalID]
	if !ok {
		return errkind.New(errkind.NotFound, "transition", fmt.Errorf("proposal %s not found", proposalID))
	}
	if terminal(p.Status) {
		return errkind.New(errkind.InvalidState, "transition", fmt.Errorf("proposal %s already terminal (status=%s)", proposalID, p.Status))
	}
	p.Status = to
	p.RejectReason = reason
	return nil
}

func terminal(s Status) bool {
	switch s {
	case StatusFinalized, StatusRejected, StatusExpired, StatusDisputed:
		return true
	default:
		return false
	}
}

// ExecuteSettlement finalizes an Accepted proposal into a SettlementInstruction,
// per spec §4.3. The instruction carries the caller-supplied method; the
// final amount is the counter-offer amount if one was recorded.
func (n *Negotiator) ExecuteSettlement(proposalID primitives.Hash, dueDate time.Time, method SettlementMethod) (*Instruction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.proposals[proposalID]
	if !ok {
		return nil, errkind.New(errkind.NotFound, "ExecuteSettlement", fmt.Errorf("proposal %s not found", proposalID))
	}
	if p.Status != StatusAccepted {
		return nil, errkind.New(errkind.InvalidState, "ExecuteSettlement", fmt.Errorf("proposal %s not accepted (status=%s)", proposalID, p.Status))
	}
	amount := p.AmountCents
	if p.CounterAmountCents > 0 {
		amount = p.CounterAmountCents
	}
	p.Status = StatusFinalized
	return &Instruction{
		SettlementID: proposalID,
		Creditor:     p.Creditor,
		Debtor:       p.Debtor,
		FinalAmount:  amount,
		Currency:     p.Currency,
		DueDate:      dueDate,
		Method:       method,
	}, nil
}

// Get returns a snapshot copy of a proposal's current state.
func (n *Negotiator) Get(proposalID primitives.Hash) (Proposal, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.proposals[proposalID]
	if !ok {
		return Proposal{}, false
	}
	return *p, true
}

// Open returns every proposal not yet in a terminal status.
func (n *Negotiator) Open() []Proposal {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Proposal, 0, len(n.proposals))
	for _, p := range n.proposals {
		if !terminal(p.Status) {
			out = append(out, *p)
		}
	}
	return out
}
