// Copyright 2025 SP Consortium
package settlement

import (
	"fmt"
	"sync"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/errkind"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// AgreementStatus is one participant's response to a triangular netting
// proposal.
type AgreementStatus string

const (
	AgreementPending          AgreementStatus = "pending"
	AgreementAgree            AgreementStatus = "agree"
	AgreementConditionalAgree AgreementStatus = "conditional_agree"
)

// BilateralLeg is one directed amount among the three netting
// participants, e.g. A owes B a.AmountCents for the period.
type BilateralLeg struct {
	From        primitives.OpId
	To          primitives.OpId
	AmountCents uint64
}

// NettingProposal is a triangular netting negotiation among three
// participants, computed from their six directed bilaterals, per
// spec §4.3.
type NettingProposal struct {
	ProposalID   primitives.Hash
	Participants [3]primitives.OpId
	Legs         []BilateralLeg // up to six directed legs among the three
	ProposedAt   time.Time
	ExpiresAt    time.Time
	Status       Status

	// NetPositions maps each participant to outgoing-minus-incoming across
	// all legs; GrossCents/NetCents/SavingsPercent are derived once and
	// cached at proposal time.
	NetPositions    map[primitives.OpId]int64
	GrossCents      uint64
	NetCents        uint64
	SavingsPercent  uint64
	Agreements      map[primitives.OpId]AgreementStatus
}

// netPositions computes outgoing-minus-incoming per participant across the
// six directed bilaterals. Conservation (sum of net positions == 0) holds
// by construction and is re-asserted by CheckConservation for parity with
// circuit S, per spec §4.3.
func netPositions(participants [3]primitives.OpId, legs []BilateralLeg) map[primitives.OpId]int64 {
	net := map[primitives.OpId]int64{
		participants[0]: 0, participants[1]: 0, participants[2]: 0,
	}
	for _, leg := range legs {
		net[leg.From] += int64(leg.AmountCents)
		net[leg.To] -= int64(leg.AmountCents)
	}
	return net
}

// CheckConservation verifies sum(net positions) == 0, the arithmetic
// identity circuit S also enforces.
func CheckConservation(net map[primitives.OpId]int64) bool {
	var sum int64
	for _, v := range net {
		sum += v
	}
	return sum == 0
}

// savingsPercent computes floor((gross-net)*100/gross), per spec §4.3.
// gross is the sum of all bilateral legs; net is half the sum of absolute
// net positions (the minimum total transfer volume that settles the same
// obligations).
func savingsPercent(gross, net uint64) uint64 {
	if gross == 0 {
		return 0
	}
	return ((gross - net) * 100) / gross
}

// absSum sums |v| over a net-position map, then halves it: this is the
// minimum transfer volume needed to settle the same net obligations.
func absSum(net map[primitives.OpId]int64) uint64 {
	var sum int64
	for _, v := range net {
		if v < 0 {
			sum -= v
		} else {
			sum += v
		}
	}
	return uint64(sum) / 2
}

// nettingAutoAgreeSavingsPercent and nettingAutoAgreeMaxNetCents are the
// heuristic acceptance thresholds from spec §4.3.
const (
	nettingAutoAgreeSavingsPercent = 30
	nettingAutoAgreeMaxNetCents    = 1_000_000
)

// NettingBook owns in-flight triangular netting proposals, indexed by
// proposal ID. Safe for concurrent use.
type NettingBook struct {
	mu        sync.RWMutex
	proposals map[primitives.Hash]*NettingProposal
	cfg       Config
}

// NewNettingBook constructs an empty book.
func NewNettingBook(cfg Config) *NettingBook {
	return &NettingBook{proposals: make(map[primitives.Hash]*NettingProposal), cfg: cfg}
}

// Propose computes net positions, gross/net/savings, and opens a new
// triangular netting proposal in Proposed status.
func (b *NettingBook) Propose(participants [3]primitives.OpId, legs []BilateralLeg, now time.Time) (*NettingProposal, error) {
	if participants[0] == participants[1] || participants[1] == participants[2] || participants[0] == participants[2] {
		return nil, errkind.New(errkind.InvalidState, "Propose", fmt.Errorf("netting requires three distinct participants"))
	}
	net := netPositions(participants, legs)
	if !CheckConservation(net) {
		return nil, errkind.New(errkind.InvalidState, "Propose", fmt.Errorf("net positions do not conserve to zero"))
	}
	var gross uint64
	for _, leg := range legs {
		gross += leg.AmountCents
	}
	netVolume := absSum(net)
	savings := savingsPercent(gross, netVolume)

	id, err := primitives.HashJSON(struct {
		Participants [3]primitives.OpId
		Legs         []BilateralLeg
		ProposedAt   time.Time
	}{participants, legs, now})
	if err != nil {
		return nil, errkind.New(errkind.Serialization, "Propose", err)
	}

	p := &NettingProposal{
		ProposalID:     id,
		Participants:   participants,
		Legs:           legs,
		ProposedAt:     now,
		ExpiresAt:      now.Add(b.cfg.NettingExpiry),
		Status:         StatusProposed,
		NetPositions:   net,
		GrossCents:     gross,
		NetCents:       netVolume,
		SavingsPercent: savings,
		Agreements: map[primitives.OpId]AgreementStatus{
			participants[0]: AgreementPending,
			participants[1]: AgreementPending,
			participants[2]: AgreementPending,
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.proposals[id] = p
	return p, nil
}

// Evaluate applies the heuristic acceptance rule from spec §4.3 for a
// single participant: auto-agree if savings >= 30% and the participant's
// own |net position| <= 10^6 cents; otherwise ConditionalAgree.
func (b *NettingBook) Evaluate(proposalID primitives.Hash, participant primitives.OpId) (AgreementStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.proposals[proposalID]
	if !ok {
		return "", errkind.New(errkind.NotFound, "Evaluate", fmt.Errorf("netting proposal %s not found", proposalID))
	}
	myNet := p.NetPositions[participant]
	if myNet < 0 {
		myNet = -myNet
	}

	status := AgreementConditionalAgree
	if p.SavingsPercent >= nettingAutoAgreeSavingsPercent && uint64(myNet) <= nettingAutoAgreeMaxNetCents {
		status = AgreementAgree
	}
	p.Agreements[participant] = status
	if b.allAgreed(p) {
		p.Status = StatusFinalized
	}
	return status, nil
}

func (b *NettingBook) allAgreed(p *NettingProposal) bool {
	for _, participant := range p.Participants {
		if p.Agreements[participant] != AgreementAgree {
			return false
		}
	}
	return true
}

// Get returns a snapshot copy of a netting proposal's state.
func (b *NettingBook) Get(proposalID primitives.Hash) (NettingProposal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.proposals[proposalID]
	if !ok {
		return NettingProposal{}, false
	}
	return *p, true
}

// Open returns a snapshot of every non-terminal netting proposal.
func (b *NettingBook) Open() []NettingProposal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]NettingProposal, 0, len(b.proposals))
	for _, p := range b.proposals {
		if !terminal(p.Status) {
			out = append(out, *p)
		}
	}
	return out
}

// SweepExpired moves non-terminal netting proposals past ExpiresAt to
// Expired.
func (b *NettingBook) SweepExpired(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, p := range b.proposals {
		if terminal(p.Status) {
			continue
		}
		if now.After(p.ExpiresAt) {
			p.Status = StatusExpired
			count++
		}
	}
	return count
}
