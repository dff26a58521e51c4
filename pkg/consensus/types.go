// Copyright 2025 SP Consortium
//
// Package consensus implements the bespoke three-phase BFT protocol of
// spec §4.2: Propose, PreVote, PreCommit, Commit, with individually
// BLS-signed votes, round-robin proposer selection, and timeout-driven
// view change.
package consensus

import (
	"sort"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// Phase is one of the four states a round moves through.
type Phase string

const (
	PhasePropose   Phase = "propose"
	PhasePreVote   Phase = "prevote"
	PhasePreCommit Phase = "precommit"
	PhaseCommit    Phase = "commit"
)

// ViewChangeReason explains why a round was abandoned.
type ViewChangeReason string

const (
	ReasonTimeout          ViewChangeReason = "timeout"
	ReasonInvalidProposal  ViewChangeReason = "invalid_proposal"
	ReasonNetworkPartition ViewChangeReason = "network_partition"
)

// ValidatorSet is the a-priori-known set of validators for the current
// epoch: a sorted list of identities plus each one's stake weight.
type ValidatorSet struct {
	ordered []primitives.OpId
	weights map[primitives.OpId]uint64
}

// NewValidatorSet builds a ValidatorSet from a weights map, sorting
// identities deterministically by their string form so every node computes
// the same proposer for a given round.
func NewValidatorSet(weights map[primitives.OpId]uint64) *ValidatorSet {
	ordered := make([]primitives.OpId, 0, len(weights))
	for id := range weights {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })
	return &ValidatorSet{ordered: ordered, weights: weights}
}

// Len returns the number of validators, n.
func (vs *ValidatorSet) Len() int { return len(vs.ordered) }

// Contains reports whether id is a member of the set.
func (vs *ValidatorSet) Contains(id primitives.OpId) bool {
	_, ok := vs.weights[id]
	return ok
}

// Weight returns id's stake weight, or 0 if it is not a member.
func (vs *ValidatorSet) Weight(id primitives.OpId) uint64 { return vs.weights[id] }

// TotalWeight sums every validator's weight.
func (vs *ValidatorSet) TotalWeight() uint64 {
	var total uint64
	for _, w := range vs.weights {
		total += w
	}
	return total
}

// Proposer returns the validator at index r mod n in the sorted list, per
// spec §4.2's round-robin proposer selection.
func (vs *ValidatorSet) Proposer(round uint32) primitives.OpId {
	if len(vs.ordered) == 0 {
		return primitives.OpId{}
	}
	return vs.ordered[int(round)%len(vs.ordered)]
}

// Members returns the sorted validator list.
func (vs *ValidatorSet) Members() []primitives.OpId {
	out := make([]primitives.OpId, len(vs.ordered))
	copy(out, vs.ordered)
	return out
}

// voteEntry records whether a validator's vote for a (round, phase) was
// nil (hash == zero) or for a specific block hash, and enforces the "last
// non-nil wins only if previous was nil" idempotence rule from spec §4.2.
type voteEntry struct {
	hash primitives.Hash
	nil  bool
}

// RoundState is the consensus state machine's state for a single round at
// a single height, per spec §4.2's state list.
type RoundState struct {
	Height uint64
	Round  uint32
	Phase  Phase

	ProposedBlock *chainstore.Block
	ProposedHash  primitives.Hash

	preVotes   map[primitives.OpId]voteEntry
	preCommits map[primitives.OpId]voteEntry

	// committedPreCommit records whether this node itself has already
	// broadcast a non-nil pre-commit this round — per spec §4.2, "a
	// validator never changes its pre-commit in the same round".
	committedPreCommit bool

	RoundStart time.Time
}

// NewRoundState starts a fresh round at height/round in the Propose phase.
func NewRoundState(height uint64, round uint32) *RoundState {
	return &RoundState{
		Height:     height,
		Round:      round,
		Phase:      PhasePropose,
		preVotes:   map[primitives.OpId]voteEntry{},
		preCommits: map[primitives.OpId]voteEntry{},
		RoundStart: time.Now(),
	}
}

// recordPreVote applies the idempotence rule and returns whether the vote
// was accepted (as opposed to discarded as a no-op re-vote).
func (rs *RoundState) recordPreVote(voter primitives.OpId, hash primitives.Hash, isNil bool) bool {
	return recordVote(rs.preVotes, voter, hash, isNil)
}

func (rs *RoundState) recordPreCommit(voter primitives.OpId, hash primitives.Hash, isNil bool) bool {
	if prior, ok := rs.preCommits[voter]; ok && !prior.nil {
		// A validator never changes its pre-commit in the same round.
		return false
	}
	return recordVote(rs.preCommits, voter, hash, isNil)
}

func recordVote(m map[primitives.OpId]voteEntry, voter primitives.OpId, hash primitives.Hash, isNil bool) bool {
	prior, existed := m[voter]
	if existed && !prior.nil {
		// Duplicate non-nil vote: idempotent, last non-nil wins only if
		// previous was nil — since prior was non-nil, this is a no-op.
		return false
	}
	m[voter] = voteEntry{hash: hash, nil: isNil}
	return true
}

// tallyNonNil counts votes for hash among m, ignoring nil votes.
func tallyNonNil(m map[primitives.OpId]voteEntry, vs *ValidatorSet, hash primitives.Hash) int {
	count := 0
	for voter, entry := range m {
		if entry.nil || entry.hash != hash {
			continue
		}
		if vs.Contains(voter) {
			count++
		}
	}
	return count
}
