// Copyright 2025 SP Consortium
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/registry"
	"github.com/sp-cdr/consortium-chain/pkg/errkind"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// Broadcaster is the narrow capability the engine needs from the network
// layer (C6); cmd/cdrnode wires in pkg/network's libp2p-backed Router,
// tests wire a recording fake.
type Broadcaster interface {
	BroadcastPropose(ProposeMessage) error
	BroadcastPreVote(VoteMessage) error
	BroadcastPreCommit(VoteMessage) error
	BroadcastViewChange(ViewChangeMessage) error
}

// ProposalBuilder assembles the block to propose at the given height. The
// builder cmd/cdrnode supplies returns an empty micro block; it does not
// draw on the pipeline coordinator's pending batches or settlements.
type ProposalBuilder func(height uint64) (*chainstore.Block, error)

// Engine drives one node's three-phase BFT state machine. It is not
// goroutine-safe internally by design — per spec §5 it is driven
// exclusively by the single-threaded pipeline coordinator's event loop, so
// no locking is needed.
type Engine struct {
	self       primitives.OpId
	selfKey    *bls.PrivateKey
	validators *ValidatorSet
	registry   *registry.Registry
	store      *chainstore.Store
	broadcast  Broadcaster
	buildBlock ProposalBuilder

	roundTimeout time.Duration
	state        *RoundState

	// OnCommit, if set, is invoked synchronously after a block is applied,
	// so the pipeline coordinator can react (e.g. clear settled batches).
	OnCommit func(block *chainstore.Block, hash primitives.Hash)
}

// NewEngine constructs an Engine for self. The chain's head height is read
// from store later, when StartRound is called.
func NewEngine(self primitives.OpId, selfKey *bls.PrivateKey, validators *ValidatorSet, reg *registry.Registry, store *chainstore.Store, broadcast Broadcaster, buildBlock ProposalBuilder) *Engine {
	return &Engine{
		self:         self,
		selfKey:      selfKey,
		validators:   validators,
		registry:     reg,
		store:        store,
		broadcast:    broadcast,
		buildBlock:   buildBlock,
		roundTimeout: primitives.ConsensusRoundTimeout,
	}
}

// currentHeight reads the store's head and returns the next height to
// propose for (1 if the chain is empty).
func (e *Engine) currentHeight() uint64 {
	head, err := e.store.GetHead()
	if err != nil {
		return 1
	}
	block, err := e.store.GetBlock(head)
	if err != nil {
		return 1
	}
	return block.BlockNumber() + 1
}

// StartRound begins round 0 at the next height, and proposes immediately
// if self is the round's proposer.
func (e *Engine) StartRound() error {
	height := e.currentHeight()
	return e.startRoundAt(height, 0)
}

func (e *Engine) startRoundAt(height uint64, round uint32) error {
	e.enterRound(height, round)
	return e.proposeIfLeader()
}

// enterRound resets local round state without proposing; split out from
// startRoundAt so every node in a round can initialize its state before
// the round's proposer sends its broadcast (real deployments don't need
// this ordering since nodes are never simultaneous with themselves, but
// test harnesses driving several engines in one process do).
func (e *Engine) enterRound(height uint64, round uint32) {
	e.state = NewRoundState(height, round)
}

// proposeIfLeader builds and broadcasts a proposal if self is the current
// round's proposer; a no-op otherwise.
func (e *Engine) proposeIfLeader() error {
	if e.validators.Proposer(e.state.Round) != e.self {
		return nil
	}
	block, err := e.buildBlock(e.state.Height)
	if err != nil {
		return errkind.New(errkind.Consensus, "StartRound", fmt.Errorf("build proposal: %w", err))
	}
	hash, err := block.Hash()
	if err != nil {
		return errkind.New(errkind.Serialization, "StartRound", err)
	}
	e.state.ProposedBlock = block
	e.state.ProposedHash = hash
	sig := SignPropose(e.selfKey, hash, e.state.Round)
	return e.broadcast.BroadcastPropose(ProposeMessage{Block: block, Height: e.state.Height, Round: e.state.Round, Proposer: e.self, Signature: sig.Bytes()})
}

// HandlePropose processes an incoming proposal: verifies the proposer is
// correct for the round and the signature is valid, then validates the
// block body. A proposal for the current height and round always gets a
// pre-vote broadcast (nil on any failure); a valid one is also recorded as
// this node's own pre-vote. Other proposals are discarded silently.
func (e *Engine) HandlePropose(msg ProposeMessage) error {
	if e.state == nil || msg.Round != e.state.Round || msg.Height != e.state.Height {
		return nil // wrong round/height, discarded per spec §4.2
	}
	if e.validators.Proposer(msg.Round) != msg.Proposer {
		return e.castNilPreVote()
	}
	proposerKey, ok := e.registry.Lookup(msg.Proposer)
	if !ok {
		return e.castNilPreVote()
	}
	hash, err := msg.Block.Hash()
	if err != nil {
		return e.castNilPreVote()
	}
	sig, err := bls.SignatureFromBytes(msg.Signature)
	if err != nil || !VerifyPropose(proposerKey, hash, msg.Round, sig) {
		return e.castNilPreVote()
	}
	if !validateBlockBody(msg.Block) {
		return e.castNilPreVote()
	}

	e.state.ProposedBlock = msg.Block
	e.state.ProposedHash = hash
	e.state.recordPreVote(e.self, hash, false)
	preVoteSig := SignPreVote(e.selfKey, hash, msg.Round)
	return e.broadcast.BroadcastPreVote(VoteMessage{Voter: e.self, Hash: hash, Height: msg.Height, Round: msg.Round, Signature: preVoteSig.Bytes()})
}

func (e *Engine) castNilPreVote() error {
	return e.broadcast.BroadcastPreVote(VoteMessage{Voter: e.self, Height: e.state.Height, Round: e.state.Round})
}

// validateBlockBody runs structural validation over the proposed block's
// transactions (fee/signature invariants from spec §3); proof and
// conservation checks for CDR/settlement transactions happen earlier, in
// the pipeline coordinator's batch-acceptance path, per spec §4.4.
func validateBlockBody(block *chainstore.Block) bool {
	for _, tx := range block.Transactions() {
		if !tx.IsValid() {
			return false
		}
	}
	return true
}

// HandlePreVote tallies an incoming pre-vote and transitions to PreCommit
// once quorum is reached for a single non-nil hash.
func (e *Engine) HandlePreVote(msg VoteMessage) error {
	if e.state == nil || msg.Round != e.state.Round || msg.Height != e.state.Height || !e.validators.Contains(msg.Voter) {
		return nil
	}
	if !msg.IsNil() {
		voterKey, ok := e.registry.Lookup(msg.Voter)
		if !ok {
			return nil
		}
		sig, err := bls.SignatureFromBytes(msg.Signature)
		if err != nil || !VerifyPreVote(voterKey, msg.Hash, msg.Round, sig) {
			return nil
		}
	}
	if !e.state.recordPreVote(msg.Voter, msg.Hash, msg.IsNil()) {
		return nil
	}
	if e.state.Phase != PhasePropose && e.state.Phase != PhasePreVote {
		return nil
	}
	if msg.IsNil() {
		return nil // nil pre-votes count toward timeout only, never quorum
	}

	quorum := primitives.Quorum(e.validators.Len())
	if tallyNonNil(e.state.preVotes, e.validators, msg.Hash) < quorum {
		return nil
	}
	e.state.Phase = PhasePreCommit
	e.state.recordPreCommit(e.self, msg.Hash, false)
	e.state.committedPreCommit = true
	preCommitSig := SignPreCommit(e.selfKey, msg.Hash, msg.Round)
	if err := e.broadcast.BroadcastPreCommit(VoteMessage{Voter: e.self, Hash: msg.Hash, Height: msg.Height, Round: msg.Round, Signature: preCommitSig.Bytes()}); err != nil {
		return err
	}
	// Our own pre-commit may complete a quorum whose other pre-commits
	// arrived earlier; skip if the round already moved on meanwhile.
	if e.state.Height == msg.Height && e.state.Phase == PhasePreCommit && tallyNonNil(e.state.preCommits, e.validators, msg.Hash) >= quorum {
		return e.commit(msg.Hash)
	}
	return nil
}

// HandlePreCommit tallies an incoming pre-commit and commits the block
// once quorum is reached.
func (e *Engine) HandlePreCommit(msg VoteMessage) error {
	if e.state == nil || msg.Round != e.state.Round || msg.Height != e.state.Height || !e.validators.Contains(msg.Voter) {
		return nil
	}
	if !msg.IsNil() {
		voterKey, ok := e.registry.Lookup(msg.Voter)
		if !ok {
			return nil
		}
		sig, err := bls.SignatureFromBytes(msg.Signature)
		if err != nil || !VerifyPreCommit(voterKey, msg.Hash, msg.Round, sig) {
			return nil
		}
	}
	if !e.state.recordPreCommit(msg.Voter, msg.Hash, msg.IsNil()) {
		return nil
	}
	if msg.IsNil() {
		return nil
	}

	quorum := primitives.Quorum(e.validators.Len())
	if tallyNonNil(e.state.preCommits, e.validators, msg.Hash) < quorum {
		return nil
	}
	return e.commit(msg.Hash)
}

func (e *Engine) commit(hash primitives.Hash) error {
	if e.state.ProposedBlock == nil || e.state.ProposedHash != hash {
		return errkind.New(errkind.Consensus, "commit", errors.New("quorum reached for a block this node never saw"))
	}
	block := e.state.ProposedBlock
	committedHash, err := e.store.PutBlock(block)
	if err != nil {
		return errkind.New(errkind.Storage, "commit", err)
	}
	e.state.Phase = PhaseCommit
	if e.OnCommit != nil {
		e.OnCommit(block, committedHash)
	}
	return e.startRoundAt(block.BlockNumber()+1, 0)
}

// CheckTimeout advances to the next round via view change if the current
// round has exceeded roundTimeout without reaching Commit.
func (e *Engine) CheckTimeout(now time.Time) error {
	if e.state == nil || e.state.Phase == PhaseCommit {
		return nil
	}
	if now.Sub(e.state.RoundStart) < e.roundTimeout {
		return nil
	}
	if err := e.broadcast.BroadcastViewChange(ViewChangeMessage{
		Round: e.state.Round, Height: e.state.Height, Reason: ReasonTimeout, Voter: e.self,
	}); err != nil {
		return errkind.New(errkind.Network, "CheckTimeout", err)
	}
	return e.startRoundAt(e.state.Height, e.state.Round+1)
}

// State returns the current round's state, for observability/testing.
func (e *Engine) State() *RoundState { return e.state }
