package consensus

import (
	"fmt"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/registry"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// recordingBroadcaster fans every broadcast out to every other node's
// engine synchronously, modeling a fully-connected, zero-latency network
// for deterministic tests.
type recordingBroadcaster struct {
	engines []*Engine
	self    int
}

// Each Handle* call below ignores its own error and keeps fanning out to
// the remaining engines — a real gossip broadcast doesn't abort because
// one receiver's downstream processing failed, and this test's receivers
// can themselves trigger further broadcasts (e.g. a commit cascading into
// the next round's proposal) whose errors must not cut the fan-out short.

func (b *recordingBroadcaster) BroadcastPropose(msg ProposeMessage) error {
	for i, e := range b.engines {
		if i == b.self {
			continue
		}
		_ = e.HandlePropose(msg)
	}
	return nil
}

func (b *recordingBroadcaster) BroadcastPreVote(msg VoteMessage) error {
	for i, e := range b.engines {
		if i == b.self {
			continue
		}
		_ = e.HandlePreVote(msg)
	}
	return nil
}

func (b *recordingBroadcaster) BroadcastPreCommit(msg VoteMessage) error {
	for i, e := range b.engines {
		if i == b.self {
			continue
		}
		_ = e.HandlePreCommit(msg)
	}
	return nil
}

func (b *recordingBroadcaster) BroadcastViewChange(ViewChangeMessage) error { return nil }

func buildTestCluster(t *testing.T, n int) ([]*Engine, *ValidatorSet) {
	t.Helper()

	ids := make([]primitives.OpId, n)
	keys := make([]*bls.PrivateKey, n)
	weights := map[primitives.OpId]uint64{}
	reg := registry.New()

	for i := 0; i < n; i++ {
		ids[i] = primitives.NewOperator(string(rune('A'+i)), "DE")
		sk, pk, err := bls.GenerateKeyPair()
		if err != nil {
			t.Fatalf("generate key pair: %v", err)
		}
		keys[i] = sk
		weights[ids[i]] = 1
		if err := reg.Register(ids[i], pk); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	validators := NewValidatorSet(weights)

	engines := make([]*Engine, n)
	for i := 0; i < n; i++ {
		store := chainstore.New(chainstore.NewDBKV(dbm.NewMemDB()))
		broadcaster := &recordingBroadcaster{self: i}
		// Refuse to build past height 1: this test's recordingBroadcaster
		// fans out synchronously in-process, so a real commit would
		// otherwise cascade directly into proposing the next height
		// in-stack with no pacing. Production nodes are paced by block
		// time and real network latency instead.
		build := func(height uint64) (*chainstore.Block, error) {
			if height > 1 {
				return nil, fmt.Errorf("test harness stops at height 1")
			}
			return chainstore.NewMicroBlock(chainstore.Header{BlockNumber: height, Network: "test"}, nil), nil
		}
		engines[i] = NewEngine(ids[i], keys[i], validators, reg, store, broadcaster, build)
		broadcaster.engines = engines
	}
	return engines, validators
}

func TestEngineCommitsWithQuorum(t *testing.T) {
	engines, validators := buildTestCluster(t, 4)

	// Every engine enters round 0 at height 1 locally first (simulating
	// each node's own clock reaching the same height), then the round's
	// proposer broadcasts — this ordering only matters because this test
	// drives several engines from one goroutine; a real deployment has no
	// such ordering dependency since each node only ever observes its own
	// enterRound call.
	for _, e := range engines {
		e.enterRound(1, 0)
	}
	proposer := validators.Proposer(0)
	for _, e := range engines {
		if e.self == proposer {
			// The call chain commits height 1 synchronously and then
			// cascades into proposing height 2, which the test harness's
			// build function deliberately refuses — that expected error
			// surfaces here after height 1 has already been durably
			// committed on every engine.
			_ = e.proposeIfLeader()
		}
	}

	for i, e := range engines {
		head, err := e.store.GetHead()
		if err != nil {
			t.Fatalf("engine %d: get head: %v", i, err)
		}
		block, err := e.store.GetBlock(head)
		if err != nil {
			t.Fatalf("engine %d: get block: %v", i, err)
		}
		if block.BlockNumber() != 1 {
			t.Errorf("engine %d: committed block number = %d, want 1", i, block.BlockNumber())
		}
	}
}

func TestProposerSelectionRoundRobin(t *testing.T) {
	weights := map[primitives.OpId]uint64{
		primitives.NewOperator("A", "DE"): 1,
		primitives.NewOperator("B", "DE"): 1,
		primitives.NewOperator("C", "DE"): 1,
	}
	vs := NewValidatorSet(weights)
	seen := map[primitives.OpId]bool{}
	for r := uint32(0); r < uint32(vs.Len()); r++ {
		seen[vs.Proposer(r)] = true
	}
	if len(seen) != vs.Len() {
		t.Errorf("expected every validator to be proposer exactly once across %d rounds", vs.Len())
	}
}

func TestCheckTimeoutTriggersViewChange(t *testing.T) {
	engines, validators := buildTestCluster(t, 4)
	e := engines[0]
	// Force self to not be the round-0 proposer's engine by starting
	// directly at a round whose proposer is someone else, so no proposal
	// arrives and the round genuinely times out.
	nonProposerRound := uint32(0)
	for r := uint32(0); r < uint32(validators.Len()); r++ {
		if validators.Proposer(r) != e.self {
			nonProposerRound = r
			break
		}
	}
	if err := e.startRoundAt(1, nonProposerRound); err != nil {
		t.Fatalf("start round: %v", err)
	}
	e.roundTimeout = 0
	if err := e.CheckTimeout(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("check timeout: %v", err)
	}
	if e.state.Round != nonProposerRound+1 {
		t.Errorf("round = %d, want %d after view change", e.state.Round, nonProposerRound+1)
	}
}
