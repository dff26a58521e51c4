// Copyright 2025 SP Consortium
package consensus

import (
	"encoding/binary"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// leRound little-endian encodes round, matching spec §4.2's "LE(round)"
// notation for the signed-message construction.
func leRound(round uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], round)
	return b[:]
}

// ProposeMessage is the round's proposer broadcast, signed over
// hash(block) ∥ LE(round).
type ProposeMessage struct {
	Block     *chainstore.Block
	Height    uint64
	Round     uint32
	Proposer  primitives.OpId
	Signature []byte
}

// SignedMessage for Propose: hash(block) ∥ LE(round).
func proposeSignPayload(blockHash primitives.Hash, round uint32) []byte {
	return append(blockHash.Bytes(), leRound(round)...)
}

// SignPropose signs a block proposal with signer's BLS key.
func SignPropose(signer *bls.PrivateKey, blockHash primitives.Hash, round uint32) *bls.Signature {
	return signer.SignWithDomain(proposeSignPayload(blockHash, round), bls.DomainPropose)
}

// VerifyPropose checks proposer's signature over the proposal.
func VerifyPropose(proposerKey *bls.PublicKey, blockHash primitives.Hash, round uint32, sig *bls.Signature) bool {
	return proposerKey.VerifyWithDomain(sig, proposeSignPayload(blockHash, round), bls.DomainPropose)
}

// VoteMessage is a PreVote or PreCommit: {hash, round, signature}. A nil
// vote has a zero hash and an empty signature, per spec §4.2.
type VoteMessage struct {
	Voter     primitives.OpId
	Hash      primitives.Hash
	Height    uint64
	Round     uint32
	Signature []byte
}

// IsNil reports whether this is a nil vote (the voter rejected the
// proposal in this round).
func (v VoteMessage) IsNil() bool { return v.Hash.IsZero() && len(v.Signature) == 0 }

func voteSignPayload(hash primitives.Hash, round uint32, phaseTag string) []byte {
	payload := append(hash.Bytes(), leRound(round)...)
	return append(payload, []byte(phaseTag)...)
}

// SignPreVote signs hash∥LE(round)∥"prevote".
func SignPreVote(signer *bls.PrivateKey, hash primitives.Hash, round uint32) *bls.Signature {
	return signer.SignWithDomain(voteSignPayload(hash, round, "prevote"), bls.DomainPrevote)
}

// VerifyPreVote checks a PreVote signature.
func VerifyPreVote(voterKey *bls.PublicKey, hash primitives.Hash, round uint32, sig *bls.Signature) bool {
	return voterKey.VerifyWithDomain(sig, voteSignPayload(hash, round, "prevote"), bls.DomainPrevote)
}

// SignPreCommit signs hash∥LE(round)∥"precommit".
func SignPreCommit(signer *bls.PrivateKey, hash primitives.Hash, round uint32) *bls.Signature {
	return signer.SignWithDomain(voteSignPayload(hash, round, "precommit"), bls.DomainPrecommit)
}

// VerifyPreCommit checks a PreCommit signature.
func VerifyPreCommit(voterKey *bls.PublicKey, hash primitives.Hash, round uint32, sig *bls.Signature) bool {
	return voterKey.VerifyWithDomain(sig, voteSignPayload(hash, round, "precommit"), bls.DomainPrecommit)
}

// ViewChangeMessage is broadcast when a round's timer expires without
// reaching Commit.
type ViewChangeMessage struct {
	Round  uint32
	Height uint64
	Reason ViewChangeReason
	Voter  primitives.OpId
}

// SyncRequest asks peers for blocks in [FromHeight, ToHeight]; ToHeight
// nil means "as many as you have".
type SyncRequest struct {
	FromHeight uint64
	ToHeight   *uint64
}

// SyncResponse answers a SyncRequest with the blocks the responder has in
// range, plus its own current height.
type SyncResponse struct {
	Blocks        []*chainstore.Block
	CurrentHeight uint64
}
