// Copyright 2025 SP Consortium
package network

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Score events. Misbehaving peers (invalid proposals, malformed envelopes,
// unverifiable signatures) are penalized; useful contributions (valid
// proposals, timely votes) are rewarded. This is deliberately minimal — not
// a full reputation system — supplementing the banning/reputation concept
// sketched in original_source/src/network/peer_discovery.rs's
// SPOperatorInfo.is_validator / last_seen bookkeeping, which the
// distillation otherwise dropped.
const (
	scoreRewardValid    = 1
	scorePenaltyInvalid = -5
	banThreshold        = -50
)

// ScoreBoard tracks a running reputation counter per peer and bans peers
// that fall below banThreshold. Safe for concurrent use.
type ScoreBoard struct {
	mu     sync.RWMutex
	scores map[peer.ID]int
	banned map[peer.ID]bool
}

// NewScoreBoard returns an empty board.
func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{
		scores: make(map[peer.ID]int),
		banned: make(map[peer.ID]bool),
	}
}

// RewardValid credits a peer for a well-formed, useful message.
func (s *ScoreBoard) RewardValid(id peer.ID) {
	s.adjust(id, scoreRewardValid)
}

// PenalizeInvalid debits a peer for a malformed or invalid message, banning
// it once its score crosses banThreshold.
func (s *ScoreBoard) PenalizeInvalid(id peer.ID) {
	s.adjust(id, scorePenaltyInvalid)
}

func (s *ScoreBoard) adjust(id peer.ID, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[id] += delta
	if s.scores[id] <= banThreshold {
		s.banned[id] = true
	}
}

// IsBanned reports whether id has been banned for sustained misbehavior.
func (s *ScoreBoard) IsBanned(id peer.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banned[id]
}

// Score returns a peer's current running score.
func (s *ScoreBoard) Score(id peer.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[id]
}
