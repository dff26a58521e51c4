package network

import (
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/consensus"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	vote := consensus.VoteMessage{
		Voter:  primitives.NewOperator("T-Mobile", "DE"),
		Height: 7,
		Round:  2,
	}
	payload, err := encodePayload(vote)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	env := Envelope{Topic: TopicConsensus, Kind: KindPreVote, Payload: payload}

	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	decoded, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if decoded.Topic != TopicConsensus || decoded.Kind != KindPreVote {
		t.Fatalf("topic/kind mismatch: %+v", decoded)
	}

	var got consensus.VoteMessage
	if err := decodePayload(decoded.Payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.Voter != vote.Voter || got.Height != vote.Height || got.Round != vote.Round {
		t.Errorf("got %+v, want %+v", got, vote)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not a gob stream")); err == nil {
		t.Error("expected decode error for malformed bytes")
	}
}
