// Copyright 2025 SP Consortium
package network

import (
	"log"
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/pipeline"
)

func newTestRouter(events chan<- pipeline.NetworkEvent) *Router {
	r := &Router{
		joined: make(map[Topic]*joined),
		scores: NewScoreBoard(),
		logger: log.New(log.Writer(), "[network-test] ", 0),
	}
	if events != nil {
		r.SetEventSink(events)
	}
	return r
}

func TestDispatchForwardsBatchAnnounceToEventSink(t *testing.T) {
	events := make(chan pipeline.NetworkEvent, 1)
	r := newTestRouter(events)
	id := newTestPeerID(t)

	ann := pipeline.CDRBatchReady{RecordCount: 12, TotalAmountCents: 45000}
	payload, err := encodePayload(ann)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	env := Envelope{Topic: TopicCDR, Kind: KindBatchAnnounce, Payload: payload}

	if err := r.dispatch(env, id); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != pipeline.EventGossipReceived {
			t.Errorf("event kind = %s, want %s", ev.Kind, pipeline.EventGossipReceived)
		}
		if ev.BatchAnnounce == nil || ev.BatchAnnounce.RecordCount != 12 {
			t.Errorf("BatchAnnounce = %+v, want RecordCount 12", ev.BatchAnnounce)
		}
	default:
		t.Fatal("expected an event to be forwarded to the sink")
	}
}

func TestDispatchForwardsSettlementMessageToEventSink(t *testing.T) {
	events := make(chan pipeline.NetworkEvent, 1)
	r := newTestRouter(events)
	id := newTestPeerID(t)

	env := Envelope{Topic: TopicSettlement, Kind: KindSettlementMsg, Payload: []byte("opaque-wire-bytes")}
	if err := r.dispatch(env, id); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	select {
	case ev := <-events:
		if ev.SettlementMessage == nil || ev.SettlementMessage.Kind != string(KindSettlementMsg) {
			t.Errorf("SettlementMessage = %+v, want Kind %s", ev.SettlementMessage, KindSettlementMsg)
		}
	default:
		t.Fatal("expected a settlement event to be forwarded to the sink")
	}
}

func TestDispatchDropsEventWhenSinkUnset(t *testing.T) {
	r := newTestRouter(nil)
	id := newTestPeerID(t)

	env := Envelope{Topic: TopicSettlement, Kind: KindSettlementMsg, Payload: []byte("x")}
	if err := r.dispatch(env, id); err != nil {
		t.Fatalf("dispatch with no event sink should not error: %v", err)
	}
}

func TestDispatchDropsEventWhenSinkFull(t *testing.T) {
	events := make(chan pipeline.NetworkEvent, 1)
	events <- pipeline.NetworkEvent{Kind: pipeline.EventGossipReceived}
	r := newTestRouter(events)
	id := newTestPeerID(t)

	env := Envelope{Topic: TopicSettlement, Kind: KindSettlementMsg, Payload: []byte("x")}
	if err := r.dispatch(env, id); err != nil {
		t.Fatalf("dispatch over a full sink should not error, just drop: %v", err)
	}
}
