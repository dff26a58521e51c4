// Copyright 2025 SP Consortium
package network

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/sp-cdr/consortium-chain/pkg/consensus"
	"github.com/sp-cdr/consortium-chain/pkg/pipeline"
)

var allTopics = []Topic{TopicConsensus, TopicSettlement, TopicCDR, TopicZKP}

// joined holds one gossipsub topic handle plus its subscription.
type joined struct {
	topic *pubsub.Topic
	sub   *pubsub.Subscription
}

// Router joins all four consortium topics over gossipsub and dispatches
// incoming envelopes to registered handlers. It is the concrete transport
// behind pkg/consensus.Broadcaster, per spec §6.
type Router struct {
	ctx    context.Context
	host   host.Host
	ps     *pubsub.PubSub
	joined map[Topic]*joined
	scores *ScoreBoard
	logger *log.Logger

	// engine receives decoded consensus messages; nil until SetEngine is
	// called (cmd/cdrnode does so after constructing the engine, since the
	// engine and router each need a reference to the other).
	engine ConsensusReceiver

	// events forwards decoded batch/settlement gossip into the pipeline
	// coordinator's run loop; nil until wired by SetEventSink.
	events chan<- pipeline.NetworkEvent
}

// ConsensusReceiver is the subset of *consensus.Engine the router dispatches
// decoded wire messages into.
type ConsensusReceiver interface {
	HandlePropose(consensus.ProposeMessage) error
	HandlePreVote(consensus.VoteMessage) error
	HandlePreCommit(consensus.VoteMessage) error
}

// NewRouter constructs a gossipsub router over h and joins every
// consortium topic.
func NewRouter(ctx context.Context, h host.Host, logger *log.Logger) (*Router, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[network] ", log.LstdFlags)
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("network: construct gossipsub: %w", err)
	}
	r := &Router{
		ctx:    ctx,
		host:   h,
		ps:     ps,
		joined: make(map[Topic]*joined),
		scores: NewScoreBoard(),
		logger: logger,
	}
	for _, t := range allTopics {
		if err := r.join(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Router) join(t Topic) error {
	topic, err := r.ps.Join(string(t))
	if err != nil {
		return fmt.Errorf("network: join topic %s: %w", t, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return fmt.Errorf("network: subscribe topic %s: %w", t, err)
	}
	r.joined[t] = &joined{topic: topic, sub: sub}
	go r.readLoop(t, sub)
	return nil
}

// SetEngine wires the consensus engine this router dispatches into. Must be
// called before consensus messages can be processed.
func (r *Router) SetEngine(e ConsensusReceiver) { r.engine = e }

// SetEventSink wires the channel the coordinator's Run loop reads from
// (pkg/pipeline's C8), so batch/settlement gossip reaches
// handle_network_event instead of being dropped at the transport layer.
// Must be called before the coordinator can observe gossip from peers.
func (r *Router) SetEventSink(events chan<- pipeline.NetworkEvent) { r.events = events }

func (r *Router) readLoop(t Topic, sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(r.ctx)
		if err != nil {
			// Context canceled (shutdown) or subscription closed; either
			// way there is nothing left to read.
			return
		}
		if msg.ReceivedFrom == r.host.ID() {
			continue
		}
		if r.scores.IsBanned(msg.ReceivedFrom) {
			continue
		}
		env, err := DecodeEnvelope(msg.Data)
		if err != nil {
			r.scores.PenalizeInvalid(msg.ReceivedFrom)
			continue
		}
		if err := r.dispatch(env, msg.ReceivedFrom); err != nil {
			r.scores.PenalizeInvalid(msg.ReceivedFrom)
			r.logger.Printf("dispatch %s/%s from %s: %v", env.Topic, env.Kind, msg.ReceivedFrom, err)
			continue
		}
		r.scores.RewardValid(msg.ReceivedFrom)
	}
}

func (r *Router) dispatch(env Envelope, from peer.ID) error {
	switch env.Kind {
	case KindPropose:
		if r.engine == nil {
			return nil
		}
		var m consensus.ProposeMessage
		if err := decodePayload(env.Payload, &m); err != nil {
			return err
		}
		return r.engine.HandlePropose(m)
	case KindPreVote:
		if r.engine == nil {
			return nil
		}
		var m consensus.VoteMessage
		if err := decodePayload(env.Payload, &m); err != nil {
			return err
		}
		return r.engine.HandlePreVote(m)
	case KindPreCommit:
		if r.engine == nil {
			return nil
		}
		var m consensus.VoteMessage
		if err := decodePayload(env.Payload, &m); err != nil {
			return err
		}
		return r.engine.HandlePreCommit(m)
	case KindBatchAnnounce:
		var ann pipeline.CDRBatchReady
		if err := decodePayload(env.Payload, &ann); err != nil {
			return err
		}
		r.forwardEvent(pipeline.NetworkEvent{Kind: pipeline.EventGossipReceived, Peer: from.String(), BatchAnnounce: &ann})
		return nil
	case KindSettlementMsg:
		r.forwardEvent(pipeline.NetworkEvent{
			Kind: pipeline.EventGossipReceived,
			Peer: from.String(),
			SettlementMessage: &pipeline.SettlementEnvelope{Kind: string(env.Kind), Payload: env.Payload},
		})
		return nil
	default:
		// View changes and sync messages have no coordinator-side handler
		// yet; nothing to forward.
		return nil
	}
}

// forwardEvent delivers ev to the coordinator's event channel without
// blocking the gossipsub read loop; a full channel means the coordinator
// is falling behind; the event is dropped and logged rather than stalling
// every topic's delivery.
func (r *Router) forwardEvent(ev pipeline.NetworkEvent) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Printf("event sink full, dropping %s event from %s", ev.Kind, ev.Peer)
	}
}

// publish encodes and publishes an envelope on its topic.
func (r *Router) publish(t Topic, kind MessageKind, body interface{}) error {
	payload, err := encodePayload(body)
	if err != nil {
		return err
	}
	env := Envelope{Topic: t, Kind: kind, Payload: payload}
	raw, err := env.Encode()
	if err != nil {
		return err
	}
	j, ok := r.joined[t]
	if !ok {
		return fmt.Errorf("network: topic %s not joined", t)
	}
	return j.topic.Publish(r.ctx, raw)
}

// BroadcastPropose implements consensus.Broadcaster.
func (r *Router) BroadcastPropose(msg consensus.ProposeMessage) error {
	return r.publish(TopicConsensus, KindPropose, msg)
}

// BroadcastPreVote implements consensus.Broadcaster.
func (r *Router) BroadcastPreVote(msg consensus.VoteMessage) error {
	return r.publish(TopicConsensus, KindPreVote, msg)
}

// BroadcastPreCommit implements consensus.Broadcaster.
func (r *Router) BroadcastPreCommit(msg consensus.VoteMessage) error {
	return r.publish(TopicConsensus, KindPreCommit, msg)
}

// BroadcastViewChange implements consensus.Broadcaster.
func (r *Router) BroadcastViewChange(msg consensus.ViewChangeMessage) error {
	return r.publish(TopicConsensus, KindViewChange, msg)
}

// PublishSettlement broadcasts a settlement-negotiation message (C7's
// wire format) on the settlement topic.
func (r *Router) PublishSettlement(body interface{}) error {
	return r.publish(TopicSettlement, KindSettlementMsg, body)
}

// PublishBatchAnnounce broadcasts a CDR batch commitment announcement on
// the cdr topic.
func (r *Router) PublishBatchAnnounce(body interface{}) error {
	return r.publish(TopicCDR, KindBatchAnnounce, body)
}

// PublishZKProofRequest broadcasts a proof-request message on the zkp
// topic, e.g. asking a counterparty to produce a netting proof.
func (r *Router) PublishZKProofRequest(body interface{}) error {
	return r.publish(TopicZKP, KindZKProofRequest, body)
}

// Scores exposes the router's peer score board for inspection/tests.
func (r *Router) Scores() *ScoreBoard { return r.scores }

// Close tears down every joined topic and its subscription.
func (r *Router) Close() {
	for _, j := range r.joined {
		j.sub.Cancel()
		_ = j.topic.Close()
	}
}

var _ consensus.Broadcaster = (*Router)(nil)
