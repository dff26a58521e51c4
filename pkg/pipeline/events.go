// Copyright 2025 SP Consortium
//
// Package pipeline implements the single-threaded cooperative event-loop
// coordinator (C8), per spec §4.4. Grounded on the teacher's
// pkg/batch/scheduler.go ticker-driven run loop and pkg/batch/collector.go
// in-flight-work-table idiom, generalized from anchor-batch scheduling to
// CDR-batch/settlement scheduling.
package pipeline

import (
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// EventKind tags the NetworkEvent sum type from spec §4.4.
type EventKind string

const (
	EventPeerConnected    EventKind = "peer_connected"
	EventPeerDisconnected EventKind = "peer_disconnected"
	EventMessageReceived  EventKind = "message_received"
	EventGossipReceived   EventKind = "gossip_received"
)

// NetworkEvent is handed to handle_network_event by the network layer
// (C6); the coordinator never talks to libp2p directly.
type NetworkEvent struct {
	Kind EventKind
	Peer string // peer ID string, for PeerConnected/PeerDisconnected

	// BatchAnnounce is set for a GossipReceived carrying a
	// CDRBatchReady announcement.
	BatchAnnounce *CDRBatchReady

	// SettlementMessage is set for a MessageReceived/GossipReceived
	// carrying a settlement-negotiation wire message, routed to C7
	// without further interpretation by the coordinator.
	SettlementMessage *SettlementEnvelope
}

// CDRBatchReady announces a finished CDR batch with its circuit-P proof
// and the public inputs the coordinator must re-derive and check, per
// spec §4.4's "Batch acceptance" privacy firewall.
type CDRBatchReady struct {
	BatchID          primitives.Hash
	NetworkPair      primitives.OperatorPair
	RecordCount      uint64
	TotalAmountCents uint64
	Proof            []byte
	PeriodHash       primitives.Hash
}

// SettlementEnvelope carries one of the C7 wire messages
// (InitiateSettlement/CounterOffer/DisputeInitiation/...); the coordinator
// forwards the opaque payload to C7 by kind, matching pkg/network's
// Envelope/Kind split so the two layers agree on what "kind" means.
type SettlementEnvelope struct {
	Kind    string
	Payload []byte
}
