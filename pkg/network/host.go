// Copyright 2025 SP Consortium
package network

import (
	"context"
	"fmt"
	"log"
	"os"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	multiaddr "github.com/multiformats/go-multiaddr"
)

// HostConfig configures the local libp2p node. ListenPort 0 picks a random
// free port, matching the teacher's convention of a dev-friendly default.
type HostConfig struct {
	ListenPort int
	Bootstrap  []string
	Logger     *log.Logger
}

// NewHost constructs a libp2p host over TCP with Noise-encrypted
// transport, per spec §6. The protocol itself is advertised by the
// gossipsub router constructed on top (see pubsub.go); this function only
// owns transport/identity/listen-address concerns.
func NewHost(cfg HostConfig) (host.Host, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[network] ", log.LstdFlags)
	}
	listenAddr, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.ListenPort))
	if err != nil {
		return nil, fmt.Errorf("network: build listen addr: %w", err)
	}
	h, err := libp2p.New(
		libp2p.ListenAddrs(listenAddr),
		libp2p.Security(noise.ID, noise.New),
	)
	if err != nil {
		return nil, fmt.Errorf("network: construct host: %w", err)
	}
	cfg.Logger.Printf("host %s listening on %v", h.ID(), h.Addrs())
	return h, nil
}

// DialBootstrap connects to every bootstrap multiaddress, logging (not
// failing) on individual dial errors — a consortium node should come up
// even if some peers are temporarily unreachable, matching spec §6's
// resilience-over-strictness stance on discovery.
func DialBootstrap(ctx context.Context, h host.Host, addrs []string, logger *log.Logger) {
	for _, raw := range addrs {
		maddr, err := multiaddr.NewMultiaddr(raw)
		if err != nil {
			logger.Printf("bootstrap addr %q: parse error: %v", raw, err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			// Bare host:port addresses (no /p2p/<id> suffix) can't resolve
			// to a peer.AddrInfo; skip rather than fail the whole dial pass.
			logger.Printf("bootstrap addr %q: no peer id, skipping direct dial", raw)
			continue
		}
		h.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)
		if err := h.Connect(ctx, *info); err != nil {
			logger.Printf("bootstrap dial %s: %v", info.ID, err)
			continue
		}
		logger.Printf("connected to bootstrap peer %s", info.ID)
	}
}
