// Copyright 2025 SP Consortium
//
// Package registry maps consortium operator identities to their registered
// BLS public keys. Consensus (C5) uses it to verify proposal and vote
// signatures against the validator set; settlement (C7) uses it to verify
// acceptance signatures from counterparties.
package registry

import (
	"fmt"
	"sync"

	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// Registry is a read-mostly operator -> public key map, safe for concurrent
// use. Per spec §5, updates happen only at election blocks, serialized
// through consensus; reads happen continuously from the hot path.
type Registry struct {
	mu   sync.RWMutex
	keys map[primitives.OpId]*bls.PublicKey
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{keys: make(map[primitives.OpId]*bls.PublicKey)}
}

// Register associates an operator with a public key, validating that the
// key decodes to a well-formed, in-subgroup G2 point before accepting it.
func (r *Registry) Register(op primitives.OpId, pk *bls.PublicKey) error {
	if pk == nil {
		return fmt.Errorf("registry: nil public key for %s", op)
	}
	if err := bls.ValidateBLSPublicKeySubgroup(pk.Bytes()); err != nil {
		return fmt.Errorf("registry: register %s: %w", op, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[op] = pk
	return nil
}

// Lookup returns the registered public key for op, if any.
func (r *Registry) Lookup(op primitives.OpId) (*bls.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pk, ok := r.keys[op]
	return pk, ok
}

// Remove deregisters an operator, e.g. when jailed at an election block.
func (r *Registry) Remove(op primitives.OpId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, op)
}

// Operators returns the currently registered operator identities. The
// order is unspecified; callers that need determinism (proposer selection)
// must sort the result themselves.
func (r *Registry) Operators() []primitives.OpId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]primitives.OpId, 0, len(r.keys))
	for op := range r.keys {
		out = append(out, op)
	}
	return out
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// VerifySignedBy verifies that sig is a valid signature over message under
// domain, produced by op's registered key. Returns false (not an error) if
// op is unregistered — an unknown signer can never produce a valid vote.
func (r *Registry) VerifySignedBy(op primitives.OpId, message []byte, domain string, sig *bls.Signature) bool {
	pk, ok := r.Lookup(op)
	if !ok || sig == nil {
		return false
	}
	return pk.VerifyWithDomain(sig, message, domain)
}
