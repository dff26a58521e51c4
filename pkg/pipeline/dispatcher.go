// Copyright 2025 SP Consortium
package pipeline

import (
	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
)

// ContractDispatcher is the trivial "smart contract" layer spec §9's
// design note (c) calls for: the source's stack-machine VM has no real
// security role since the ZK verifier is the actual trust anchor, so a
// faithful reimplementation reduces it to a single dispatch call into C4.
// No stack machine is implemented.
type ContractDispatcher interface {
	Dispatch(tx chainstore.Transaction) error
}

// ProofVerifier is the narrow capability the dispatcher needs from C4.
type ProofVerifier interface {
	VerifyCDRProof(tx chainstore.Transaction) error
}

// ZKDispatcher is the dispatcher's only real implementation: every
// CDRRecord/Settlement transaction is routed to the configured ProofVerifier;
// Basic and ValidatorUpdate transactions have no proof to check.
type ZKDispatcher struct {
	verifier ProofVerifier
}

// NewZKDispatcher constructs a dispatcher backed by verifier.
func NewZKDispatcher(verifier ProofVerifier) *ZKDispatcher {
	return &ZKDispatcher{verifier: verifier}
}

// Dispatch implements ContractDispatcher.
func (d *ZKDispatcher) Dispatch(tx chainstore.Transaction) error {
	switch tx.DataKind {
	case chainstore.DataCDRRecord, chainstore.DataSettlement:
		return d.verifier.VerifyCDRProof(tx)
	default:
		return nil
	}
}
