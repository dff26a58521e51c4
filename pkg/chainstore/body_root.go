// Copyright 2025 SP Consortium
//
// BodyRoot computation and transaction inclusion proofs over a block's
// transaction list, built on pkg/merkle. Lets an operator prove a single
// CDR or settlement transaction was included in a committed block without
// handing over the rest of the block body.
package chainstore

import (
	"fmt"

	"github.com/sp-cdr/consortium-chain/pkg/merkle"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// transactionLeaves hashes each transaction into a 32-byte Merkle leaf, in
// block order.
func transactionLeaves(txs []Transaction) ([][]byte, error) {
	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		h, err := primitives.HashJSON(tx)
		if err != nil {
			return nil, fmt.Errorf("hash transaction %d: %w", i, err)
		}
		b := h.Bytes()
		leaves[i] = b
	}
	return leaves, nil
}

// ComputeBodyRoot returns the Merkle root of txs' transaction hashes, for
// populating Header.BodyRoot. An empty body hashes to the zero hash —
// there is nothing to commit to.
func ComputeBodyRoot(txs []Transaction) (primitives.Hash, error) {
	if len(txs) == 0 {
		return primitives.Hash{}, nil
	}
	leaves, err := transactionLeaves(txs)
	if err != nil {
		return primitives.Hash{}, err
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return primitives.Hash{}, fmt.Errorf("build body tree: %w", err)
	}
	root, ok := primitives.HashFromBytes(tree.Root())
	if !ok {
		return primitives.Hash{}, fmt.Errorf("unexpected body root length")
	}
	return root, nil
}

// NewMicroBlockWithRoot builds a Micro block the way NewMicroBlock does,
// additionally computing header.BodyRoot from txs before assembly.
func NewMicroBlockWithRoot(header Header, txs []Transaction) (*Block, error) {
	root, err := ComputeBodyRoot(txs)
	if err != nil {
		return nil, err
	}
	header.BodyRoot = root
	return NewMicroBlock(header, txs), nil
}

// NewMacroBlockWithRoot builds a Macro block the way NewMacroBlock does,
// additionally computing header.BodyRoot from txs before assembly.
func NewMacroBlockWithRoot(header Header, validators []ValidatorInfo, lostReward, disabled []primitives.Hash, txs []Transaction) (*Block, error) {
	root, err := ComputeBodyRoot(txs)
	if err != nil {
		return nil, err
	}
	header.BodyRoot = root
	return NewMacroBlock(header, validators, lostReward, disabled, txs), nil
}

// TransactionReceipt builds a portable Merkle receipt proving that the
// transaction at txIndex was included in the block stored under
// blockHash, verifiable against header.BodyRoot without access to the
// store.
func (s *Store) TransactionReceipt(blockHash primitives.Hash, txIndex int) (*merkle.Receipt, error) {
	block, err := s.GetBlock(blockHash)
	if err != nil {
		return nil, err
	}
	txs := block.Transactions()
	if txIndex < 0 || txIndex >= len(txs) {
		return nil, fmt.Errorf("chainstore: transaction index %d out of range [0, %d)", txIndex, len(txs))
	}

	leaves, err := transactionLeaves(txs)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("build body tree: %w", err)
	}
	proof, err := tree.GenerateProof(txIndex)
	if err != nil {
		return nil, fmt.Errorf("generate inclusion proof: %w", err)
	}

	entries := make([]merkle.ReceiptEntry, len(proof.Path))
	for i, node := range proof.Path {
		entries[i] = merkle.ReceiptEntry{
			Hash:  node.Hash,
			Right: node.Position == merkle.Right,
		}
	}

	return &merkle.Receipt{
		Start:      proof.LeafHash,
		Anchor:     proof.MerkleRoot,
		LocalBlock: block.BlockNumber(),
		Entries:    entries,
	}, nil
}
