// Copyright 2025 SP Consortium
package consensus

import (
	"fmt"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/errkind"
)

// HandleSyncRequest walks the store from req.FromHeight to req.ToHeight (or
// the current head if unset), returning the blocks found. A lagging peer
// issues this to catch up; any peer may answer.
func (e *Engine) HandleSyncRequest(req SyncRequest) (SyncResponse, error) {
	head, err := e.store.GetHead()
	currentHeight := uint64(0)
	if err == nil {
		if block, err := e.store.GetBlock(head); err == nil {
			currentHeight = block.BlockNumber()
		}
	}

	to := currentHeight
	if req.ToHeight != nil && *req.ToHeight < to {
		to = *req.ToHeight
	}

	var blocks []*chainstore.Block
	for h := req.FromHeight; h <= to; h++ {
		block, err := e.blockAtHeight(h)
		if err != nil {
			if err == chainstore.ErrNotFound {
				continue
			}
			return SyncResponse{}, err
		}
		blocks = append(blocks, block)
	}
	return SyncResponse{Blocks: blocks, CurrentHeight: currentHeight}, nil
}

// blockAtHeight walks back from head by block number; chainstore has no
// height index, so this is a linear scan from head for the matching
// number. Acceptable for the sync path (infrequent, bounded by the lag),
// not used on the hot commit path.
func (e *Engine) blockAtHeight(height uint64) (*chainstore.Block, error) {
	hash, err := e.store.GetHead()
	if err != nil {
		return nil, err
	}
	for {
		block, err := e.store.GetBlock(hash)
		if err != nil {
			return nil, err
		}
		if block.BlockNumber() == height {
			return block, nil
		}
		if block.BlockNumber() < height {
			return nil, chainstore.ErrNotFound
		}
		hash = block.Header.ParentHash
	}
}

// ApplySyncResponse applies every received block through the same
// PutBlock path live consensus uses, in order, per spec §4.2 ("replay and
// live operation share validation").
func (e *Engine) ApplySyncResponse(resp SyncResponse) error {
	for _, block := range resp.Blocks {
		if _, err := e.store.PutBlock(block); err != nil {
			return errkind.New(errkind.Storage, "ApplySyncResponse", fmt.Errorf("apply synced block %d: %w", block.BlockNumber(), err))
		}
	}
	return nil
}
