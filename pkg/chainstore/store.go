// Copyright 2025 SP Consortium
//
// Store is the content-addressed, transactional chain store (C3). Key
// layout follows the prefix-plus-big-endian-height idiom the teacher uses
// in pkg/ledger/store.go: every key is a short ASCII prefix followed by
// raw bytes, and every write that must be atomic with another goes through
// one dbm.Batch.
package chainstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sp-cdr/consortium-chain/pkg/errkind"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

var (
	keyHeadPtr         = []byte("HEAD")
	keyMacroHeadPtr    = []byte("MACRO_HEAD")
	keyElectionHeadPtr = []byte("ELECTION_HEAD")

	prefixBlock        = []byte("BLOCK:")
	prefixContractCode = []byte("CODE:")
	prefixContractState = []byte("CSTATE:")
)

// ErrNotFound is returned by Get* accessors when the requested key has
// never been written.
var ErrNotFound = errors.New("chainstore: not found")

func blockKey(h primitives.Hash) []byte {
	return append(append([]byte{}, prefixBlock...), h[:]...)
}

func contractCodeKey(addr primitives.Hash) []byte {
	return append(append([]byte{}, prefixContractCode...), addr[:]...)
}

func contractStateKey(addr primitives.Hash, stateKey []byte) []byte {
	buf := make([]byte, 0, len(prefixContractState)+32+2+len(stateKey))
	buf = append(buf, prefixContractState...)
	buf = append(buf, addr[:]...)
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(len(stateKey)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, stateKey...)
	return buf
}

// Store implements the abstract chain-store operations of spec §4.5 over a
// KV backend. All exported methods are atomic per call; PutBlock additionally
// folds the election-head advance into the same batch as the block write
// when the block is a macro block carrying a validator set.
type Store struct {
	kv KV
}

// New returns a Store backed by kv (a GoLevelDB-backed dbm.DB in
// production, dbm.NewMemDB() in tests — see NewDBKV).
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// GetBlock returns the block stored under hash, or ErrNotFound.
func (s *Store) GetBlock(hash primitives.Hash) (*Block, error) {
	raw, err := s.kv.Get(blockKey(hash))
	if err != nil {
		return nil, errkind.New(errkind.Storage, "GetBlock", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	var block Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, errkind.New(errkind.Serialization, "GetBlock", err)
	}
	return &block, nil
}

// PutBlock hashes block, writes it keyed by that hash, and advances head
// (always) and macro_head (on macro blocks). If block is a macro block
// carrying a non-nil validator set — an election block per spec §3 — the
// election_head is advanced in the same batch: either both writes land or
// neither does, per spec §4.5's atomicity requirement.
func (s *Store) PutBlock(block *Block) (primitives.Hash, error) {
	hash, err := block.Hash()
	if err != nil {
		return primitives.Hash{}, errkind.New(errkind.Serialization, "PutBlock", err)
	}

	raw, err := json.Marshal(block)
	if err != nil {
		return primitives.Hash{}, errkind.New(errkind.Serialization, "PutBlock", err)
	}

	batch := s.kv.NewBatch()
	defer batch.Close()

	if err := batch.Set(blockKey(hash), raw); err != nil {
		return primitives.Hash{}, errkind.New(errkind.Storage, "PutBlock", err)
	}
	if err := batch.Set(keyHeadPtr, hash[:]); err != nil {
		return primitives.Hash{}, errkind.New(errkind.Storage, "PutBlock", err)
	}
	if block.Kind == KindMacro {
		if err := batch.Set(keyMacroHeadPtr, hash[:]); err != nil {
			return primitives.Hash{}, errkind.New(errkind.Storage, "PutBlock", err)
		}
		if block.Macro != nil && block.Macro.Validators != nil {
			if err := batch.Set(keyElectionHeadPtr, hash[:]); err != nil {
				return primitives.Hash{}, errkind.New(errkind.Storage, "PutBlock", err)
			}
		}
	}

	if err := batch.WriteSync(); err != nil {
		return primitives.Hash{}, errkind.New(errkind.Storage, "PutBlock", fmt.Errorf("commit batch: %w", err))
	}
	return hash, nil
}

func (s *Store) getPointer(key []byte, op string) (primitives.Hash, error) {
	raw, err := s.kv.Get(key)
	if err != nil {
		return primitives.Hash{}, errkind.New(errkind.Storage, op, err)
	}
	if raw == nil {
		return primitives.Hash{}, ErrNotFound
	}
	h, ok := primitives.HashFromBytes(raw)
	if !ok {
		return primitives.Hash{}, errkind.New(errkind.Serialization, op, fmt.Errorf("corrupt pointer value, length %d", len(raw)))
	}
	return h, nil
}

func (s *Store) setPointer(key []byte, hash primitives.Hash, op string) error {
	batch := s.kv.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, hash[:]); err != nil {
		return errkind.New(errkind.Storage, op, err)
	}
	if err := batch.WriteSync(); err != nil {
		return errkind.New(errkind.Storage, op, err)
	}
	return nil
}

// GetHead returns the chain head pointer.
func (s *Store) GetHead() (primitives.Hash, error) { return s.getPointer(keyHeadPtr, "GetHead") }

// SetHead idempotently sets the chain head pointer.
func (s *Store) SetHead(hash primitives.Hash) error { return s.setPointer(keyHeadPtr, hash, "SetHead") }

// GetMacroHead returns the most recent macro block's hash.
func (s *Store) GetMacroHead() (primitives.Hash, error) {
	return s.getPointer(keyMacroHeadPtr, "GetMacroHead")
}

// SetMacroHead idempotently sets the macro head pointer.
func (s *Store) SetMacroHead(hash primitives.Hash) error {
	return s.setPointer(keyMacroHeadPtr, hash, "SetMacroHead")
}

// GetElectionHead returns the most recent election block's hash.
func (s *Store) GetElectionHead() (primitives.Hash, error) {
	return s.getPointer(keyElectionHeadPtr, "GetElectionHead")
}

// SetElectionHead idempotently sets the election head pointer.
func (s *Store) SetElectionHead(hash primitives.Hash) error {
	return s.setPointer(keyElectionHeadPtr, hash, "SetElectionHead")
}

// GetContractState reads the value namespaced by (addr, key), or
// ErrNotFound.
func (s *Store) GetContractState(addr primitives.Hash, key []byte) ([]byte, error) {
	raw, err := s.kv.Get(contractStateKey(addr, key))
	if err != nil {
		return nil, errkind.New(errkind.Storage, "GetContractState", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw, nil
}

// PutContractState writes value namespaced by (addr, key).
func (s *Store) PutContractState(addr primitives.Hash, key, value []byte) error {
	batch := s.kv.NewBatch()
	defer batch.Close()
	if err := batch.Set(contractStateKey(addr, key), value); err != nil {
		return errkind.New(errkind.Storage, "PutContractState", err)
	}
	if err := batch.WriteSync(); err != nil {
		return errkind.New(errkind.Storage, "PutContractState", err)
	}
	return nil
}

// GetContractCode reads the code deployed at addr, keyed by ("CODE:", addr)
// per spec §6, or ErrNotFound.
func (s *Store) GetContractCode(addr primitives.Hash) ([]byte, error) {
	raw, err := s.kv.Get(contractCodeKey(addr))
	if err != nil {
		return nil, errkind.New(errkind.Storage, "GetContractCode", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw, nil
}

// PutContractCode writes the code deployed at addr.
func (s *Store) PutContractCode(addr primitives.Hash, code []byte) error {
	batch := s.kv.NewBatch()
	defer batch.Close()
	if err := batch.Set(contractCodeKey(addr), code); err != nil {
		return errkind.New(errkind.Storage, "PutContractCode", err)
	}
	if err := batch.WriteSync(); err != nil {
		return errkind.New(errkind.Storage, "PutContractCode", err)
	}
	return nil
}
