package chainstore

import (
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewDBKV(dbm.NewMemDB()))
}

func TestPutGetBlockRoundTrip(t *testing.T) {
	s := newTestStore(t)
	block := NewMicroBlock(Header{Network: "sp-cdr-devnet", BlockNumber: 1, Timestamp: time.Unix(0, 0).UTC()}, nil)

	hash, err := s.PutBlock(block)
	if err != nil {
		t.Fatalf("put block: %v", err)
	}

	got, err := s.GetBlock(hash)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got.Header.BlockNumber != 1 {
		t.Errorf("block number = %d, want 1", got.Header.BlockNumber)
	}
}

func TestGetBlockNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetBlock(primitives.Hash{1}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutBlockAdvancesHead(t *testing.T) {
	s := newTestStore(t)
	block := NewMicroBlock(Header{BlockNumber: 1}, nil)
	hash, err := s.PutBlock(block)
	if err != nil {
		t.Fatalf("put block: %v", err)
	}
	head, err := s.GetHead()
	if err != nil {
		t.Fatalf("get head: %v", err)
	}
	if head != hash {
		t.Errorf("head = %s, want %s", head, hash)
	}
	if _, err := s.GetMacroHead(); err != ErrNotFound {
		t.Errorf("expected macro head unset, got %v", err)
	}
}

func TestPutMacroBlockWithValidatorsAdvancesElectionHead(t *testing.T) {
	s := newTestStore(t)
	block := NewMacroBlock(
		Header{BlockNumber: uint64(primitives.EpochLength) * uint64(primitives.BatchLength)},
		[]ValidatorInfo{{Address: primitives.Hash{9}}},
		nil, nil, nil,
	)
	hash, err := s.PutBlock(block)
	if err != nil {
		t.Fatalf("put block: %v", err)
	}

	macroHead, err := s.GetMacroHead()
	if err != nil || macroHead != hash {
		t.Fatalf("macro head = %s, %v, want %s", macroHead, err, hash)
	}
	electionHead, err := s.GetElectionHead()
	if err != nil || electionHead != hash {
		t.Fatalf("election head = %s, %v, want %s", electionHead, err, hash)
	}
}

func TestPutMacroBlockWithoutValidatorsLeavesElectionHeadUnset(t *testing.T) {
	s := newTestStore(t)
	block := NewMacroBlock(Header{BlockNumber: uint64(primitives.EpochLength)}, nil, nil, nil, nil)
	if _, err := s.PutBlock(block); err != nil {
		t.Fatalf("put block: %v", err)
	}
	if _, err := s.GetElectionHead(); err != ErrNotFound {
		t.Errorf("expected election head unset, got %v", err)
	}
}

func TestContractStateNamespacing(t *testing.T) {
	s := newTestStore(t)
	addrA := primitives.Hash{1}
	addrB := primitives.Hash{2}

	if err := s.PutContractState(addrA, []byte("balance"), []byte("100")); err != nil {
		t.Fatalf("put state: %v", err)
	}
	if err := s.PutContractState(addrB, []byte("balance"), []byte("200")); err != nil {
		t.Fatalf("put state: %v", err)
	}

	got, err := s.GetContractState(addrA, []byte("balance"))
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if string(got) != "100" {
		t.Errorf("addrA balance = %q, want 100", got)
	}

	if _, err := s.GetContractState(addrA, []byte("nonce")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unset key, got %v", err)
	}
}

func TestContractCodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	addr := primitives.Hash{7}
	if err := s.PutContractCode(addr, []byte("bytecode")); err != nil {
		t.Fatalf("put code: %v", err)
	}
	got, err := s.GetContractCode(addr)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	if string(got) != "bytecode" {
		t.Errorf("code = %q, want bytecode", got)
	}
}

func TestTransactionIsValid(t *testing.T) {
	valid := Transaction{Fee: 1, Signature: []byte{0x01}}
	if !valid.IsValid() {
		t.Error("expected valid transaction")
	}
	noFee := Transaction{Signature: []byte{0x01}}
	if noFee.IsValid() {
		t.Error("expected invalid transaction with zero fee")
	}
	noSig := Transaction{Fee: 1}
	if noSig.IsValid() {
		t.Error("expected invalid transaction with empty signature")
	}
}

func TestValidatorInfoActiveAt(t *testing.T) {
	inactiveFrom := uint64(10)
	v := ValidatorInfo{InactiveFrom: &inactiveFrom}
	if !v.ActiveAt(5) {
		t.Error("expected active before inactive_from")
	}
	if v.ActiveAt(10) {
		t.Error("expected inactive at inactive_from")
	}
}
