package chainstore

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"
)

func testTransactions() []Transaction {
	return []Transaction{
		{Value: 1, Fee: 1, DataKind: DataBasic},
		{Value: 2, Fee: 1, DataKind: DataCDRRecord, CDRRecord: &CDRTxData{HomeNetwork: "T-Mobile:DE", VisitedNetwork: "Orange:FR"}},
		{Value: 3, Fee: 1, DataKind: DataSettlement, Settlement: &SettlementTxData{CreditorNetwork: "T-Mobile:DE", DebtorNetwork: "Orange:FR", AmountCents: 500}},
	}
}

func TestComputeBodyRootEmptyIsZero(t *testing.T) {
	root, err := ComputeBodyRoot(nil)
	if err != nil {
		t.Fatalf("ComputeBodyRoot: %v", err)
	}
	if !root.IsZero() {
		t.Errorf("expected zero root for empty body, got %s", root)
	}
}

func TestComputeBodyRootDeterministic(t *testing.T) {
	txs := testTransactions()
	root1, err := ComputeBodyRoot(txs)
	if err != nil {
		t.Fatalf("ComputeBodyRoot: %v", err)
	}
	root2, err := ComputeBodyRoot(txs)
	if err != nil {
		t.Fatalf("ComputeBodyRoot: %v", err)
	}
	if root1 != root2 {
		t.Errorf("body root not deterministic: %s != %s", root1, root2)
	}

	fewer, err := ComputeBodyRoot(txs[:2])
	if err != nil {
		t.Fatalf("ComputeBodyRoot: %v", err)
	}
	if fewer == root1 {
		t.Error("different transaction sets must not collide")
	}
}

func TestNewMicroBlockWithRootSetsBodyRoot(t *testing.T) {
	block, err := NewMicroBlockWithRoot(Header{Network: "devnet", BlockNumber: 1}, testTransactions())
	if err != nil {
		t.Fatalf("NewMicroBlockWithRoot: %v", err)
	}
	if block.Header.BodyRoot.IsZero() {
		t.Error("expected non-zero BodyRoot")
	}
}

func TestTransactionReceiptVerifiesAgainstBodyRoot(t *testing.T) {
	s := New(NewDBKV(dbm.NewMemDB()))
	txs := testTransactions()
	block, err := NewMicroBlockWithRoot(Header{Network: "devnet", BlockNumber: 5}, txs)
	if err != nil {
		t.Fatalf("NewMicroBlockWithRoot: %v", err)
	}
	hash, err := s.PutBlock(block)
	if err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	receipt, err := s.TransactionReceipt(hash, 1)
	if err != nil {
		t.Fatalf("TransactionReceipt: %v", err)
	}
	if err := receipt.Validate(); err != nil {
		t.Fatalf("receipt failed to validate: %v", err)
	}
	if receipt.Anchor != block.Header.BodyRoot.String() {
		t.Errorf("receipt anchor = %s, want %s", receipt.Anchor, block.Header.BodyRoot.String())
	}
	if receipt.LocalBlock != 5 {
		t.Errorf("receipt.LocalBlock = %d, want 5", receipt.LocalBlock)
	}
}

func TestTransactionReceiptRejectsOutOfRangeIndex(t *testing.T) {
	s := New(NewDBKV(dbm.NewMemDB()))
	block, err := NewMicroBlockWithRoot(Header{Network: "devnet", BlockNumber: 1}, testTransactions())
	if err != nil {
		t.Fatalf("NewMicroBlockWithRoot: %v", err)
	}
	hash, err := s.PutBlock(block)
	if err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if _, err := s.TransactionReceipt(hash, 99); err == nil {
		t.Fatal("expected error for out-of-range transaction index")
	}
}
