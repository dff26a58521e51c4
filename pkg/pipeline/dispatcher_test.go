package pipeline

import (
	"errors"
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
)

type fakeProofVerifier struct {
	called bool
	err    error
}

func (f *fakeProofVerifier) VerifyCDRProof(tx chainstore.Transaction) error {
	f.called = true
	return f.err
}

func TestZKDispatcherRoutesCDRRecordAndSettlement(t *testing.T) {
	for _, kind := range []chainstore.TransactionKind{chainstore.DataCDRRecord, chainstore.DataSettlement} {
		v := &fakeProofVerifier{}
		d := NewZKDispatcher(v)
		if err := d.Dispatch(chainstore.Transaction{DataKind: kind}); err != nil {
			t.Fatalf("dispatch kind %v: %v", kind, err)
		}
		if !v.called {
			t.Errorf("kind %v: expected verifier to be called", kind)
		}
	}
}

func TestZKDispatcherNoopsForBasicAndValidatorUpdate(t *testing.T) {
	for _, kind := range []chainstore.TransactionKind{chainstore.DataBasic, chainstore.DataValidatorUpdate} {
		v := &fakeProofVerifier{}
		d := NewZKDispatcher(v)
		if err := d.Dispatch(chainstore.Transaction{DataKind: kind}); err != nil {
			t.Fatalf("dispatch kind %v: %v", kind, err)
		}
		if v.called {
			t.Errorf("kind %v: verifier should not be called", kind)
		}
	}
}

func TestZKDispatcherPropagatesVerifierError(t *testing.T) {
	v := &fakeProofVerifier{err: errors.New("bad proof")}
	d := NewZKDispatcher(v)
	if err := d.Dispatch(chainstore.Transaction{DataKind: chainstore.DataCDRRecord}); err == nil {
		t.Fatal("expected error to propagate")
	}
}
