package registry

import (
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

func TestRegisterAndLookup(t *testing.T) {
	_, pk, err := bls.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	op := primitives.NewOperator("T-Mobile", "DE")

	r := New()
	if err := r.Register(op, pk); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Lookup(op)
	if !ok {
		t.Fatal("expected operator to be registered")
	}
	if !got.Equal(pk) {
		t.Error("looked-up key does not match registered key")
	}
}

func TestLookupMissing(t *testing.T) {
	r := New()
	if _, ok := r.Lookup(primitives.NewOperator("Orange", "FR")); ok {
		t.Error("expected lookup miss for unregistered operator")
	}
}

func TestVerifySignedBy(t *testing.T) {
	sk, pk, err := bls.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	op := primitives.NewOperator("Vodafone", "UK")
	r := New()
	if err := r.Register(op, pk); err != nil {
		t.Fatal(err)
	}

	msg := []byte("block 7 round 0")
	sig := sk.SignWithDomain(msg, bls.DomainPrevote)
	if !r.VerifySignedBy(op, msg, bls.DomainPrevote, sig) {
		t.Error("expected valid signature from registered signer to verify")
	}
	if r.VerifySignedBy(primitives.NewOperator("Unregistered", "XX"), msg, bls.DomainPrevote, sig) {
		t.Error("unregistered signer should never verify")
	}
}

func TestRemove(t *testing.T) {
	_, pk, _ := bls.GenerateKeyPair()
	op := primitives.NewOperator("Orange", "FR")
	r := New()
	_ = r.Register(op, pk)
	r.Remove(op)
	if _, ok := r.Lookup(op); ok {
		t.Error("expected operator removed from registry")
	}
}
