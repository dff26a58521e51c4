// Copyright 2025 SP Consortium
//
// BLS Library Tests - BLS12-381 key generation, signing, aggregation.

package bls

import (
	"bytes"
	"testing"
)

func TestInitialize(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Failed to initialize BLS: %v", err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Second initialize failed: %v", err)
	}
}

func TestGenerateKeyPair(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	if sk == nil || pk == nil {
		t.Fatal("key or public key is nil")
	}
	if !IsValidPrivateKeySize(sk.Bytes()) {
		t.Errorf("invalid private key size: got %d, want %d", len(sk.Bytes()), PrivateKeySize)
	}
	if !IsValidPublicKeySize(pk.Bytes()) {
		t.Errorf("invalid public key size: got %d, want %d", len(pk.Bytes()), PublicKeySize)
	}
}

func TestGenerateKeyPairFromSeed(t *testing.T) {
	seed := []byte("this is a test seed for BLS key generation - 32+ bytes required")

	sk1, pk1, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("generate from seed: %v", err)
	}
	sk2, pk2, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("generate from seed again: %v", err)
	}
	if !bytes.Equal(sk1.Bytes(), sk2.Bytes()) {
		t.Error("same seed produced different private keys")
	}
	if !bytes.Equal(pk1.Bytes(), pk2.Bytes()) {
		t.Error("same seed produced different public keys")
	}
}

func TestSignAndVerify(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	message := []byte("T-Mobile-DE:Vodafone-UK batch 2026-07-29")
	sig := sk.Sign(message)
	if sig == nil {
		t.Fatal("signature is nil")
	}
	if !pk.Verify(sig, message) {
		t.Error("valid signature failed to verify")
	}
	if pk.Verify(sig, []byte("tampered message")) {
		t.Error("signature verified against wrong message")
	}
}

func TestSignAndVerifyWithDomain(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	message := []byte("propose block 42")

	sig := sk.SignWithDomain(message, DomainPropose)
	if !pk.VerifyWithDomain(sig, message, DomainPropose) {
		t.Error("domain-separated signature failed to verify under its own domain")
	}
	if pk.VerifyWithDomain(sig, message, DomainPrevote) {
		t.Error("signature for DomainPropose verified under DomainPrevote")
	}
}

func TestAggregateSignatures(t *testing.T) {
	const n = 5
	message := []byte("precommit round 3 block_hash=abc123")

	var sigs []*Signature
	var pks []*PublicKey
	for i := 0; i < n; i++ {
		sk, pk, err := GenerateKeyPair()
		if err != nil {
			t.Fatalf("generate key pair %d: %v", i, err)
		}
		sigs = append(sigs, sk.SignWithDomain(message, DomainPrecommit))
		pks = append(pks, pk)
	}

	aggSig, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate signatures: %v", err)
	}
	if !VerifyAggregateSignatureWithDomain(aggSig, pks, message, DomainPrecommit) {
		t.Error("aggregate signature failed to verify")
	}

	// Tamper with one signer's key — the aggregate should no longer verify.
	_, wrongPk, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	tamperedPks := append([]*PublicKey{}, pks...)
	tamperedPks[0] = wrongPk
	if VerifyAggregateSignatureWithDomain(aggSig, tamperedPks, message, DomainPrecommit) {
		t.Error("aggregate signature verified against a substituted public key")
	}
}

func TestAggregatePublicKeys(t *testing.T) {
	_, pk1, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	_, pk2, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	agg, err := AggregatePublicKeys([]*PublicKey{pk1, pk2})
	if err != nil {
		t.Fatalf("aggregate public keys: %v", err)
	}
	if agg.Equal(pk1) || agg.Equal(pk2) {
		t.Error("aggregate public key collided with an input key")
	}
}

func TestHexRoundTrip(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sig := sk.Sign([]byte("roundtrip"))

	sk2, err := PrivateKeyFromHex(sk.Hex())
	if err != nil {
		t.Fatalf("private key from hex: %v", err)
	}
	if !bytes.Equal(sk2.Bytes(), sk.Bytes()) {
		t.Error("private key hex roundtrip mismatch")
	}

	pk2, err := PublicKeyFromHex(pk.Hex())
	if err != nil {
		t.Fatalf("public key from hex: %v", err)
	}
	if !pk2.Equal(pk) {
		t.Error("public key hex roundtrip mismatch")
	}

	sig2, err := SignatureFromHex(sig.Hex())
	if err != nil {
		t.Fatalf("signature from hex: %v", err)
	}
	if !bytes.Equal(sig2.Bytes(), sig.Bytes()) {
		t.Error("signature hex roundtrip mismatch")
	}
}

func TestSubgroupValidation(t *testing.T) {
	_, pk, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateBLSPublicKeySubgroup(pk.Bytes()); err != nil {
		t.Errorf("valid public key rejected: %v", err)
	}

	sig := (&PrivateKey{}).Sign([]byte("x"))
	_ = sig // identity-scalar signature; exercised via zero key below

	if err := ValidateBLSPublicKeySubgroup(make([]byte, PublicKeySize)); err == nil {
		t.Error("all-zero bytes should not validate as a public key")
	}
	if err := ValidateBLSSignatureSubgroup(make([]byte, SignatureSize)); err == nil {
		t.Error("all-zero bytes should not validate as a signature")
	}
}

func TestValidateAllPublicKeys(t *testing.T) {
	_, pk1, _ := GenerateKeyPair()
	_, pk2, _ := GenerateKeyPair()
	if err := ValidateAllPublicKeys([][]byte{pk1.Bytes(), pk2.Bytes()}); err != nil {
		t.Errorf("valid keys rejected: %v", err)
	}
	if err := ValidateAllPublicKeys([][]byte{pk1.Bytes(), make([]byte, PublicKeySize)}); err == nil {
		t.Error("expected error for invalid key at index 1")
	}
}
