// Copyright 2025 SP Consortium
//
// BLS12-381 Signature Implementation (Pure Go)
// Signatures for the roaming-settlement consortium's three-phase BFT
// protocol (C5) and settlement acceptance (C7).
//
// This package provides:
// - Key generation (private/public key pairs)
// - Signing and verification
// - Signature aggregation (multiple signatures -> single signature)
// - Public key aggregation
// - BLS12-381 curve operations
//
// Uses gnark-crypto for a pure Go BLS12-381 implementation.

package bls

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// =============================================================================
// INITIALIZATION
// =============================================================================

var (
	initOnce sync.Once
	initErr  error

	// Generator points (initialized once)
	g1Gen bls12381.G1Affine
	g2Gen bls12381.G2Affine
)

// Domain separation tags. Every consensus vote and settlement acceptance
// signs hash(domain || payload) under one of these, so a signature
// collected for one phase or purpose can never be replayed as another
// (spec §9, "Message authenticity").
const (
	DomainPropose    = "SP_CDR_CONSORTIUM_BLS_SIG/propose"
	DomainPrevote    = "SP_CDR_CONSORTIUM_BLS_SIG/prevote"
	DomainPrecommit  = "SP_CDR_CONSORTIUM_BLS_SIG/precommit"
	DomainSettlement = "SP_CDR_CONSORTIUM_BLS_SIG/settlement"
)

// Size constants
const (
	PrivateKeySize = 32 // BLS12-381 private key is 32 bytes (scalar)
	PublicKeySize  = 96 // BLS12-381 public key is 96 bytes (G2 point, compressed)
	SignatureSize  = 48 // BLS12-381 signature is 48 bytes (G1 point, compressed)
)

// Initialize initializes the BLS library. Must be called before any BLS operations.
// Safe to call multiple times - only initializes once.
func Initialize() error {
	initOnce.Do(func() {
		// Get generator points
		_, _, g1GenPoint, g2GenPoint := bls12381.Generators()
		g1Gen = g1GenPoint
		g2Gen = g2GenPoint
	})
	return initErr
}

// =============================================================================
// KEY TYPES
// =============================================================================

// PrivateKey represents a BLS private key (secret key) - a scalar in Fr
type PrivateKey struct {
	scalar fr.Element
}

// PublicKey represents a BLS public key - a point on G2
type PublicKey struct {
	point bls12381.G2Affine
}

// Signature represents a BLS signature - a point on G1
type Signature struct {
	point bls12381.G1Affine
}

// =============================================================================
// KEY GENERATION
// =============================================================================

// GenerateKeyPair generates a new BLS key pair using secure random source
func GenerateKeyPair() (*PrivateKey, *PublicKey, error) {
	if err := Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize BLS: %w", err)
	}

	// Generate random scalar
	var sk fr.Element
	_, err := sk.SetRandom()
	if err != nil {
		return nil, nil, fmt.Errorf("generate random scalar: %w", err)
	}

	privateKey := &PrivateKey{scalar: sk}
	publicKey := privateKey.PublicKey()

	return privateKey, publicKey, nil
}

// GenerateKeyPairFromSeed generates a deterministic key pair from a seed.
// Used to recover a validator's key pair from its validator ID.
func GenerateKeyPairFromSeed(seed []byte) (*PrivateKey, *PublicKey, error) {
	if err := Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize BLS: %w", err)
	}

	if len(seed) < 32 {
		return nil, nil, errors.New("seed must be at least 32 bytes")
	}

	// Hash the seed to get exactly 32 bytes
	hash := sha256.Sum256(seed)

	var sk fr.Element
	sk.SetBytes(hash[:])

	privateKey := &PrivateKey{scalar: sk}
	publicKey := privateKey.PublicKey()

	return privateKey, publicKey, nil
}

// PrivateKeyFromBytes deserializes a private key from bytes
func PrivateKeyFromBytes(data []byte) (*PrivateKey, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("initialize BLS: %w", err)
	}

	if len(data) != PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: got %d, want %d", len(data), PrivateKeySize)
	}

	var sk fr.Element
	sk.SetBytes(data)

	return &PrivateKey{scalar: sk}, nil
}

// PrivateKeyFromHex deserializes a private key from hex string
func PrivateKeyFromHex(hexStr string) (*PrivateKey, error) {
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return PrivateKeyFromBytes(data)
}

// PublicKeyFromBytes deserializes a public key from bytes
func PublicKeyFromBytes(data []byte) (*PublicKey, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("initialize BLS: %w", err)
	}

	var pk bls12381.G2Affine
	_, err := pk.SetBytes(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize public key: %w", err)
	}

	return &PublicKey{point: pk}, nil
}

// PublicKeyFromHex deserializes a public key from hex string
func PublicKeyFromHex(hexStr string) (*PublicKey, error) {
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return PublicKeyFromBytes(data)
}

// SignatureFromBytes deserializes a signature from bytes
func SignatureFromBytes(data []byte) (*Signature, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("initialize BLS: %w", err)
	}

	var sig bls12381.G1Affine
	_, err := sig.SetBytes(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize signature: %w", err)
	}

	return &Signature{point: sig}, nil
}

// SignatureFromHex deserializes a signature from hex string
func SignatureFromHex(hexStr string) (*Signature, error) {
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return SignatureFromBytes(data)
}

// =============================================================================
// PRIVATE KEY METHODS
// =============================================================================

// Bytes returns the serialized private key bytes
func (sk *PrivateKey) Bytes() []byte {
	bytes := sk.scalar.Bytes()
	return bytes[:]
}

// Hex returns the private key as a hex string
func (sk *PrivateKey) Hex() string {
	return hex.EncodeToString(sk.Bytes())
}

// PublicKey derives the public key from this private key
// pk = sk * G2
func (sk *PrivateKey) PublicKey() *PublicKey {
	var pk bls12381.G2Affine
	var skBig big.Int
	sk.scalar.BigInt(&skBig)
	pk.ScalarMultiplication(&g2Gen, &skBig)
	return &PublicKey{point: pk}
}

// Sign signs a message and returns the signature, with no domain
// separation. Consensus votes and settlement acceptances should use
// SignWithDomain instead.
// sig = sk * H(message)
func (sk *PrivateKey) Sign(message []byte) *Signature {
	// Hash message to G1 point
	h := hashToG1(message)

	// Multiply by secret key
	var sig bls12381.G1Affine
	var skBig big.Int
	sk.scalar.BigInt(&skBig)
	sig.ScalarMultiplication(&h, &skBig)

	return &Signature{point: sig}
}

// SignWithDomain signs a message with domain separation
func (sk *PrivateKey) SignWithDomain(message []byte, domain string) *Signature {
	// Compute domain-separated message: H(domain || message)
	domainMsg := computeDomainMessage(domain, message)
	return sk.Sign(domainMsg)
}

// =============================================================================
// PUBLIC KEY METHODS
// =============================================================================

// Bytes returns the serialized public key bytes (compressed G2 point)
func (pk *PublicKey) Bytes() []byte {
	bytes := pk.point.Bytes()
	return bytes[:]
}

// Hex returns the public key as a hex string
func (pk *PublicKey) Hex() string {
	return hex.EncodeToString(pk.Bytes())
}

// Verify verifies a signature against a message using pairing
// e(sig, G2) == e(H(message), pk)
func (pk *PublicKey) Verify(sig *Signature, message []byte) bool {
	// Hash message to G1 point
	h := hashToG1(message)

	// Check pairing: e(sig, G2) == e(H(msg), pk)
	// Equivalent to: e(sig, G2) * e(-H(msg), pk) == 1
	// Or: e(sig, G2) * e(H(msg), -pk) == 1

	var negPk bls12381.G2Affine
	negPk.Neg(&pk.point)

	// Perform pairing check
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig.point, h},
		[]bls12381.G2Affine{g2Gen, negPk},
	)
	if err != nil {
		return false
	}

	return ok
}

// VerifyWithDomain verifies a signature with domain separation
func (pk *PublicKey) VerifyWithDomain(sig *Signature, message []byte, domain string) bool {
	domainMsg := computeDomainMessage(domain, message)
	return pk.Verify(sig, domainMsg)
}

// Equal checks if two public keys are equal
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.point.Equal(&other.point)
}

// =============================================================================
// SIGNATURE METHODS
// =============================================================================

// Bytes returns the serialized signature bytes (compressed G1 point)
func (sig *Signature) Bytes() []byte {
	bytes := sig.point.Bytes()
	return bytes[:]
}

// Hex returns the signature as a hex string
func (sig *Signature) Hex() string {
	return hex.EncodeToString(sig.Bytes())
}

// =============================================================================
// SIGNATURE AGGREGATION
// =============================================================================

// AggregateSignatures aggregates multiple signatures into a single signature
// aggSig = sig1 + sig2 + ... + sigN (point addition on G1)
func AggregateSignatures(signatures []*Signature) (*Signature, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("initialize BLS: %w", err)
	}

	if len(signatures) == 0 {
		return nil, errors.New("no signatures to aggregate")
	}

	// Start with first signature
	var aggSig bls12381.G1Jac
	aggSig.FromAffine(&signatures[0].point)

	// Add remaining signatures
	for i := 1; i < len(signatures); i++ {
		var jac bls12381.G1Jac
		jac.FromAffine(&signatures[i].point)
		aggSig.AddAssign(&jac)
	}

	// Convert back to affine
	var result bls12381.G1Affine
	result.FromJacobian(&aggSig)

	return &Signature{point: result}, nil
}

// AggregatePublicKeys aggregates multiple public keys into a single public key
// aggPk = pk1 + pk2 + ... + pkN (point addition on G2)
func AggregatePublicKeys(publicKeys []*PublicKey) (*PublicKey, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("initialize BLS: %w", err)
	}

	if len(publicKeys) == 0 {
		return nil, errors.New("no public keys to aggregate")
	}

	// Start with first public key
	var aggPk bls12381.G2Jac
	aggPk.FromAffine(&publicKeys[0].point)

	// Add remaining public keys
	for i := 1; i < len(publicKeys); i++ {
		var jac bls12381.G2Jac
		jac.FromAffine(&publicKeys[i].point)
		aggPk.AddAssign(&jac)
	}

	// Convert back to affine
	var result bls12381.G2Affine
	result.FromJacobian(&aggPk)

	return &PublicKey{point: result}, nil
}

// VerifyAggregateSignature verifies an aggregated signature against multiple public keys
// All signers must have signed the SAME message
func VerifyAggregateSignature(aggSig *Signature, publicKeys []*PublicKey, message []byte) bool {
	if err := Initialize(); err != nil {
		return false
	}

	if len(publicKeys) == 0 {
		return false
	}

	// Aggregate the public keys
	aggPk, err := AggregatePublicKeys(publicKeys)
	if err != nil {
		return false
	}

	// Verify the aggregate signature against the aggregate public key
	return aggPk.Verify(aggSig, message)
}

// VerifyAggregateSignatureWithDomain verifies with domain separation
func VerifyAggregateSignatureWithDomain(aggSig *Signature, publicKeys []*PublicKey, message []byte, domain string) bool {
	domainMsg := computeDomainMessage(domain, message)
	return VerifyAggregateSignature(aggSig, publicKeys, domainMsg)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// hashToG1 hashes a message to a point on G1
// Uses the "hash and pray" method for simplicity
func hashToG1(message []byte) bls12381.G1Affine {
	// Create a deterministic hash
	h := sha256.New()
	h.Write([]byte("SP_CDR_BLS12381G1_XMD:SHA-256_SSWU_RO_"))
	h.Write(message)

	var counter uint64
	for {
		h2 := sha256.New()
		h2.Write(h.Sum(nil))
		binary.Write(h2, binary.BigEndian, counter)
		hash := h2.Sum(nil)

		// Try to create a valid G1 point
		var point bls12381.G1Affine
		_, err := point.SetBytes(hash)
		if err == nil && !point.IsInfinity() {
			return point
		}

		// Hash to a scalar and multiply generator
		var scalar fr.Element
		scalar.SetBytes(hash)
		var scalarBig big.Int
		scalar.BigInt(&scalarBig)

		var result bls12381.G1Affine
		result.ScalarMultiplication(&g1Gen, &scalarBig)
		if !result.IsInfinity() {
			return result
		}

		counter++
		if counter > 1000 {
			// Fallback: return generator (should never happen with proper hash)
			return g1Gen
		}
	}
}

// computeDomainMessage computes a domain-separated message hash
func computeDomainMessage(domain string, message []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write(message)
	return h.Sum(nil)
}

// ComputeMessageHash computes a deterministic hash for signing.
// This ensures all validators sign the same message representation.
func ComputeMessageHash(domain string, data ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, d := range data {
		h.Write(d)
	}
	var result [32]byte
	copy(result[:], h.Sum(nil))
	return result
}

// GenerateRandomBytes generates cryptographically secure random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

// ValidatePublicKey checks if a public key is valid
func ValidatePublicKey(data []byte) error {
	_, err := PublicKeyFromBytes(data)
	return err
}

// ValidateSignature checks if a signature is valid format
func ValidateSignature(data []byte) error {
	_, err := SignatureFromBytes(data)
	return err
}

// IsValidPublicKeySize checks if the byte slice is the correct size for a public key
func IsValidPublicKeySize(data []byte) bool {
	return len(data) == PublicKeySize
}

// IsValidSignatureSize checks if the byte slice is the correct size for a signature
func IsValidSignatureSize(data []byte) bool {
	return len(data) == SignatureSize
}

// IsValidPrivateKeySize checks if the byte slice is the correct size for a private key
func IsValidPrivateKeySize(data []byte) bool {
	return len(data) == PrivateKeySize
}

// =============================================================================
// BLS PUBLIC KEY SUBGROUP VALIDATION
// =============================================================================

// ValidateBLSPublicKeySubgroup performs comprehensive validation of a BLS12-381 public key.
// This ensures the public key is a valid G2 point in the correct subgroup.
//
// Validation checks:
// 1. Point can be deserialized (valid encoding)
// 2. Point is on the BLS12-381 G2 curve
// 3. Point is not the identity (point at infinity)
// 4. Point is in the correct G2 subgroup (for security against rogue key attacks)
//
// Returns nil if valid, error otherwise (fail-closed).
func ValidateBLSPublicKeySubgroup(pubKeyBytes []byte) error {
	if err := Initialize(); err != nil {
		return fmt.Errorf("initialize BLS: %w", err)
	}

	// Check size
	if len(pubKeyBytes) != PublicKeySize {
		return fmt.Errorf("invalid public key size: got %d, expected %d", len(pubKeyBytes), PublicKeySize)
	}

	// Deserialize the public key
	var pk bls12381.G2Affine
	_, err := pk.SetBytes(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("invalid public key encoding: %w", err)
	}

	// Check if point is on curve
	if !pk.IsOnCurve() {
		return errors.New("public key not on BLS12-381 G2 curve")
	}

	// Check if point is the identity (infinity point)
	if pk.IsInfinity() {
		return errors.New("public key is identity point (point at infinity)")
	}

	// Check if point is in the correct G2 subgroup
	// This is critical for security against rogue key attacks
	if !pk.IsInSubGroup() {
		return errors.New("public key not in correct G2 subgroup")
	}

	return nil
}

// ValidateBLSSignatureSubgroup performs comprehensive validation of a BLS12-381 signature.
// This ensures the signature is a valid G1 point in the correct subgroup.
//
// Validation checks:
// 1. Point can be deserialized (valid encoding)
// 2. Point is on the BLS12-381 G1 curve
// 3. Point is not the identity (point at infinity)
// 4. Point is in the correct G1 subgroup
//
// Returns nil if valid, error otherwise (fail-closed).
func ValidateBLSSignatureSubgroup(sigBytes []byte) error {
	if err := Initialize(); err != nil {
		return fmt.Errorf("initialize BLS: %w", err)
	}

	// Check size
	if len(sigBytes) != SignatureSize {
		return fmt.Errorf("invalid signature size: got %d, expected %d", len(sigBytes), SignatureSize)
	}

	// Deserialize the signature
	var sig bls12381.G1Affine
	_, err := sig.SetBytes(sigBytes)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}

	// Check if point is on curve
	if !sig.IsOnCurve() {
		return errors.New("signature not on BLS12-381 G1 curve")
	}

	// Check if point is the identity (infinity point)
	if sig.IsInfinity() {
		return errors.New("signature is identity point (point at infinity)")
	}

	// Check if point is in the correct G1 subgroup
	if !sig.IsInSubGroup() {
		return errors.New("signature not in correct G1 subgroup")
	}

	return nil
}

// IsValidPublicKey returns true if the public key is valid and in the correct subgroup
func (pk *PublicKey) IsValidPublicKey() bool {
	if pk == nil {
		return false
	}
	return pk.point.IsOnCurve() && !pk.point.IsInfinity() && pk.point.IsInSubGroup()
}

// IsValidSignature returns true if the signature is valid and in the correct subgroup
func (sig *Signature) IsValidSignature() bool {
	if sig == nil {
		return false
	}
	return sig.point.IsOnCurve() && !sig.point.IsInfinity() && sig.point.IsInSubGroup()
}

// ValidateAllPublicKeys validates all public keys in a slice
// Returns an error with the index of the first invalid key if any are invalid
func ValidateAllPublicKeys(pubKeys [][]byte) error {
	for i, pk := range pubKeys {
		if err := ValidateBLSPublicKeySubgroup(pk); err != nil {
			return fmt.Errorf("invalid public key at index %d: %w", i, err)
		}
	}
	return nil
}
