// Copyright 2025 SP Consortium
//
// Package primitives holds the content hash, operator identity, and policy
// constants shared by every other package in this module.
package primitives

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Hash is the content hash of a serialized value: 32 bytes, hex-displayed,
// zero value reserved for "none".
//
// The source this module was distilled from calls this type "Blake2bHash"
// in several places but actually computes it with SHA-256 throughout
// (zkp/trusted_setup.rs, blockchain/block.rs). We keep the SHA-256
// implementation and the plain Hash name rather than carry the
// mismatched label forward.
type Hash [32]byte

// ZeroHash is the sentinel "none" value.
var ZeroHash = Hash{}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// String returns the lowercase hex encoding of h.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns a copy of the underlying 32 bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, len(h))
	copy(b, h[:])
	return b
}

// HashFromBytes builds a Hash from a 32-byte slice.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != len(h) {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// HashFromHex parses a hex-encoded hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	h, ok := HashFromBytes(b)
	if !ok {
		return Hash{}, errInvalidHashLength
	}
	return h, nil
}

// HashBytes computes the content hash of raw bytes.
func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// HashConcat computes the content hash of the concatenation of parts, in
// order — used wherever a wire message defines a signed payload as
// hash(a) ∥ b ∥ c.
func HashConcat(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// CanonicalJSON marshals v with map keys sorted so that two semantically
// equal values always serialize to the same bytes, regardless of field or
// map-iteration order.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalize(decoded))
}

func canonicalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalize(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return vv
	}
}

// HashJSON computes the content hash of v's canonical JSON encoding. This
// is the hash used for blocks, transactions, and proposals.
func HashJSON(v interface{}) (Hash, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return Hash{}, err
	}
	return HashBytes(canon), nil
}
