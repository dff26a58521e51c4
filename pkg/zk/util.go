package zk

import "math/big"

// beToField interprets a big-endian byte slice as a BN254 scalar-field
// element assignment. Hashes are 32 bytes, comfortably within the field's
// ~254-bit modulus.
func beToField(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
