package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Hash32 is a 32-byte hash value with a hex Stringer, returned by
// Keccak256Hash; payload's transaction commitments and the avidm/nsavidm
// leaf hashes are computed through it.
type Hash32 [32]byte

// String renders the hash as 0x-prefixed hex.
func (h Hash32) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Keccak256 calculates the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a Hash32.
func Keccak256Hash(data ...[]byte) Hash32 {
	var h Hash32
	copy(h[:], Keccak256(data...))
	return h
}
