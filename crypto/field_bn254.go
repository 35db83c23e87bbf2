package crypto

import (
	"crypto/sha512"
	"math/big"
)

// HashBytesToField reduces an arbitrary byte string into an element of the
// BN254 scalar field (Fr, order bn254N), used both by Schnorr signing
// (hash_bytes_to_field(abi_encode(account))) and by the block-Merkle
// light-client root conversion (an SHA-3 root reduced mod the same field).
//
// Wide reduction: SHA-512 gives 64 bytes of uniform input, comfortably
// larger than Fr's ~254 bits, so the mod-reduction bias is negligible.
func HashBytesToField(data ...[]byte) *big.Int {
	h := sha512.New()
	for _, d := range data {
		h.Write(d)
	}
	x := new(big.Int).SetBytes(h.Sum(nil))
	return x.Mod(x, bn254N)
}
