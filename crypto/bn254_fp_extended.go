package crypto

// fpSqrt is the one piece of "extended" field arithmetic this module needs
// beyond bn254_fp.go's basic ops: a square root, used by hash_to_curve.go's
// try-and-increment to test whether a candidate x-coordinate lies on the
// curve.

import "math/big"

// fpSqrt returns the square root of a mod p, or nil if none exists.
// BN254's p satisfies p = 3 mod 4, so sqrt(a) = a^((p+1)/4) mod p.
func fpSqrt(a *big.Int) *big.Int {
	if a.Sign() == 0 {
		return new(big.Int)
	}
	amod := new(big.Int).Mod(a, bn254P)
	exp := new(big.Int).Add(bn254P, big.NewInt(1))
	exp.Rsh(exp, 2)
	r := new(big.Int).Exp(amod, exp, bn254P)
	if new(big.Int).Mul(r, r).Mod(new(big.Int).Mul(r, r), bn254P).Cmp(amod) != 0 {
		return nil
	}
	return r
}
