// Hash-to-curve for BN254 G1, used to map a message onto a curve point
// before BLS signing (see bls_bn254.go). BN254 has no standardized SSWU
// suite the way BLS12-381 does (RFC 9380 only specifies BLS12-381/BLS12-377
// suites), so this uses expand_message_xmd for uniform randomness followed
// by try-and-increment: hash to an x-coordinate candidate, and if
// x^3+b is a quadratic residue mod p, take the point; otherwise increment
// a counter appended to the message and retry. The subgroup is the whole
// of E(F_p) (BN254 G1 has a cofactor of 1), so no cofactor clearing step
// is needed, unlike BLS12-381.
package crypto

import (
	"crypto/sha256"
	"errors"
	"math/big"
)

// hashToCurveMaxTries bounds the try-and-increment loop; failure after this
// many attempts indicates a broken hash function, not an unlucky message.
const hashToCurveMaxTries = 256

// HashToCurveG1BN254 hashes a message to a point on BN254 G1 using the given
// domain separation tag, via expand_message_xmd + try-and-increment.
func HashToCurveG1BN254(msg, dst []byte) (*G1Point, error) {
	if err := ValidateDST(dst); err != nil {
		return nil, err
	}

	for ctr := 0; ctr < hashToCurveMaxTries; ctr++ {
		uniform, err := expandMessageXMD(append(msg, byte(ctr)), dst, 48)
		if err != nil {
			return nil, err
		}
		x := new(big.Int).SetBytes(uniform)
		x.Mod(x, bn254P)

		rhs := fpAdd(fpMul(fpSqr(x), x), bn254B)
		y := fpSqrt(rhs)
		if y == nil {
			continue
		}
		return g1FromAffine(x, y), nil
	}
	return nil, errors.New("hash_to_curve: exhausted try-and-increment counter")
}

// --- expand_message_xmd (SHA-256), RFC 9380 Section 5.3.1 ---

// expandMessageXMD expands msg into lenInBytes of pseudo-random output
// using SHA-256, domain-separated by dst.
func expandMessageXMD(msg, dst []byte, lenInBytes int) ([]byte, error) {
	bInBytes := 32 // SHA-256 output size
	rInBytes := 64 // SHA-256 block size

	ell := (lenInBytes + bInBytes - 1) / bInBytes
	if ell > 255 {
		return nil, errors.New("expand_message_xmd: output too large")
	}
	if len(dst) > 255 {
		return nil, errors.New("expand_message_xmd: DST too long")
	}

	// DST_prime = DST || I2OSP(len(DST), 1)
	dstPrime := make([]byte, len(dst)+1)
	copy(dstPrime, dst)
	dstPrime[len(dst)] = byte(len(dst))

	// Z_pad = I2OSP(0, r_in_bytes)
	zPad := make([]byte, rInBytes)

	// l_i_b_str = I2OSP(len_in_bytes, 2)
	libStr := []byte{byte(lenInBytes >> 8), byte(lenInBytes)}

	// msg_prime = Z_pad || msg || l_i_b_str || I2OSP(0, 1) || DST_prime
	h := sha256.New()
	h.Write(zPad)
	h.Write(msg)
	h.Write(libStr)
	h.Write([]byte{0})
	h.Write(dstPrime)
	b0 := h.Sum(nil)

	// b_1 = H(b_0 || I2OSP(1, 1) || DST_prime)
	h.Reset()
	h.Write(b0)
	h.Write([]byte{1})
	h.Write(dstPrime)
	b1 := h.Sum(nil)

	uniform := make([]byte, 0, lenInBytes+bInBytes)
	uniform = append(uniform, b1...)
	bPrev := b1

	for i := 2; i <= ell; i++ {
		// strxor(b_0, b_{i-1})
		xored := make([]byte, bInBytes)
		for j := 0; j < bInBytes; j++ {
			xored[j] = b0[j] ^ bPrev[j]
		}
		h.Reset()
		h.Write(xored)
		h.Write([]byte{byte(i)})
		h.Write(dstPrime)
		bi := h.Sum(nil)
		uniform = append(uniform, bi...)
		bPrev = bi
	}

	return uniform[:lenInBytes], nil
}

// ValidateDST checks that a domain separation tag conforms to the spec
// requirements: non-empty and at most 255 bytes.
func ValidateDST(dst []byte) error {
	if len(dst) == 0 {
		return errors.New("hash_to_curve: empty DST")
	}
	if len(dst) > 255 {
		return errors.New("hash_to_curve: DST exceeds 255 bytes")
	}
	return nil
}
