package crypto

// The BN254 pairing runs over a tower of field extensions built on F_p:
//
//	F_p^2  = F_p[i]   / (i^2 + 1)     -- G2 coordinates live here
//	F_p^6  = F_p^2[v] / (v^3 - (9+i)) -- an intermediate step toward G_T
//	F_p^12 = F_p^6[w]  / (w^2 - v)    -- the pairing's target group G_T
//
// bn254_pairing.go's Miller loop and final exponentiation are the only
// consumers of fp6/fp12. Outside this file fp2 is used by
// bn254_points.go's G2 arithmetic, the pairing in bn254_pairing.go, and
// the G2 encoding and decoding in bn254.go and bls_bn254.go.

import "math/big"

// fp2 represents an element of F_p^2 as (a0 + a1*i).
type fp2 struct {
	a0, a1 *big.Int
}

func newFp2(a0, a1 *big.Int) *fp2 {
	return &fp2{a0: new(big.Int).Set(a0), a1: new(big.Int).Set(a1)}
}

func fp2Zero() *fp2 {
	return &fp2{a0: new(big.Int), a1: new(big.Int)}
}

func fp2One() *fp2 {
	return &fp2{a0: big.NewInt(1), a1: new(big.Int)}
}

func (e *fp2) isZero() bool {
	return e.a0.Sign() == 0 && e.a1.Sign() == 0
}

func (e *fp2) equal(f *fp2) bool {
	a0 := new(big.Int).Mod(e.a0, bn254P)
	a1 := new(big.Int).Mod(e.a1, bn254P)
	b0 := new(big.Int).Mod(f.a0, bn254P)
	b1 := new(big.Int).Mod(f.a1, bn254P)
	return a0.Cmp(b0) == 0 && a1.Cmp(b1) == 0
}

// fp2Add returns e + f in F_p^2.
func fp2Add(e, f *fp2) *fp2 {
	return &fp2{
		a0: fpAdd(e.a0, f.a0),
		a1: fpAdd(e.a1, f.a1),
	}
}

// fp2Sub returns e - f in F_p^2.
func fp2Sub(e, f *fp2) *fp2 {
	return &fp2{
		a0: fpSub(e.a0, f.a0),
		a1: fpSub(e.a1, f.a1),
	}
}

// fp2Mul returns e * f in F_p^2 via the Karatsuba trick:
// v0 = a0*b0, v1 = a1*b1, real = v0-v1, imag = (a0+a1)(b0+b1)-v0-v1.
func fp2Mul(e, f *fp2) *fp2 {
	v0 := fpMul(e.a0, f.a0)
	v1 := fpMul(e.a1, f.a1)
	return &fp2{
		a0: fpSub(v0, v1),
		a1: fpSub(fpMul(fpAdd(e.a0, e.a1), fpAdd(f.a0, f.a1)), fpAdd(v0, v1)),
	}
}

// fp2Sqr returns e^2 in F_p^2: (a+b)(a-b) for the real part, 2ab for imag.
func fp2Sqr(e *fp2) *fp2 {
	ab := fpMul(e.a0, e.a1)
	return &fp2{
		a0: fpMul(fpAdd(e.a0, e.a1), fpSub(e.a0, e.a1)),
		a1: fpAdd(ab, ab),
	}
}

// fp2Neg returns -e in F_p^2.
func fp2Neg(e *fp2) *fp2 {
	return &fp2{
		a0: fpNeg(e.a0),
		a1: fpNeg(e.a1),
	}
}

// fp2Conj returns the conjugate of e: (a0 - a1*i).
func fp2Conj(e *fp2) *fp2 {
	return &fp2{
		a0: new(big.Int).Set(e.a0),
		a1: fpNeg(e.a1),
	}
}

// fp2Inv returns e^(-1) in F_p^2: (a - b*i) / (a^2 + b^2).
func fp2Inv(e *fp2) *fp2 {
	t := fpAdd(fpSqr(e.a0), fpSqr(e.a1))
	inv := fpInv(t)
	return &fp2{
		a0: fpMul(e.a0, inv),
		a1: fpMul(fpNeg(e.a1), inv),
	}
}

// fp2MulScalar returns e * s where s is in F_p.
func fp2MulScalar(e *fp2, s *big.Int) *fp2 {
	return &fp2{
		a0: fpMul(e.a0, s),
		a1: fpMul(e.a1, s),
	}
}

// fp2MulByNonResidue multiplies by the non-residue (9+i) used in the sextic
// twist for BN254: (a + b*i)(9 + i) = (9a - b) + (a + 9b)*i. This feeds the
// F_p^6 and F_p^12 tower reductions below.
func fp2MulByNonResidue(e *fp2) *fp2 {
	nine := big.NewInt(9)
	return &fp2{
		a0: fpSub(fpMul(e.a0, nine), e.a1),
		a1: fpAdd(fpMul(e.a1, nine), e.a0),
	}
}

// fp6 represents an element of F_p^6 as (c0 + c1*v + c2*v^2), c_i in F_p^2.
type fp6 struct {
	c0, c1, c2 *fp2
}

func fp6Zero() *fp6 {
	return &fp6{c0: fp2Zero(), c1: fp2Zero(), c2: fp2Zero()}
}

func fp6One() *fp6 {
	return &fp6{c0: fp2One(), c1: fp2Zero(), c2: fp2Zero()}
}

func (e *fp6) isZero() bool {
	return e.c0.isZero() && e.c1.isZero() && e.c2.isZero()
}

// fp6Add returns e + f.
func fp6Add(e, f *fp6) *fp6 {
	return &fp6{
		c0: fp2Add(e.c0, f.c0),
		c1: fp2Add(e.c1, f.c1),
		c2: fp2Add(e.c2, f.c2),
	}
}

// fp6Sub returns e - f.
func fp6Sub(e, f *fp6) *fp6 {
	return &fp6{
		c0: fp2Sub(e.c0, f.c0),
		c1: fp2Sub(e.c1, f.c1),
		c2: fp2Sub(e.c2, f.c2),
	}
}

// fp6Neg returns -e.
func fp6Neg(e *fp6) *fp6 {
	return &fp6{
		c0: fp2Neg(e.c0),
		c1: fp2Neg(e.c1),
		c2: fp2Neg(e.c2),
	}
}

// fp6Mul returns e * f via Toom-Cook/Karatsuba for a degree-2 poly over
// F_p^2; v^3 = xi = (9+i), so overflow terms are reduced through
// fp2MulByNonResidue.
func fp6Mul(e, f *fp6) *fp6 {
	t0 := fp2Mul(e.c0, f.c0)
	t1 := fp2Mul(e.c1, f.c1)
	t2 := fp2Mul(e.c2, f.c2)

	c0 := fp2Add(t0, fp2MulByNonResidue(
		fp2Sub(fp2Sub(fp2Mul(fp2Add(e.c1, e.c2), fp2Add(f.c1, f.c2)), t1), t2)))

	c1 := fp2Add(
		fp2Sub(fp2Sub(fp2Mul(fp2Add(e.c0, e.c1), fp2Add(f.c0, f.c1)), t0), t1),
		fp2MulByNonResidue(t2))

	c2 := fp2Add(
		fp2Sub(fp2Sub(fp2Mul(fp2Add(e.c0, e.c2), fp2Add(f.c0, f.c2)), t0), t2),
		t1)

	return &fp6{c0: c0, c1: c1, c2: c2}
}

// fp6Sqr returns e^2.
func fp6Sqr(e *fp6) *fp6 {
	s0 := fp2Sqr(e.c0)
	ab := fp2Mul(e.c0, e.c1)
	s1 := fp2Add(ab, ab)
	s2 := fp2Sqr(fp2Sub(fp2Add(e.c0, e.c2), e.c1))
	bc := fp2Mul(e.c1, e.c2)
	s3 := fp2Add(bc, bc)
	s4 := fp2Sqr(e.c2)

	c0 := fp2Add(s0, fp2MulByNonResidue(s3))
	c1 := fp2Add(s1, fp2MulByNonResidue(s4))
	c2 := fp2Sub(fp2Sub(fp2Add(fp2Add(s1, s2), s3), s0), s4)

	return &fp6{c0: c0, c1: c1, c2: c2}
}

// fp6Inv returns e^(-1) using the standard cubic-extension inverse formula:
// A = c0^2 - xi*c1*c2, B = xi*c2^2 - c0*c1, C = c1^2 - c0*c2,
// inv = 1/(c0*A + xi*(c2*B + c1*C)).
func fp6Inv(e *fp6) *fp6 {
	a := fp2Sub(fp2Sqr(e.c0), fp2MulByNonResidue(fp2Mul(e.c1, e.c2)))
	b := fp2Sub(fp2MulByNonResidue(fp2Sqr(e.c2)), fp2Mul(e.c0, e.c1))
	c := fp2Sub(fp2Sqr(e.c1), fp2Mul(e.c0, e.c2))

	f := fp2Add(fp2Mul(e.c0, a),
		fp2MulByNonResidue(fp2Add(fp2Mul(e.c2, b), fp2Mul(e.c1, c))))
	fInv := fp2Inv(f)

	return &fp6{
		c0: fp2Mul(a, fInv),
		c1: fp2Mul(b, fInv),
		c2: fp2Mul(c, fInv),
	}
}

// fp6MulByFp2 multiplies an fp6 element by an fp2 scalar (in the c0 position).
func fp6MulByFp2(e *fp6, s *fp2) *fp6 {
	return &fp6{
		c0: fp2Mul(e.c0, s),
		c1: fp2Mul(e.c1, s),
		c2: fp2Mul(e.c2, s),
	}
}

// fp6MulByV multiplies an fp6 element by v. In F_p^6 = F_p^2[v]/(v^3-xi),
// multiplying by v shifts: (c0 + c1*v + c2*v^2) * v = c2*xi + c0*v + c1*v^2.
func fp6MulByV(e *fp6) *fp6 {
	return &fp6{
		c0: fp2MulByNonResidue(e.c2),
		c1: newFp2(e.c0.a0, e.c0.a1),
		c2: newFp2(e.c1.a0, e.c1.a1),
	}
}

// fp12 represents an element of F_p^12 as (c0 + c1*w), c_i in F_p^6. This is
// the pairing's target group: G_T lives in F_p^12.
type fp12 struct {
	c0, c1 *fp6
}

func fp12Zero() *fp12 {
	return &fp12{c0: fp6Zero(), c1: fp6Zero()}
}

func fp12One() *fp12 {
	return &fp12{c0: fp6One(), c1: fp6Zero()}
}

func (e *fp12) isOne() bool {
	return !e.c0.c0.isZero() &&
		e.c0.c0.a0.Cmp(big.NewInt(1)) == 0 &&
		e.c0.c0.a1.Sign() == 0 &&
		e.c0.c1.isZero() && e.c0.c2.isZero() &&
		e.c1.isZero()
}

// fp12Mul returns e * f: (a + b*w)(c + d*w) = (ac + bd*v) + (ad + bc)*w,
// where bd*v shifts bd's F_p^6 coefficients via fp6MulByV.
func fp12Mul(e, f *fp12) *fp12 {
	t1 := fp6Mul(e.c0, f.c0)
	t2 := fp6Mul(e.c1, f.c1)

	c0 := fp6Add(t1, fp6MulByV(t2))
	c1 := fp6Sub(fp6Sub(fp6Mul(fp6Add(e.c0, e.c1), fp6Add(f.c0, f.c1)), t1), t2)

	return &fp12{c0: c0, c1: c1}
}

// fp12Sqr returns e^2: a^2 + b^2*v for c0, 2ab for c1.
func fp12Sqr(e *fp12) *fp12 {
	ab := fp6Mul(e.c0, e.c1)

	t := fp6Add(e.c0, e.c1)
	u := fp6Add(e.c0, fp6MulByV(e.c1))
	c0 := fp6Sub(fp6Sub(fp6Mul(t, u), ab), fp6MulByV(ab))
	c1 := fp6Add(ab, ab)

	return &fp12{c0: c0, c1: c1}
}

// fp12Inv returns e^(-1): (a + b*w)^(-1) = (a - b*w) / (a^2 - b^2*v).
func fp12Inv(e *fp12) *fp12 {
	t := fp6Sub(fp6Sqr(e.c0), fp6MulByV(fp6Sqr(e.c1)))
	tInv := fp6Inv(t)
	return &fp12{
		c0: fp6Mul(e.c0, tInv),
		c1: fp6Neg(fp6Mul(e.c1, tInv)),
	}
}

// fp12Conj returns the "conjugate" e.c0 - e.c1*w. For unitary elements
// (norm=1, which the pairing's output always is) this equals the inverse.
func fp12Conj(e *fp12) *fp12 {
	return &fp12{
		c0: &fp6{
			c0: newFp2(e.c0.c0.a0, e.c0.c0.a1),
			c1: newFp2(e.c0.c1.a0, e.c0.c1.a1),
			c2: newFp2(e.c0.c2.a0, e.c0.c2.a1),
		},
		c1: fp6Neg(e.c1),
	}
}

// fp12Exp raises e to the power k in F_p^12 via square-and-multiply.
func fp12Exp(e *fp12, k *big.Int) *fp12 {
	if k.Sign() == 0 {
		return fp12One()
	}
	r := fp12One()
	base := &fp12{
		c0: &fp6{
			c0: newFp2(e.c0.c0.a0, e.c0.c0.a1),
			c1: newFp2(e.c0.c1.a0, e.c0.c1.a1),
			c2: newFp2(e.c0.c2.a0, e.c0.c2.a1),
		},
		c1: &fp6{
			c0: newFp2(e.c1.c0.a0, e.c1.c0.a1),
			c1: newFp2(e.c1.c1.a0, e.c1.c1.a1),
			c2: newFp2(e.c1.c2.a0, e.c1.c2.a1),
		},
	}
	for i := k.BitLen() - 1; i >= 0; i-- {
		r = fp12Sqr(r)
		if k.Bit(i) == 1 {
			r = fp12Mul(r, base)
		}
	}
	return r
}
