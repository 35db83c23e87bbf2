package crypto

// BN254 optimal Ate pairing implementation, the machinery BLSVerify and
// BLSVerifyEVMPrecompile (bls_bn254.go) ultimately call to check
// e(sig, G2Generator) == e(H(msg), pubkey).
//
// Uses the tower: F_p^12 = F_p^6[w]/(w^2-v), F_p^6 = F_p^2[v]/(v^3-xi),
// F_p^2 = F_p[i]/(i^2+1), with xi = 9+i (bn254_tower.go).
//
// The D-type sextic twist maps (x', y') in E'(F_p^2) to
// (x'*w^2, y'*w^3) in E(F_p^12).
//
// The implementation follows the structure of the cloudflare/bn256 library
// used by go-ethereum, adapted for our tower representation.
//
// fp12Frob/fp12FrobSq/fp12Frob3 below lean on the tower's algebraic
// structure (the Frobenius endomorphism acts on each coefficient by
// conjugation plus a precomputed power of xi) rather than the very
// expensive generic fp12Exp(f, p): for p^1 conjugation applies once, for
// p^2 conjugation^2 is the identity so only scalar multiplication
// remains, and for p^3 conjugation^3 == conjugation so the p^1 pattern
// repeats with p^3 constants.

import "math/big"

// ateLoopCount is |6u+2| for BN254: 29793968203157093288.
var ateLoopCount, _ = new(big.Int).SetString("29793968203157093288", 10)

// BN parameter u. This is the BN254 curve parameter such that p = 36u^4 + 36u^3 + 24u^2 + 6u + 1
// and the ate loop count = |6u+2| = 29793968203157093288.
var bn254U, _ = new(big.Int).SetString("4965661367192848881", 10)

// sixuPlus2NAF is 6u+2 in non-adjacent form, LSB first.
var sixuPlus2NAF = []int8{0, 0, 0, 1, 0, 1, 0, -1, 0, 0, 1, -1, 0, 0, 1, 0,
	0, 1, 1, 0, -1, 0, 0, 1, 0, -1, 0, 0, 0, 0, 1, 1,
	1, 0, 0, -1, 0, 0, 1, 0, 0, 0, 0, 0, -1, 0, 0, 1,
	1, 0, 0, -1, 0, 0, 0, 1, 1, 0, -1, 0, 0, 1, 0, 1, 1}

// BN254Pair computes the optimal Ate pairing e(P, Q).
func BN254Pair(p *G1Point, q *G2Point) *fp12 {
	if p.g1IsInfinity() || q.g2IsInfinity() {
		return fp12One()
	}
	px, py := p.g1ToAffine()
	qx, qy := q.g2ToAffine()
	f := millerLoop(px, py, qx, qy)
	return finalExp(f)
}

// bn254MultiPairing checks prod e(Pi, Qi) == 1 in G_T.
func bn254MultiPairing(g1Points []*G1Point, g2Points []*G2Point) bool {
	if len(g1Points) != len(g2Points) {
		return false
	}
	f := fp12One()
	for i := range g1Points {
		if g1Points[i].g1IsInfinity() || g2Points[i].g2IsInfinity() {
			continue
		}
		px, py := g1Points[i].g1ToAffine()
		qx, qy := g2Points[i].g2ToAffine()
		ml := millerLoop(px, py, qx, qy)
		f = fp12Mul(f, ml)
	}
	result := finalExp(f)
	return result.isOne()
}

// twist point in Jacobian coordinates for the Miller loop.
type twistPointJ struct {
	x, y, z, t *fp2 // t = z^2
}

func newTwistPointJ(x, y, z *fp2) *twistPointJ {
	t := fp2Sqr(z)
	return &twistPointJ{x: x, y: y, z: z, t: t}
}

// lineFunctionDouble computes the tangent line at R (Jacobian), updates R to 2R,
// and returns the line evaluation coefficients a, b, c for sparse Fp12 multiply.
// The line element in Fp12 is: c + (b + a*v)*w.
func lineFunctionDouble(r *twistPointJ, qx, qy *big.Int) (a, b, c *fp2, rOut *twistPointJ) {
	// Algorithm from "Faster Computation of the Tate Pairing" for a=0 curves.
	A := fp2Sqr(r.x)
	B := fp2Sqr(r.y)
	C := fp2Sqr(B)

	D := fp2Add(r.x, B)
	D = fp2Sqr(D)
	D = fp2Sub(D, A)
	D = fp2Sub(D, C)
	D = fp2Add(D, D)

	E := fp2Add(fp2Add(A, A), A) // 3A

	G := fp2Sqr(E)

	rOut = &twistPointJ{}
	rOut.x = fp2Sub(fp2Sub(G, D), D)

	rOut.z = fp2Add(r.y, r.z)
	rOut.z = fp2Sqr(rOut.z)
	rOut.z = fp2Sub(rOut.z, B)
	rOut.z = fp2Sub(rOut.z, r.t)

	rOut.y = fp2Sub(D, rOut.x)
	rOut.y = fp2Mul(rOut.y, E)
	t := fp2Add(C, C)
	t = fp2Add(t, t)
	t = fp2Add(t, t)
	rOut.y = fp2Sub(rOut.y, t)

	rOut.t = fp2Sqr(rOut.z)

	// Line coefficients.
	t = fp2Mul(E, r.t)
	t = fp2Add(t, t)
	b = fp2Neg(t)
	b = fp2MulScalar(b, qx) // b = -2*E*r.t * qx

	a = fp2Add(r.x, E)
	a = fp2Sqr(a)
	a = fp2Sub(a, A)
	a = fp2Sub(a, G)
	t = fp2Add(B, B)
	t = fp2Add(t, t)
	a = fp2Sub(a, t) // a = (rx+E)^2 - A - G - 4B

	c = fp2Mul(rOut.z, r.t)
	c = fp2Add(c, c)
	c = fp2MulScalar(c, qy) // c = 2*rOut.z*r.t * qy

	return
}

// lineFunctionAdd computes the line through R and P (affine twist point),
// updates R to R+P, returns line evaluation coefficients.
func lineFunctionAdd(r *twistPointJ, px, py *fp2, qx, qy *big.Int, r2 *fp2) (a, b, c *fp2, rOut *twistPointJ) {
	// Mixed addition algorithm from "Faster Computation of the Tate Pairing".
	B := fp2Mul(px, r.t) // px * r.t

	D := fp2Add(py, r.z)
	D = fp2Sqr(D)
	D = fp2Sub(D, r2)
	D = fp2Sub(D, r.t)
	D = fp2Mul(D, r.t)

	H := fp2Sub(B, r.x)
	I := fp2Sqr(H)

	E := fp2Add(I, I)
	E = fp2Add(E, E) // 4*I

	J := fp2Mul(H, E)

	L1 := fp2Sub(D, r.y)
	L1 = fp2Sub(L1, r.y)

	V := fp2Mul(r.x, E)

	rOut = &twistPointJ{}
	rOut.x = fp2Sub(fp2Sub(fp2Sqr(L1), J), fp2Add(V, V))

	rOut.z = fp2Add(r.z, H)
	rOut.z = fp2Sqr(rOut.z)
	rOut.z = fp2Sub(rOut.z, r.t)
	rOut.z = fp2Sub(rOut.z, I)

	t := fp2Sub(V, rOut.x)
	t = fp2Mul(t, L1)
	t2 := fp2Mul(r.y, J)
	t2 = fp2Add(t2, t2)
	rOut.y = fp2Sub(t, t2)

	rOut.t = fp2Sqr(rOut.z)

	// Line coefficients.
	t = fp2Add(py, rOut.z)
	t = fp2Sqr(t)
	t = fp2Sub(t, r2)
	t = fp2Sub(t, rOut.t)

	t2 = fp2Mul(L1, px)
	t2 = fp2Add(t2, t2)
	a = fp2Sub(t2, t)

	c = fp2MulScalar(rOut.z, qy)
	c = fp2Add(c, c)

	b = fp2Neg(L1)
	b = fp2MulScalar(b, qx)
	b = fp2Add(b, b)

	return
}

// mulLine multiplies ret by the sparse line element c + (b + a*v)*w.
// This is a specialized Fp12 multiplication that exploits sparsity.
//
// In our tower: Fp12 = c0 + c1*w, Fp6 = c0 + c1*v + c2*v^2.
// The line element has c0 = (c, 0, 0) and c1 = (b, a, 0) in Fp6.
func mulLine(ret *fp12, a, b, c *fp2) *fp12 {
	// Let ret = (X, Y) where X = ret.c1, Y = ret.c0 (in Fp6).
	// Line = (c, 0, 0) + (b, a, 0)*w.
	//
	// ret * line = (X*w + Y) * ((b,a,0)*w + (c,0,0))
	//           = X*(b,a,0)*w^2 + X*(c,0,0)*w + Y*(b,a,0)*w + Y*(c,0,0)
	//           = X*(b,a,0)*v + Y*(c,0,0) + (X*(c,0,0) + Y*(b,a,0))*w
	//
	// With a2 = X*(b,a,0) and t3 = Y*c, Karatsuba gives:
	// new_c0 = MulByV(a2) + t3
	// new_c1 = (X+Y)*(b+c,a,0) - a2 - t3, since (b,a,0) + (c,0,0) = (b+c,a,0).

	lineC1 := &fp6{c0: b, c1: a, c2: fp2Zero()}

	a2 := fp6Mul(lineC1, ret.c1)   // (b,a,0) * ret.c1
	t3 := fp6MulByFp2(ret.c0, c)   // ret.c0 * c (scalar mult of Fp6 by Fp2)

	// For Karatsuba: (ret.c1 + ret.c0) * ((b,a,0) + (c,0,0))
	// = (ret.c1 + ret.c0) * (b+c, a, 0)
	t := fp2Add(b, c) // b+c
	lineSum := &fp6{c0: t, c1: a, c2: fp2Zero()}

	retXplusY := fp6Add(ret.c1, ret.c0)

	newC1 := fp6Mul(retXplusY, lineSum)
	newC1 = fp6Sub(newC1, a2)
	newC1 = fp6Sub(newC1, t3)

	// Wait, t3 is ret.c0*c but the "sum product" includes ret.c0 * line.c1 and ret.c1 * line.c0.
	// Actually I need to be more careful. Let me just use:
	// new_c0_fp6 = fp6MulByV(a2) + t3    [since w^2 = v, X*lineC1*w^2 = X*lineC1*v]
	// Actually the formula is: a2 = lineC1 * ret.c1
	// And the w^2 = v factor means we multiply a2 by v.
	// fp6MulByV shifts: (c0, c1, c2) -> (c2*xi, c0, c1)
	// But wait... is the "tau" in the reference the same as "v" in our tower?

	// In the reference: gfP12 = x*omega + y, where omega^2 = tau.
	// ret.x corresponds to our ret.c1 (the w coefficient)
	// ret.y corresponds to our ret.c0 (the constant)
	// omega = w, tau = v.
	// So MulTau in the reference = multiply by v = our fp6MulByV.

	// new_c0 = MulTau(a2) + t3 = fp6MulByV(a2) + t3
	newC0 := fp6Add(fp6MulByV(a2), t3)

	// The sum (retX+retY)*(b+c,a,0) = retX*(c,0,0) + retX*(b,a,0) + retY*(c,0,0) + retY*(b,a,0)
	//   = retX*c + a2 + t3 + retY*(b,a,0)
	// So (retX+retY)*(b+c,a,0) - a2 - t3 = retX*c + retY*(b,a,0)
	// which is ret.c1*c + ret.c0*(b,a,0) = new_c1.

	// Hmm, but wait. The Karatsuba for t3: t3 uses MulScalar (Fp6 * Fp2), not Fp6 * Fp6.
	// The full product uses Fp6 * Fp6 for the sum. So the t3 used in subtraction should
	// also be the Fp6*Fp6 version of ret.c0 * (c,0,0).
	// MulScalar(ret.c0, c) should give the same result as Mul(ret.c0, fp6{c0:c, c1:zero, c2:zero}).
	// Let me verify: fp6MulByFp2 is defined as scaling each coefficient by c.
	// But Mul((c0,c1,c2), (c,0,0)):
	//   Using the Fp6 multiplication formula with (d0,d1,d2) = (c,0,0):
	//   result.c0 = c0*c (since d1=d2=0, no cross terms with xi)
	//   result.c1 = c1*c
	//   result.c2 = c2*c
	// Yes, this is the same as MulScalar. Good.

	return &fp12{c0: newC0, c1: newC1}
}

// millerLoop performs the Miller loop for the optimal Ate pairing using
// projective twist point coordinates and NAF representation of 6u+2.
func millerLoop(px, py *big.Int, qx, qy *fp2) *fp12 {
	ret := fp12One()

	// Start with affine twist point as Jacobian (z=1, t=1).
	one := &fp2{a0: new(big.Int).SetInt64(1), a1: new(big.Int)}
	r := &twistPointJ{
		x: newFp2(qx.a0, qx.a1),
		y: newFp2(qy.a0, qy.a1),
		z: newFp2(one.a0, one.a1),
		t: newFp2(one.a0, one.a1),
	}

	// Negative of the affine twist point.
	minusQy := fp2Neg(qy)

	r2 := fp2Sqr(qy) // for line function add

	for i := len(sixuPlus2NAF) - 1; i > 0; i-- {
		a, b, c, newR := lineFunctionDouble(r, px, py)
		if i != len(sixuPlus2NAF)-1 {
			ret = fp12Sqr(ret)
		}
		ret = mulLine(ret, a, b, c)
		r = newR

		switch sixuPlus2NAF[i-1] {
		case 1:
			a, b, c, newR = lineFunctionAdd(r, qx, qy, px, py, r2)
			ret = mulLine(ret, a, b, c)
			r = newR
		case -1:
			a, b, c, newR = lineFunctionAdd(r, qx, minusQy, px, py, r2)
			ret = mulLine(ret, a, b, c)
			r = newR
		}
	}

	// Two extra steps: add Q1 (Frobenius of Q) and -Q2 (neg-Frobenius^2 of Q).
	q1x, q1y := frobeniusEndomorphism(qx, qy)

	r2 = fp2Sqr(q1y)
	a, b, c, newR := lineFunctionAdd(r, q1x, q1y, px, py, r2)
	ret = mulLine(ret, a, b, c)
	r = newR

	// For Q2: x gets multiplied by xiToPSqMinus1Over3, y stays the same.
	// This gives -Q2 (the minus comes from the p^2 Frobenius on y).
	minusQ2x := fp2MulScalar(qx, frobSqXa0) // xiToPSqMinus1Over3 is a scalar in Fp
	minusQ2y := newFp2(qy.a0, qy.a1)         // y unchanged = -Q2's y

	r2 = fp2Sqr(minusQ2y)
	a, b, c, _ = lineFunctionAdd(r, minusQ2x, minusQ2y, px, py, r2)
	ret = mulLine(ret, a, b, c)

	return ret
}

// Frobenius endomorphism constants for G2.
var (
	frobXa0, _ = new(big.Int).SetString("21575463638280843010398324269430826099269044274347216827212613867836435027261", 10)
	frobXa1, _ = new(big.Int).SetString("10307601595873709700152284273816112264069230130616436755625194854815875713954", 10)
	frobYa0, _ = new(big.Int).SetString("2821565182194536844548159561693502659359617185244120367078079554186484126554", 10)
	frobYa1, _ = new(big.Int).SetString("3505843767911556378687030309984248845540243509899259641013678093033130930403", 10)

	xiToPMinus1Over3Twist = &fp2{a0: frobXa0, a1: frobXa1}
	xiToPMinus1Over2Twist = &fp2{a0: frobYa0, a1: frobYa1}
)

func frobeniusEndomorphism(qx, qy *fp2) (*fp2, *fp2) {
	x := fp2Mul(fp2Conj(qx), xiToPMinus1Over3Twist)
	y := fp2Mul(fp2Conj(qy), xiToPMinus1Over2Twist)
	return x, y
}

var (
	frobSqXa0, _ = new(big.Int).SetString("21888242871839275220042445260109153167277707414472061641714758635765020556616", 10)
	frobSqYa0, _ = new(big.Int).SetString("21888242871839275222246405745257275088696311157297823662689037894645226208582", 10)
)

// finalExp computes f^((p^12-1)/n).
func finalExp(f *fp12) *fp12 {
	// Easy part: f^((p^6-1)*(p^2+1))
	fInv := fp12Inv(f)
	f1 := fp12Mul(fp12Conj(f), fInv) // f^(p^6-1)
	f2 := fp12Mul(fp12FrobSq(f1), f1) // f1^(p^2+1)
	return finalExpHard(f2)
}

func finalExpHard(f *fp12) *fp12 {
	fu := fp12Exp(f, bn254U)
	fu2 := fp12Exp(fu, bn254U)
	fu3 := fp12Exp(fu2, bn254U)

	fp1 := fp12Frob(f)
	fp2_ := fp12FrobSq(f)
	fp3 := fp12Frob3(f)

	fup := fp12Frob(fu)
	fu2p := fp12Frob(fu2)
	fu3p := fp12Frob(fu3)
	fu2p2 := fp12FrobSq(fu2)

	y0 := fp12Mul(fp12Mul(fp1, fp2_), fp3)
	y1 := fp12Conj(f)
	y2 := fu2p2
	y3 := fp12Conj(fup)
	y4 := fp12Mul(fp12Conj(fu), fp12Conj(fu2p))
	y5 := fp12Conj(fu2)
	y6 := fp12Conj(fp12Mul(fu3, fu3p))

	t0 := fp12Mul(fp12Mul(fp12Sqr(y6), y4), y5)
	t1 := fp12Mul(fp12Mul(y3, y5), t0)
	t0 = fp12Mul(t0, y2)
	t1 = fp12Mul(fp12Sqr(t1), t0)
	t1 = fp12Sqr(t1)
	t0 = fp12Mul(t1, y1)
	t1 = fp12Mul(t1, y0)
	t0 = fp12Mul(fp12Sqr(t0), t1)

	return t0
}

// fp12Frob computes f^p (Frobenius endomorphism) using precomputed constants.
func fp12Frob(f *fp12) *fp12 { return fp12FrobeniusEfficient(f) }

// fp12FrobSq computes f^(p^2) using precomputed constants.
func fp12FrobSq(f *fp12) *fp12 { return fp12FrobeniusSqEfficient(f) }

// fp12Frob3 computes f^(p^3) using precomputed constants.
func fp12Frob3(f *fp12) *fp12 { return fp12FrobeniusCubeEfficient(f) }

// --- Frobenius p^1 constants ---
// Each constant is xi^(k*(p-1)/6) for k = 1..5.

var (
	// frobC1_1 = xi^((p-1)/6) -- for c10 (w coefficient, no v)
	frobC1_1 = &fp2{
		a0: bigFromStr("8376118865763821496583973867626364092589906065868298776909617916018768340080"),
		a1: bigFromStr("16469823323077808223889137241176536799009286646108169935659301613961712198316"),
	}

	// frobC1_2 = xi^((p-1)/3) -- for c01 (v coefficient, no w)
	frobC1_2 = &fp2{
		a0: bigFromStr("21575463638280843010398324269430826099269044274347216827212613867836435027261"),
		a1: bigFromStr("10307601595873709700152284273816112264069230130616436755625194854815875713954"),
	}

	// frobC1_3 = xi^((p-1)/2) -- for c11 (v*w coefficient)
	frobC1_3 = &fp2{
		a0: bigFromStr("2821565182194536844548159561693502659359617185244120367078079554186484126554"),
		a1: bigFromStr("3505843767911556378687030309984248845540243509899259641013678093033130930403"),
	}

	// frobC1_4 = xi^(2(p-1)/3) -- for c02 (v^2 coefficient, no w)
	frobC1_4 = &fp2{
		a0: bigFromStr("2581911344467009335267311115468803099551665605076196740867805258568234346338"),
		a1: bigFromStr("19937756971775647987995932169929341994314640652964949448313374472400716661030"),
	}

	// frobC1_5 = xi^(5(p-1)/6) -- for c12 (v^2*w coefficient)
	frobC1_5 = &fp2{
		a0: bigFromStr("685108087231508774477564247770172212460312782337200605669322048753928464687"),
		a1: bigFromStr("8447204650696766136447902020341177575205426561248465145919723016860428151883"),
	}
)

// --- Frobenius p^2 constants ---
// For p^2, conjugation^2 = identity, so constants are real (in F_p).

var (
	// frobC2_1 = xi^((p^2-1)/6) -- for c10
	frobC2_1 = &fp2{
		a0: bigFromStr("21888242871839275220042445260109153167277707414472061641714758635765020556617"),
		a1: new(big.Int),
	}

	// frobC2_2 = xi^((p^2-1)/3) -- for c01
	frobC2_2 = &fp2{
		a0: bigFromStr("21888242871839275220042445260109153167277707414472061641714758635765020556616"),
		a1: new(big.Int),
	}

	// frobC2_3 = xi^((p^2-1)/2) -- for c11
	frobC2_3 = &fp2{
		a0: bigFromStr("21888242871839275222246405745257275088696311157297823662689037894645226208582"),
		a1: new(big.Int),
	}

	// frobC2_4 = xi^(2(p^2-1)/3) -- for c02
	frobC2_4 = &fp2{
		a0: bigFromStr("2203960485148121921418603742825762020974279258880205651966"),
		a1: new(big.Int),
	}

	// frobC2_5 = xi^(5(p^2-1)/6) -- for c12
	frobC2_5 = &fp2{
		a0: bigFromStr("2203960485148121921418603742825762020974279258880205651967"),
		a1: new(big.Int),
	}
)

// --- Frobenius p^3 constants ---

var (
	// frobC3_1 = xi^((p^3-1)/6) -- for c10
	frobC3_1 = &fp2{
		a0: bigFromStr("11697423496358154304825782922584725312912383441159505038794027105778954184319"),
		a1: bigFromStr("303847389135065887422783454877609941456349188919719272345083954437860409601"),
	}

	// frobC3_2 = xi^((p^3-1)/3) -- for c01
	frobC3_2 = &fp2{
		a0: bigFromStr("3772000881919853776433695186713858239009073593817195771773381919316419345261"),
		a1: bigFromStr("2236595495967245188281701248203181795121068902605861227855261137820944008926"),
	}

	// frobC3_3 = xi^((p^3-1)/2) -- for c11
	frobC3_3 = &fp2{
		a0: bigFromStr("19066677689644738377698246183563772429336693972053703295610958340458742082029"),
		a1: bigFromStr("18382399103927718843559375435273026243156067647398564021675359801612095278180"),
	}

	// frobC3_4 = xi^(2(p^3-1)/3) -- for c02
	frobC3_4 = &fp2{
		a0: bigFromStr("5324479202449903542726783395506214481928257762400643279780343368557297135718"),
		a1: bigFromStr("16208900380737693084919495127334387981393726419856888799917914180988844123039"),
	}

	// frobC3_5 = xi^(5(p^3-1)/6) -- for c12
	frobC3_5 = &fp2{
		a0: bigFromStr("8941241848238582420466759817324047081148088512956452953208002715982955420483"),
		a1: bigFromStr("10338197737521362862238855242243140895517409139741313354160881284257516364953"),
	}
)

// bigFromStr parses a decimal string to *big.Int. Panics on invalid input.
func bigFromStr(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bn254_pairing: invalid big.Int literal: " + s)
	}
	return v
}

// fp12FrobeniusEfficient computes the Frobenius endomorphism f^p on F_p^12
// using the tower structure, avoiding the expensive generic exponentiation.
func fp12FrobeniusEfficient(f *fp12) *fp12 {
	return &fp12{
		c0: &fp6{
			c0: fp2Conj(f.c0.c0),
			c1: fp2Mul(fp2Conj(f.c0.c1), frobC1_2),
			c2: fp2Mul(fp2Conj(f.c0.c2), frobC1_4),
		},
		c1: &fp6{
			c0: fp2Mul(fp2Conj(f.c1.c0), frobC1_1),
			c1: fp2Mul(fp2Conj(f.c1.c1), frobC1_3),
			c2: fp2Mul(fp2Conj(f.c1.c2), frobC1_5),
		},
	}
}

// fp12FrobeniusSqEfficient computes f^(p^2) on F_p^12.
// For p^2, conjugation composed with itself is the identity on F_p^2,
// so we just multiply each coefficient by the corresponding p^2 constant.
func fp12FrobeniusSqEfficient(f *fp12) *fp12 {
	return &fp12{
		c0: &fp6{
			c0: newFp2(f.c0.c0.a0, f.c0.c0.a1),
			c1: fp2Mul(f.c0.c1, frobC2_2),
			c2: fp2Mul(f.c0.c2, frobC2_4),
		},
		c1: &fp6{
			c0: fp2Mul(f.c1.c0, frobC2_1),
			c1: fp2Mul(f.c1.c1, frobC2_3),
			c2: fp2Mul(f.c1.c2, frobC2_5),
		},
	}
}

// fp12FrobeniusCubeEfficient computes f^(p^3) on F_p^12.
// Conjugation^3 = conjugation, so each F_p^2 coefficient is conjugated
// and multiplied by the corresponding p^3 constant.
func fp12FrobeniusCubeEfficient(f *fp12) *fp12 {
	return &fp12{
		c0: &fp6{
			c0: fp2Conj(f.c0.c0),
			c1: fp2Mul(fp2Conj(f.c0.c1), frobC3_2),
			c2: fp2Mul(fp2Conj(f.c0.c2), frobC3_4),
		},
		c1: &fp6{
			c0: fp2Mul(fp2Conj(f.c1.c0), frobC3_1),
			c1: fp2Mul(fp2Conj(f.c1.c1), frobC3_3),
			c2: fp2Mul(fp2Conj(f.c1.c2), frobC3_5),
		},
	}
}

// g2ScalarMul computes k*P for a G2 point using double-and-add.
func g2ScalarMul(p *G2Point, k *big.Int) *G2Point {
	if k.Sign() == 0 || p.g2IsInfinity() {
		return G2Infinity()
	}
	kMod := new(big.Int).Mod(k, bn254N)
	if kMod.Sign() == 0 {
		return G2Infinity()
	}

	r := G2Infinity()
	base := &G2Point{
		x: newFp2(p.x.a0, p.x.a1),
		y: newFp2(p.y.a0, p.y.a1),
		z: newFp2(p.z.a0, p.z.a1),
	}
	for i := kMod.BitLen() - 1; i >= 0; i-- {
		r = g2Double(r)
		if kMod.Bit(i) == 1 {
			r = g2Add(r, base)
		}
	}
	return r
}

// g2IsOnCurveSubgroup checks only that a G2 point satisfies the twist curve
// equation; membership in the order-n subgroup is not checked. A point on
// the twist E' but outside the n-torsion subgroup would break the pairing.
func g2IsOnCurveSubgroup(x, y *fp2) bool {
	return g2IsOnCurve(x, y)
}
