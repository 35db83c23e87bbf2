// Schnorr signatures over EdOnBN254, the twisted-Edwards curve embedded in
// BN254's scalar field (domain CS_ID_SCHNORR), used by validators to sign
// light-client state updates. Points use an affine twisted-Edwards
// representation over EdOnBN254's field and curve constants.
package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// CSIDSchnorr is the domain separation tag for Schnorr signing over
// EdOnBN254.
const CSIDSchnorr = "CS_ID_SCHNORR"

// EdOnBN254 curve parameters: a*x^2 + y^2 = 1 + d*x^2*y^2 over F_r, where
// r is the BN254 scalar field (bn254N). These are the standard
// "Baby Jubjub" constants, the canonical twisted Edwards curve embedded
// in BN254's Fr. (edGenX, edGenY) generates the prime-order subgroup of
// order edOrder, the range secret keys and nonces are drawn from.
var (
	edA, _     = new(big.Int).SetString("168700", 10)
	edD, _     = new(big.Int).SetString("168696", 10)
	edGenX, _  = new(big.Int).SetString("5299619240641551281634865583518297030282874472190772894086521144482721001553", 10)
	edGenY, _  = new(big.Int).SetString("16950150798460657717958625567821834550301663161624707787222815936182638968203", 10)
	edOrder, _ = new(big.Int).SetString("2736030358979909402780800718157159386076813972158567259200215660948447373041", 10)
)

var (
	ErrSchnorrInvalidSecretKey = errors.New("schnorr_bn254: invalid secret key")
	ErrSchnorrInvalidVK        = errors.New("schnorr_bn254: invalid verification key encoding")
	ErrSchnorrVerifyFailed     = errors.New("schnorr_bn254: signature verification failed")
)

func edMod(x *big.Int) *big.Int { return new(big.Int).Mod(x, bn254N) }
func edAdd(a, b *big.Int) *big.Int {
	return edMod(new(big.Int).Add(a, b))
}
func edSub(a, b *big.Int) *big.Int {
	return edMod(new(big.Int).Sub(a, b))
}
func edMul(a, b *big.Int) *big.Int {
	return edMod(new(big.Int).Mul(a, b))
}
func edInv(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, bn254N)
}

// edPoint is an affine point on EdOnBN254.
type edPoint struct {
	x, y *big.Int
}

func edIdentity() *edPoint {
	return &edPoint{x: big.NewInt(0), y: big.NewInt(1)}
}

func edGenerator() *edPoint {
	return &edPoint{x: new(big.Int).Set(edGenX), y: new(big.Int).Set(edGenY)}
}

// edAddPoints performs the standard twisted-Edwards unified addition law.
func edAddPoints(p1, p2 *edPoint) *edPoint {
	x1y2 := edMul(p1.x, p2.y)
	y1x2 := edMul(p1.y, p2.x)
	y1y2 := edMul(p1.y, p2.y)
	x1x2 := edMul(p1.x, p2.x)
	dx1x2y1y2 := edMul(edD, edMul(x1x2, y1y2))

	x3 := edMul(edAdd(x1y2, y1x2), edInv(edAdd(big.NewInt(1), dx1x2y1y2)))
	y3 := edMul(edSub(y1y2, edMul(edA, x1x2)), edInv(edSub(big.NewInt(1), dx1x2y1y2)))
	return &edPoint{x: x3, y: y3}
}

// edScalarMul computes k*P via double-and-add.
func edScalarMul(p *edPoint, k *big.Int) *edPoint {
	kMod := new(big.Int).Mod(k, edOrder)
	r := edIdentity()
	base := p
	for i := kMod.BitLen() - 1; i >= 0; i-- {
		r = edAddPoints(r, r)
		if kMod.Bit(i) == 1 {
			r = edAddPoints(r, base)
		}
	}
	return r
}

func edIsOnCurve(p *edPoint) bool {
	x2 := edMul(p.x, p.x)
	y2 := edMul(p.y, p.y)
	lhs := edAdd(edMul(edA, x2), y2)
	rhs := edAdd(big.NewInt(1), edMul(edD, edMul(x2, y2)))
	return lhs.Cmp(rhs) == 0
}

// SchnorrSecretKey is a scalar in [1, edOrder).
type SchnorrSecretKey struct {
	s *big.Int
}

// SchnorrVK is a point on EdOnBN254.
type SchnorrVK struct {
	point *edPoint
}

// SchnorrSignature is (R, s): a commitment point and a response scalar.
type SchnorrSignature struct {
	r *edPoint
	s *big.Int
}

// GenerateSchnorrKey samples a uniformly random secret key and derives
// its EdOnBN254 verification key.
func GenerateSchnorrKey() (*SchnorrSecretKey, *SchnorrVK, error) {
	s, err := rand.Int(rand.Reader, edOrder)
	if err != nil {
		return nil, nil, err
	}
	if s.Sign() == 0 {
		return GenerateSchnorrKey()
	}
	return deriveSchnorrKey(s)
}

func deriveSchnorrKey(s *big.Int) (*SchnorrSecretKey, *SchnorrVK, error) {
	if s.Sign() <= 0 || s.Cmp(edOrder) >= 0 {
		return nil, nil, ErrSchnorrInvalidSecretKey
	}
	vk := edScalarMul(edGenerator(), s)
	return &SchnorrSecretKey{s: new(big.Int).Set(s)}, &SchnorrVK{point: vk}, nil
}

// SchnorrKeyFromScalar rebuilds a key pair from a known scalar, used when
// loading a key-file's private state key.
func SchnorrKeyFromScalar(s *big.Int) (*SchnorrSecretKey, *SchnorrVK, error) {
	return deriveSchnorrKey(s)
}

// Marshal serializes the verification key as 64 bytes (X || Y), each
// big-endian over Fr.
func (vk *SchnorrVK) Marshal() []byte {
	out := make([]byte, 64)
	xb := vk.point.x.Bytes()
	yb := vk.point.y.Bytes()
	copy(out[32-len(xb):32], xb)
	copy(out[64-len(yb):64], yb)
	return out
}

// UnmarshalSchnorrVK parses the 64-byte encoding produced by Marshal.
func UnmarshalSchnorrVK(data []byte) (*SchnorrVK, error) {
	if len(data) != 64 {
		return nil, ErrSchnorrInvalidVK
	}
	x := new(big.Int).SetBytes(data[0:32])
	y := new(big.Int).SetBytes(data[32:64])
	return &SchnorrVK{point: &edPoint{x: x, y: y}}, nil
}

// Marshal serializes the signature as 96 bytes (R.X || R.Y || s).
func (sig *SchnorrSignature) Marshal() []byte {
	out := make([]byte, 96)
	rx := sig.r.x.Bytes()
	ry := sig.r.y.Bytes()
	sb := sig.s.Bytes()
	copy(out[32-len(rx):32], rx)
	copy(out[64-len(ry):64], ry)
	copy(out[96-len(sb):96], sb)
	return out
}

// SchnorrSign signs a field element msg (already reduced via
// HashBytesToField, per CS_ID_SCHNORR's convention of signing
// hash_bytes_to_field(abi_encode(account))).
//
//	k   <-$ [1, order)
//	R   := k*G
//	e   := HashBytesToField(CS_ID_SCHNORR, R, VK, msg)
//	s   := k + e*sk mod order
func SchnorrSign(sk *SchnorrSecretKey, vk *SchnorrVK, msg *big.Int) (*SchnorrSignature, error) {
	k, err := rand.Int(rand.Reader, edOrder)
	if err != nil {
		return nil, err
	}
	if k.Sign() == 0 {
		return SchnorrSign(sk, vk, msg)
	}
	r := edScalarMul(edGenerator(), k)
	e := schnorrChallenge(r, vk, msg)
	s := new(big.Int).Mod(new(big.Int).Add(k, new(big.Int).Mul(e, sk.s)), edOrder)
	return &SchnorrSignature{r: r, s: s}, nil
}

// SchnorrVerify checks s*G == R + e*VK.
func SchnorrVerify(vk *SchnorrVK, msg *big.Int, sig *SchnorrSignature) bool {
	if !edIsOnCurve(sig.r) || !edIsOnCurve(vk.point) {
		return false
	}
	e := schnorrChallenge(sig.r, vk, msg)
	lhs := edScalarMul(edGenerator(), sig.s)
	rhs := edAddPoints(sig.r, edScalarMul(vk.point, e))
	return lhs.x.Cmp(rhs.x) == 0 && lhs.y.Cmp(rhs.y) == 0
}

func schnorrChallenge(r *edPoint, vk *SchnorrVK, msg *big.Int) *big.Int {
	return HashBytesToField([]byte(CSIDSchnorr), r.x.Bytes(), r.y.Bytes(), vk.point.x.Bytes(), vk.point.y.Bytes(), msg.Bytes())
}
