// BLS signatures over BN254, domain CS_ID_BLS_BN254. Keys live in G2,
// signatures in G1 (the opposite pairing split from the teacher's
// BLS12-381 MinPk scheme, matching the stake table's blsVK(G2)/blsSig(G1)
// ABI shape), verified via e(sig, G2Generator) == e(H(msg), pubkey).
package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// CSIDBLSBN254 is the domain separation tag for BLS signing over BN254,
// matching the stake-table contract's signature scheme identifier.
const CSIDBLSBN254 = "CS_ID_BLS_BN254"

var (
	ErrBLSInvalidSecretKey = errors.New("bls_bn254: invalid secret key")
	ErrBLSInvalidPubKey    = errors.New("bls_bn254: invalid public key encoding")
	ErrBLSVerifyFailed     = errors.New("bls_bn254: signature verification failed")
)

// BLSSecretKey is a BN254 scalar in [1, n).
type BLSSecretKey struct {
	s *big.Int
}

// BLSPubKey is a point in G2.
type BLSPubKey struct {
	point *G2Point
}

// BLSSignature is a point in G1.
type BLSSignature struct {
	point *G1Point
}

// GenerateBLSKey samples a uniformly random secret key and derives its
// G2 public key.
func GenerateBLSKey() (*BLSSecretKey, *BLSPubKey, error) {
	s, err := rand.Int(rand.Reader, bn254N)
	if err != nil {
		return nil, nil, err
	}
	if s.Sign() == 0 {
		return GenerateBLSKey()
	}
	return deriveBLSKey(s)
}

func deriveBLSKey(s *big.Int) (*BLSSecretKey, *BLSPubKey, error) {
	if s.Sign() <= 0 || s.Cmp(bn254N) >= 0 {
		return nil, nil, ErrBLSInvalidSecretKey
	}
	pub := g2ScalarMul(G2Generator(), s)
	return &BLSSecretKey{s: new(big.Int).Set(s)}, &BLSPubKey{point: pub}, nil
}

// BLSKeyFromScalar rebuilds a key pair from a known scalar, used when
// loading a key-file's private staking key.
func BLSKeyFromScalar(s *big.Int) (*BLSSecretKey, *BLSPubKey, error) {
	return deriveBLSKey(s)
}

// Marshal serializes the public key as the uncompressed G2 affine
// coordinates, 128 bytes (X.a0 || X.a1 || Y.a0 || Y.a1).
func (pk *BLSPubKey) Marshal() []byte {
	x, y := pk.point.g2ToAffine()
	out := make([]byte, 128)
	putFp2(out[0:64], x)
	putFp2(out[64:128], y)
	return out
}

func putFp2(dst []byte, e *fp2) {
	a0 := e.a0.Bytes()
	a1 := e.a1.Bytes()
	copy(dst[32-len(a0):32], a0)
	copy(dst[64-len(a1):64], a1)
}

func getFp2(src []byte) *fp2 {
	return newFp2(new(big.Int).SetBytes(src[0:32]), new(big.Int).SetBytes(src[32:64]))
}

// UnmarshalBLSPubKey parses the 128-byte encoding produced by Marshal.
func UnmarshalBLSPubKey(data []byte) (*BLSPubKey, error) {
	if len(data) != 128 {
		return nil, ErrBLSInvalidPubKey
	}
	x := getFp2(data[0:64])
	y := getFp2(data[64:128])
	return &BLSPubKey{point: g2FromAffine(x, y)}, nil
}

// Marshal serializes the signature as uncompressed G1 affine coordinates.
func (sig *BLSSignature) Marshal() []byte {
	return sig.point.Marshal()
}

// BLSSign signs msg with the BN254 BLS domain, hashing msg to G1 via
// expand_message_xmd + try-and-increment (see hash_to_curve.go) before
// scalar-multiplying by the secret key.
func BLSSign(sk *BLSSecretKey, msg []byte) (*BLSSignature, error) {
	h, err := HashToCurveG1BN254(msg, []byte(CSIDBLSBN254))
	if err != nil {
		return nil, err
	}
	return &BLSSignature{point: G1ScalarMul(h, sk.s)}, nil
}

// BLSVerify checks sig against msg under pk via
// e(sig, G2Generator) == e(H(msg), pk), equivalently
// e(sig, -G2Generator) * e(H(msg), pk) == 1.
func BLSVerify(pk *BLSPubKey, msg []byte, sig *BLSSignature) bool {
	h, err := HashToCurveG1BN254(msg, []byte(CSIDBLSBN254))
	if err != nil {
		return false
	}
	negG2 := g2Neg(G2Generator())
	return bn254MultiPairing(
		[]*G1Point{sig.point, h},
		[]*G2Point{negG2, pk.point},
	)
}

// AggregateBLSSignatures sums a set of G1 signatures into one aggregate.
// Callers are responsible for ensuring no two signers share a message
// unless rogue-key mitigation (proof of possession at registration) is
// already in place, as is the case for the stake-table's RegisterV2 flow.
func AggregateBLSSignatures(sigs []*BLSSignature) (*BLSSignature, error) {
	if len(sigs) == 0 {
		return nil, errors.New("bls_bn254: cannot aggregate zero signatures")
	}
	agg := G1Infinity()
	for _, s := range sigs {
		agg = g1Add(agg, s.point)
	}
	return &BLSSignature{point: agg}, nil
}

// AggregateBLSPubKeys sums a set of G2 public keys into one aggregate,
// used to verify a single message against a committee's combined key.
func AggregateBLSPubKeys(pks []*BLSPubKey) (*BLSPubKey, error) {
	if len(pks) == 0 {
		return nil, errors.New("bls_bn254: cannot aggregate zero public keys")
	}
	agg := G2Infinity()
	for _, pk := range pks {
		agg = g2Add(agg, pk.point)
	}
	return &BLSPubKey{point: agg}, nil
}

// BLSVerifyEVMPrecompile checks sig the same way BLSVerify does, but through
// the EIP-197 precompile byte ABI (bn254.go's BN254PairingCheck) instead of
// calling bn254MultiPairing on *G1Point/*G2Point directly. A stake-table
// light client that only has precompile-shaped calldata available (rather
// than this package's point types) verifies through this path instead.
func BLSVerifyEVMPrecompile(pk *BLSPubKey, msg []byte, sig *BLSSignature) (bool, error) {
	h, err := HashToCurveG1BN254(msg, []byte(CSIDBLSBN254))
	if err != nil {
		return false, err
	}
	negG2 := g2Neg(G2Generator())

	input := make([]byte, 0, 2*192)
	input = append(input, encodePairingChunk(sig.point, negG2)...)
	input = append(input, encodePairingChunk(h, pk.point)...)

	out, err := BN254PairingCheck(input)
	if err != nil {
		return false, err
	}
	return out[31] == 1, nil
}

// encodePairingChunk lays out one (G1, G2) pair in the 192-byte format
// BN254PairingCheck expects: G1_x | G1_y | G2_x_imag | G2_x_real |
// G2_y_imag | G2_y_real.
func encodePairingChunk(g1 *G1Point, g2 *G2Point) []byte {
	out := make([]byte, 192)
	copy(out[0:64], g1.Marshal())
	x, y := g2.g2ToAffine()
	putBigPadded(out[64:96], x.a1)
	putBigPadded(out[96:128], x.a0)
	putBigPadded(out[128:160], y.a1)
	putBigPadded(out[160:192], y.a0)
	return out
}

func putBigPadded(dst []byte, v *big.Int) {
	b := v.Bytes()
	copy(dst[32-len(b):], b)
}
