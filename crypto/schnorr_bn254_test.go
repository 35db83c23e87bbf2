package crypto

import (
	"math/big"
	"testing"
)

func TestSchnorrSignVerifyRoundTrip(t *testing.T) {
	sk, vk, err := GenerateSchnorrKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := HashBytesToField([]byte("abi_encode(address)"))
	sig, err := SchnorrSign(sk, vk, msg)
	if err != nil {
		t.Fatal(err)
	}
	if !SchnorrVerify(vk, msg, sig) {
		t.Fatal("valid signature failed to verify")
	}
}

func TestSchnorrVerifyRejectsWrongKey(t *testing.T) {
	sk, vk, err := GenerateSchnorrKey()
	if err != nil {
		t.Fatal(err)
	}
	_, otherVK, err := GenerateSchnorrKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := HashBytesToField([]byte("hello"))
	sig, err := SchnorrSign(sk, vk, msg)
	if err != nil {
		t.Fatal(err)
	}
	if SchnorrVerify(otherVK, msg, sig) {
		t.Fatal("verification succeeded under the wrong key")
	}
}

func TestSchnorrVerifyRejectsFlippedSignatureByte(t *testing.T) {
	sk, vk, err := GenerateSchnorrKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := HashBytesToField([]byte("hello"))
	sig, err := SchnorrSign(sk, vk, msg)
	if err != nil {
		t.Fatal(err)
	}
	raw := sig.Marshal()
	raw[95] ^= 0x01
	flipped := &SchnorrSignature{r: sig.r, s: new(big.Int).SetBytes(raw[64:96])}
	if SchnorrVerify(vk, msg, flipped) {
		t.Fatal("verification succeeded after flipping the response scalar")
	}
}

func TestSchnorrVerifyRejectsDifferentMessage(t *testing.T) {
	sk, vk, err := GenerateSchnorrKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := SchnorrSign(sk, vk, HashBytesToField([]byte("one")))
	if err != nil {
		t.Fatal(err)
	}
	if SchnorrVerify(vk, HashBytesToField([]byte("two")), sig) {
		t.Fatal("verification succeeded against a different message")
	}
}

func TestHashBytesToFieldDeterministic(t *testing.T) {
	a := HashBytesToField([]byte("x"), []byte("y"))
	b := HashBytesToField([]byte("x"), []byte("y"))
	if a.Cmp(b) != 0 {
		t.Fatal("HashBytesToField is non-deterministic")
	}
	c := HashBytesToField([]byte("x"), []byte("z"))
	if a.Cmp(c) == 0 {
		t.Fatal("different inputs produced the same field element")
	}
	if a.Sign() < 0 || a.Cmp(bn254N) >= 0 {
		t.Fatal("result not reduced into [0, bn254N)")
	}
}
