package avidm

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestSetupValidation(t *testing.T) {
	if _, err := Setup(0, 10); err != ErrZeroRecoveryThreshold {
		t.Fatalf("want ErrZeroRecoveryThreshold, got %v", err)
	}
	if _, err := Setup(5, 3); err != ErrTotalWeightTooSmall {
		t.Fatalf("want ErrTotalWeightTooSmall, got %v", err)
	}
	if _, err := Setup(1, MaxGF16Shards+1); err != ErrTotalWeightTooLarge {
		t.Fatalf("want ErrTotalWeightTooLarge, got %v", err)
	}
	if _, err := Setup(3, 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommitDeterministic(t *testing.T) {
	param, err := Setup(3, 9)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("deterministic commitment test payload")
	c1, err := Commit(param, payload)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := Commit(param, payload)
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Fatal("commit is not deterministic")
	}

	distribution := []uint32{3, 3, 3}
	dc, _, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}
	if dc != c1 {
		t.Fatal("commit(payload) != disperse(payload).commit")
	}
}

func TestDisperseRecoverRoundTrip(t *testing.T) {
	param, err := Setup(3, 9)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated for good measure")
	distribution := []uint32{1, 2, 2, 1, 3}

	commit, shares, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range shares {
		if err := VerifyShare(param, commit, s); err != nil {
			t.Fatalf("share %d failed to verify: %v", s.Index, err)
		}
	}

	// Smallest prefix whose weight sum exceeds the threshold.
	recovered, err := Recover(param, commit, shares[:3])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(recovered, payload) {
		t.Fatalf("recovered payload mismatch: got %q, want %q", recovered, payload)
	}
}

func TestRecoverFromShuffledSubset(t *testing.T) {
	param, err := Setup(4, 12)
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, 500)
	rnd := rand.New(rand.NewSource(42))
	rnd.Read(payload)

	distribution := make([]uint32, 8)
	remaining := uint32(12)
	for i := range distribution {
		if i == len(distribution)-1 {
			distribution[i] = remaining
			break
		}
		w := uint32(rnd.Intn(3)) + 1
		if w > remaining {
			w = remaining
		}
		distribution[i] = w
		remaining -= w
	}
	// Re-normalize in case the loop undershot.
	var sum uint32
	for _, w := range distribution {
		sum += w
	}
	distribution[len(distribution)-1] += 12 - sum

	commit, shares, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}

	rnd.Shuffle(len(shares), func(i, j int) { shares[i], shares[j] = shares[j], shares[i] })

	var prefix []Share
	var weight uint32
	for _, s := range shares {
		prefix = append(prefix, s)
		weight += uint32(len(s.ChunkIndices))
		if weight >= param.RecoveryThreshold {
			break
		}
	}

	recovered, err := Recover(param, commit, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(recovered, payload) {
		t.Fatal("recovered payload mismatch after shuffle")
	}
}

func TestRecoverInsufficientShares(t *testing.T) {
	param, err := Setup(5, 10)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("not enough shares to recover this one")
	distribution := []uint32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	commit, shares, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Recover(param, commit, shares[:3])
	if err != ErrInsufficientShares {
		t.Fatalf("want ErrInsufficientShares, got %v", err)
	}
}

func TestVerifyShareRejectsTamperedChunk(t *testing.T) {
	param, err := Setup(3, 6)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("tamper detection payload")
	distribution := []uint32{2, 2, 2}
	commit, shares, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}

	tampered := shares[0]
	tampered.ChunkData = append([][]byte{}, tampered.ChunkData...)
	tamperedChunk := append([]byte{}, tampered.ChunkData[0]...)
	tamperedChunk[0] ^= 0xFF
	tampered.ChunkData[0] = tamperedChunk

	if err := VerifyShare(param, commit, tampered); err == nil {
		t.Fatal("expected verification failure for tampered chunk data")
	}
}

func TestVerifyShareRejectsWrongIndex(t *testing.T) {
	param, err := Setup(3, 6)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("index mismatch payload")
	distribution := []uint32{2, 2, 2}
	commit, shares, err := Disperse(param, distribution, payload)
	if err != nil {
		t.Fatal(err)
	}
	bad := shares[1]
	bad.ChunkIndices = append([]uint32{}, bad.ChunkIndices...)
	bad.ChunkIndices[0] = 9999
	if err := VerifyShare(param, commit, bad); err == nil {
		t.Fatal("expected verification failure for out-of-range chunk index")
	}
}
