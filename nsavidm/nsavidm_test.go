package nsavidm

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/espresso-sequencer/hotshot-core/avidm"
)

func TestNsRoundTrip(t *testing.T) {
	const numStorageNodes = 9
	const recoveryThreshold = 3
	nsTable := []Range{{Start: 0, End: 15}, {Start: 15, End: 48}}
	payloadLen := 0
	for _, r := range nsTable {
		payloadLen += r.End - r.Start
	}

	rnd := rand.New(rand.NewSource(7))
	weights := make([]uint32, numStorageNodes)
	var totalWeight uint32
	for i := range weights {
		weights[i] = uint32(rnd.Intn(5)) + 1
		totalWeight += weights[i]
	}

	param, err := Setup(recoveryThreshold, totalWeight)
	if err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, payloadLen)
	rnd.Read(payload)

	commit, shares, err := NsDisperse(param, weights, payload, nsTable)
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != numStorageNodes {
		t.Fatalf("got %d shares, want %d", len(shares), numStorageNodes)
	}

	cross, err := Commit(param, payload, nsTable)
	if err != nil {
		t.Fatal(err)
	}
	if cross != commit {
		t.Fatal("commit(payload, ns_table) != ns_disperse(payload, ns_table).commit")
	}

	for _, s := range shares {
		if err := VerifyShare(param, commit, s); err != nil {
			t.Fatalf("share %d failed to verify: %v", s.Index, err)
		}
	}

	rnd.Shuffle(len(shares), func(i, j int) { shares[i], shares[j] = shares[j], shares[i] })

	var cumulated uint32
	cutIndex := 0
	for cumulated <= recoveryThreshold {
		inner, _ := shares[cutIndex].InnerShare(0)
		cumulated += uint32(len(inner.ChunkIndices))
		cutIndex++
	}
	prefix := shares[:cutIndex]

	ns0, err := NsRecover(param, 0, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ns0, payload[nsTable[0].Start:nsTable[0].End]) {
		t.Fatal("namespace 0 recovery mismatch")
	}

	ns1, err := NsRecover(param, 1, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ns1, payload[nsTable[1].Start:nsTable[1].End]) {
		t.Fatal("namespace 1 recovery mismatch")
	}

	full, err := Recover(param, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(full, payload) {
		t.Fatal("full recovery mismatch")
	}
}

func TestNsVerifyShareRejectsCommitMismatch(t *testing.T) {
	param, err := Setup(2, 6)
	if err != nil {
		t.Fatal(err)
	}
	nsTable := []Range{{Start: 0, End: 10}, {Start: 10, End: 20}}
	payload := make([]byte, 20)
	rand.New(rand.NewSource(1)).Read(payload)
	distribution := []uint32{2, 2, 2}

	commit, shares, err := NsDisperse(param, distribution, payload, nsTable)
	if err != nil {
		t.Fatal(err)
	}

	tampered := shares[0]
	tampered.NsCommits = append([]avidm.Commit{}, tampered.NsCommits...)
	tampered.NsCommits[0][0] ^= 0xFF

	if err := VerifyShare(param, commit, tampered); !errors.Is(err, avidm.ErrInvalidShare) {
		t.Fatalf("want avidm.ErrInvalidShare, got %v", err)
	}
}

func TestNsRecoverIndexOutOfBound(t *testing.T) {
	param, err := Setup(2, 6)
	if err != nil {
		t.Fatal(err)
	}
	nsTable := []Range{{Start: 0, End: 10}, {Start: 10, End: 20}}
	payload := make([]byte, 20)
	rand.New(rand.NewSource(2)).Read(payload)
	distribution := []uint32{2, 2, 2}

	_, shares, err := NsDisperse(param, distribution, payload, nsTable)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NsRecover(param, 5, shares); err != ErrIndexOutOfBound {
		t.Fatalf("want ErrIndexOutOfBound, got %v", err)
	}
}

func TestNsEmptyNamespaceTable(t *testing.T) {
	param, err := Setup(2, 6)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Commit(param, []byte("x"), nil); err != ErrEmptyNamespaceTable {
		t.Fatalf("want ErrEmptyNamespaceTable, got %v", err)
	}
	if _, _, err := NsDisperse(param, []uint32{1, 1}, []byte("x"), nil); err != ErrEmptyNamespaceTable {
		t.Fatalf("want ErrEmptyNamespaceTable, got %v", err)
	}
}
