package payload

import (
	"bytes"
	"testing"

	"github.com/espresso-sequencer/hotshot-core/avidm"
	"github.com/espresso-sequencer/hotshot-core/nsavidm"
)

func TestTransactionCommitmentIsDeterministic(t *testing.T) {
	tx := NewTransaction(7, []byte("hello"))
	if tx.Commitment() != tx.Commitment() {
		t.Fatal("commitment must be a pure function of (namespace, payload)")
	}
	other := NewTransaction(8, []byte("hello"))
	if tx.Commitment() == other.Commitment() {
		t.Fatal("commitments must differ across namespaces")
	}
}

func TestMinimumBlockSizeAndSizeInBlock(t *testing.T) {
	tx := NewTransaction(1, make([]byte, 10))
	min := tx.MinimumBlockSize()
	if min != 10+TxTableEntryByteLen+TxTableHeaderByteLen {
		t.Fatalf("unexpected minimum block size %d", min)
	}
	if tx.SizeInBlock(true) != min {
		t.Fatal("first transaction in a new namespace must cost the full minimum block size")
	}
	if tx.SizeInBlock(false) != 10+TxTableEntryByteLen {
		t.Fatal("subsequent transaction in an existing namespace must not recharge the table header")
	}
}

func TestBuildAndReadNsPayloadRoundTrip(t *testing.T) {
	txs := []Transaction{
		NewTransaction(3, []byte("alpha")),
		NewTransaction(3, []byte("beta-bytes")),
		NewTransaction(3, nil),
	}
	nsPayload := BuildNsPayload(txs)

	got, err := ReadNsPayload(3, nsPayload)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(txs) {
		t.Fatalf("want %d transactions, got %d", len(txs), len(got))
	}
	for i, tx := range txs {
		if !bytes.Equal(got[i].Payload, tx.Payload) {
			t.Fatalf("tx %d: payload mismatch", i)
		}
		if got[i].Namespace != 3 {
			t.Fatalf("tx %d: want namespace 3, got %d", i, got[i].Namespace)
		}
	}
}

func TestReadNsPayloadRejectsTruncation(t *testing.T) {
	if _, err := ReadNsPayload(1, []byte{0x01}); err != ErrTruncatedTxTable {
		t.Fatalf("want ErrTruncatedTxTable, got %v", err)
	}
}

func buildBlock(t *testing.T) (NsTable, []byte) {
	t.Helper()
	ns1 := BuildNsPayload([]Transaction{NewTransaction(1, []byte("a")), NewTransaction(1, []byte("bb"))})
	ns2 := BuildNsPayload([]Transaction{NewTransaction(2, []byte("ccc"))})

	nsTable := NsTable{
		{Namespace: 1, ByteRange: Range{Start: 0, End: len(ns1)}},
		{Namespace: 2, ByteRange: Range{Start: len(ns1), End: len(ns1) + len(ns2)}},
	}
	payload := append(append([]byte{}, ns1...), ns2...)
	return nsTable, payload
}

func TestNsTableValidate(t *testing.T) {
	nsTable, blockPayload := buildBlock(t)
	if err := nsTable.Validate(len(blockPayload)); err != nil {
		t.Fatal(err)
	}
	if err := nsTable.Validate(len(blockPayload) + 1); err != ErrNsTableNotCovering {
		t.Fatalf("want ErrNsTableNotCovering, got %v", err)
	}
}

func TestIterateYieldsNamespaceThenPositionOrder(t *testing.T) {
	nsTable, blockPayload := buildBlock(t)
	indices, err := Iterate(nsTable, blockPayload)
	if err != nil {
		t.Fatal(err)
	}
	want := []Index{{0, 0}, {0, 1}, {1, 0}}
	if len(indices) != len(want) {
		t.Fatalf("want %d indices, got %d", len(want), len(indices))
	}
	for i, idx := range want {
		if indices[i] != idx {
			t.Fatalf("index %d: want %+v, got %+v", i, idx, indices[i])
		}
	}
}

func TestTransactionsResolvesFullBlock(t *testing.T) {
	nsTable, blockPayload := buildBlock(t)
	txs, err := Transactions(nsTable, blockPayload)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("want 3 transactions, got %d", len(txs))
	}
	if txs[0].Namespace != 1 || txs[2].Namespace != 2 {
		t.Fatal("wrong namespace assignment while resolving transactions")
	}
}

func TestCorrectEncodingProofRoundTrip(t *testing.T) {
	nsTable, blockPayload := buildBlock(t)
	param, err := avidm.Setup(2, 4)
	if err != nil {
		t.Fatal(err)
	}

	proof, err := BuildCorrectEncodingProof(param, nsTable, blockPayload, 1)
	if err != nil {
		t.Fatal(err)
	}

	nsRanges := make([]nsavidm.Range, len(nsTable))
	for i, entry := range nsTable {
		nsRanges[i] = nsavidm.Range{Start: entry.ByteRange.Start, End: entry.ByteRange.End}
	}
	commit, err := nsavidm.Commit(param, blockPayload, nsRanges)
	if err != nil {
		t.Fatal(err)
	}

	txs, ns, ok := proof.Verify(param, nsTable, commit)
	if !ok {
		t.Fatal("correct-encoding proof failed to verify")
	}
	if ns != 2 {
		t.Fatalf("want namespace 2, got %d", ns)
	}
	if len(txs) != 1 || string(txs[0].Payload) != "ccc" {
		t.Fatal("wrong transactions recovered from proof")
	}
}

func TestIncorrectEncodingProofDetectsMismatch(t *testing.T) {
	nsTable, blockPayload := buildBlock(t)
	param, err := avidm.Setup(2, 4)
	if err != nil {
		t.Fatal(err)
	}

	nsRanges := make([]nsavidm.Range, len(nsTable))
	for i, entry := range nsTable {
		nsRanges[i] = nsavidm.Range{Start: entry.ByteRange.Start, End: entry.ByteRange.End}
	}
	commit, shares, err := nsavidm.NsDisperse(param, []uint32{1, 1, 1, 1}, blockPayload, nsRanges)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt one namespace commitment in a storage node's share so it no
	// longer matches the published commit.
	tampered := shares[0]
	tampered.NsCommits = append([]avidm.Commit(nil), tampered.NsCommits...)
	tampered.NsCommits[0][0] ^= 0xFF

	proof := BuildIncorrectEncodingProof(nsTable[0].Namespace, 0, tampered)
	_, ns, ok := proof.Verify(param, nsTable, commit)
	if !ok {
		t.Fatal("incorrect-encoding proof should verify the claimed inconsistency")
	}
	if ns != nsTable[0].Namespace {
		t.Fatalf("want namespace %d, got %d", nsTable[0].Namespace, ns)
	}

	validProof := BuildIncorrectEncodingProof(nsTable[0].Namespace, 0, shares[0])
	if _, _, ok := validProof.Verify(param, nsTable, commit); ok {
		t.Fatal("a consistent share must not verify as proof of incorrect encoding")
	}
}

func TestLegacyProofVariantAlwaysRejected(t *testing.T) {
	nsTable, _ := buildBlock(t)
	proof := &NsProof{Variant: ProofV0}
	if _, _, ok := proof.Verify(avidm.Param{}, nsTable, nsavidm.NsCommit{}); ok {
		t.Fatal("legacy ADVZ proof variant must never verify")
	}
}
