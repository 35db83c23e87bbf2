package payload

import (
	"errors"
	"fmt"

	"github.com/espresso-sequencer/hotshot-core/avidm"
	"github.com/espresso-sequencer/hotshot-core/crypto"
	"github.com/espresso-sequencer/hotshot-core/nsavidm"
)

// ProofVariant is the closed set of namespace proof shapes.
type ProofVariant int

const (
	// ProofV0 is the legacy ADVZ proof shape, preserved only so decoders can
	// exhaustively match historical blocks; this module never produces or
	// verifies one (ADVZ's polynomial commitment scheme is out of scope
	// here), so NsProof.Verify always rejects it.
	ProofV0 ProofVariant = iota
	// ProofV1 demonstrates correct encoding: the namespace's transactions
	// plus a Merkle path against the block's NsAvidMCommit.
	ProofV1
	// ProofV1Incorrect (AVID-M v1.1) demonstrates that a namespace's shares
	// do not decode to the claimed commitment.
	ProofV1Incorrect
)

var (
	ErrUnsupportedProofVariant  = errors.New("payload: unsupported namespace proof variant")
	ErrNamespaceIndexOutOfBound = errors.New("payload: namespace index out of bound")
)

// NsProof is a tagged union over the three namespace proof shapes that can
// appear in a block: verification dispatches on Variant and never treats
// an unrecognized one as valid.
type NsProof struct {
	Variant   ProofVariant
	NsIndex   int
	Namespace NamespaceId

	// ProofV1: the claimed transactions and the outer Merkle path proving
	// their namespace's AVID-M commitment is included in the block commit.
	Transactions []Transaction
	OuterProof   *crypto.MerkleMultiProof

	// ProofV1Incorrect: the namespace's aggregated AVID-M share, offered as
	// evidence that it fails to verify against the claimed commitment.
	Share nsavidm.NsAvidMShare
}

// BuildCorrectEncodingProof builds a ProofV1 for the namespace at nsIndex:
// it recomputes every namespace's AVID-M commitment from payload, builds
// the outer Merkle tree over them, and extracts the proof for nsIndex.
func BuildCorrectEncodingProof(param avidm.Param, nsTable NsTable, payload []byte, nsIndex int) (*NsProof, error) {
	if nsIndex < 0 || nsIndex >= len(nsTable) {
		return nil, ErrNamespaceIndexOutOfBound
	}

	leaves := make([][32]byte, len(nsTable))
	for i, entry := range nsTable {
		c, err := avidm.Commit(param, payload[entry.ByteRange.Start:entry.ByteRange.End])
		if err != nil {
			return nil, fmt.Errorf("namespace %d: %w", i, err)
		}
		leaves[i] = nsLeafHashCompat(i, c)
	}
	tree, depth := crypto.BuildMerkleTree(leaves)
	outerProof, err := crypto.GenerateMultiProof(tree, depth, []uint64{uint64(nsIndex)})
	if err != nil {
		return nil, err
	}

	entry := nsTable[nsIndex]
	txs, err := ReadNsPayload(entry.Namespace, payload[entry.ByteRange.Start:entry.ByteRange.End])
	if err != nil {
		return nil, err
	}

	return &NsProof{
		Variant:      ProofV1,
		NsIndex:      nsIndex,
		Namespace:    entry.Namespace,
		Transactions: txs,
		OuterProof:   outerProof,
	}, nil
}

// BuildIncorrectEncodingProof builds a ProofV1Incorrect for the namespace
// at nsIndex using a storage node's aggregated share.
func BuildIncorrectEncodingProof(namespace NamespaceId, nsIndex int, share nsavidm.NsAvidMShare) *NsProof {
	return &NsProof{Variant: ProofV1Incorrect, NsIndex: nsIndex, Namespace: namespace, Share: share}
}

// Verify checks p against (nsTable, commit, param) and, on success,
// returns the namespace's transactions (absent for ProofV1Incorrect,
// whose claim is precisely that no consistent transactions exist) and its
// NamespaceId.
func (p *NsProof) Verify(param avidm.Param, nsTable NsTable, commit nsavidm.NsCommit) ([]Transaction, NamespaceId, bool) {
	switch p.Variant {
	case ProofV1:
		return p.verifyCorrectEncoding(param, nsTable, commit)
	case ProofV1Incorrect:
		return p.verifyIncorrectEncoding(param, commit)
	default:
		return nil, 0, false
	}
}

func (p *NsProof) verifyCorrectEncoding(param avidm.Param, nsTable NsTable, commit nsavidm.NsCommit) ([]Transaction, NamespaceId, bool) {
	if p.NsIndex < 0 || p.NsIndex >= len(nsTable) {
		return nil, 0, false
	}
	nsPayload := BuildNsPayload(p.Transactions)
	c, err := avidm.Commit(param, nsPayload)
	if err != nil {
		return nil, 0, false
	}
	leafHash := nsLeafHashCompat(p.NsIndex, c)
	if p.OuterProof == nil || len(p.OuterProof.Leaves) != 1 || p.OuterProof.Leaves[0].Hash != leafHash {
		return nil, 0, false
	}
	if !crypto.VerifyMultiProof([32]byte(commit), p.OuterProof) {
		return nil, 0, false
	}
	return p.Transactions, p.Namespace, true
}

func (p *NsProof) verifyIncorrectEncoding(param avidm.Param, commit nsavidm.NsCommit) ([]Transaction, NamespaceId, bool) {
	err := nsavidm.VerifyShare(param, commit, p.Share)
	if err == nil {
		// The share is consistent after all; the incorrect-encoding claim
		// does not hold.
		return nil, 0, false
	}
	return nil, p.Namespace, true
}

// nsLeafHashCompat mirrors nsavidm's internal leaf-hashing so the outer
// Merkle tree built here lands on the same root nsavidm.Commit/NsDisperse
// produce.
func nsLeafHashCompat(index int, commit avidm.Commit) [32]byte {
	var idxBuf [8]byte
	for i := 0; i < 8; i++ {
		idxBuf[i] = byte(index >> (56 - 8*i))
	}
	return crypto.Keccak256Hash([]byte("NSAVIDM_LEAF"), idxBuf[:], commit[:])
}
