// Package nsavidm wraps avidm with namespace awareness: a payload is split
// into contiguous namespace ranges, each range is independently AVID-M
// committed and dispersed, and the per-namespace commitments are folded into
// an outer Merkle root. A storage node's share aggregates the per-namespace
// AVID-M shares it holds under a single index, so verifying or recovering a
// namespace never requires touching bytes outside its range.
package nsavidm

import (
	"errors"
	"fmt"

	"github.com/espresso-sequencer/hotshot-core/avidm"
	"github.com/espresso-sequencer/hotshot-core/crypto"
)

var (
	ErrEmptyNamespaceTable = errors.New("nsavidm: empty namespace table")
	ErrInvalidShare        = errors.New("nsavidm: invalid share")
	ErrCommitMismatch      = errors.New("nsavidm: recomputed namespace commitment does not match")
	ErrIndexOutOfBound     = errors.New("nsavidm: namespace index out of bound")
	ErrInsufficientShares  = errors.New("nsavidm: insufficient shares to recover payload")
)

const nsLeafDomainTag = "NSAVIDM_LEAF"

// Range is a half-open byte range [Start, End) of the payload belonging to
// one namespace. Ranges are assumed non-overlapping and, together, to cover
// the whole payload; callers build these from a namespace table.
type Range struct {
	Start int
	End   int
}

// NsCommit is the outer Merkle root over the per-namespace AVID-M
// commitments, in namespace-table order.
type NsCommit [32]byte

// NsAvidMShare is one storage node's aggregated share across every
// namespace: the full list of namespace commitments and lengths (so the
// node can recompute the outer root), plus its own AVID-M share content for
// each namespace.
type NsAvidMShare struct {
	Index     uint32
	NsCommits []avidm.Commit
	NsLens    []int
	Content   []avidm.Share
}

// NumNamespaces returns the number of namespaces the share covers.
func (s NsAvidMShare) NumNamespaces() int { return len(s.NsCommits) }

// InnerShare returns the plain AVID-M share for a single namespace, or false
// if nsIndex is out of bound.
func (s NsAvidMShare) InnerShare(nsIndex int) (avidm.Share, bool) {
	if nsIndex < 0 || nsIndex >= len(s.NsLens) || nsIndex >= len(s.Content) {
		return avidm.Share{}, false
	}
	return s.Content[nsIndex], true
}

func nsLeafHash(index int, commit avidm.Commit) [32]byte {
	var idxBuf [8]byte
	for i := 0; i < 8; i++ {
		idxBuf[i] = byte(index >> (56 - 8*i))
	}
	return crypto.Keccak256Hash([]byte(nsLeafDomainTag), idxBuf[:], commit[:])
}

func outerRoot(nsCommits []avidm.Commit) NsCommit {
	leaves := make([][32]byte, len(nsCommits))
	for i, c := range nsCommits {
		leaves[i] = nsLeafHash(i, c)
	}
	return NsCommit(crypto.MerkleRoot(leaves))
}

// Setup validates and returns the shared AVID-M dispersal parameters.
func Setup(recoveryThreshold, totalWeight uint32) (avidm.Param, error) {
	return avidm.Setup(recoveryThreshold, totalWeight)
}

// Commit deterministically computes the outer Merkle root over a payload's
// per-namespace AVID-M commitments. Matches the commitment returned by
// NsDisperse for the same payload and namespace table.
func Commit(param avidm.Param, payload []byte, nsTable []Range) (NsCommit, error) {
	if len(nsTable) == 0 {
		return NsCommit{}, ErrEmptyNamespaceTable
	}
	nsCommits := make([]avidm.Commit, len(nsTable))
	for i, r := range nsTable {
		c, err := avidm.Commit(param, payload[r.Start:r.End])
		if err != nil {
			return NsCommit{}, fmt.Errorf("namespace %d: %w", i, err)
		}
		nsCommits[i] = c
	}
	return outerRoot(nsCommits), nil
}

// NsDisperse AVID-M disperses each namespace's slice of payload independently
// using the same distribution weights, then transposes the results into one
// NsAvidMShare per storage node (one per distribution entry).
func NsDisperse(param avidm.Param, distribution []uint32, payload []byte, nsTable []Range) (NsCommit, []NsAvidMShare, error) {
	if len(nsTable) == 0 {
		return NsCommit{}, nil, ErrEmptyNamespaceTable
	}
	nsCommits := make([]avidm.Commit, len(nsTable))
	nsLens := make([]int, len(nsTable))
	perNsShares := make([][]avidm.Share, len(nsTable))
	for i, r := range nsTable {
		nsLens[i] = r.End - r.Start
		c, shares, err := avidm.Disperse(param, distribution, payload[r.Start:r.End])
		if err != nil {
			return NsCommit{}, nil, fmt.Errorf("namespace %d: %w", i, err)
		}
		nsCommits[i] = c
		perNsShares[i] = shares
	}
	commit := outerRoot(nsCommits)

	shares := make([]NsAvidMShare, len(distribution))
	for i := range shares {
		shares[i] = NsAvidMShare{
			Index:     uint32(i),
			NsCommits: append([]avidm.Commit(nil), nsCommits...),
			NsLens:    append([]int(nil), nsLens...),
			Content:   make([]avidm.Share, len(nsTable)),
		}
	}
	for nsIdx, nsShares := range perNsShares {
		for i, s := range nsShares {
			shares[i].Content[nsIdx] = s
		}
	}
	return commit, shares, nil
}

// VerifyShare checks every namespace's inner AVID-M share against its
// recorded commitment, then recomputes the outer root and compares it to
// commit.
func VerifyShare(param avidm.Param, commit NsCommit, share NsAvidMShare) error {
	if len(share.NsCommits) != len(share.NsLens) || len(share.NsCommits) != len(share.Content) {
		return fmt.Errorf("%w: namespace field length mismatch", ErrInvalidShare)
	}
	for i, c := range share.NsCommits {
		if err := avidm.VerifyShare(param, c, share.Content[i]); err != nil {
			return fmt.Errorf("namespace %d: %w", i, err)
		}
	}
	if outerRoot(share.NsCommits) != commit {
		return ErrCommitMismatch
	}
	return nil
}

// Recover reconstructs the full payload by recovering every namespace in
// table order and concatenating the results.
func Recover(param avidm.Param, shares []NsAvidMShare) ([]byte, error) {
	if len(shares) == 0 {
		return nil, ErrInsufficientShares
	}
	var payload []byte
	for nsIndex := range shares[0].NsLens {
		part, err := NsRecover(param, nsIndex, shares)
		if err != nil {
			return nil, fmt.Errorf("namespace %d: %w", nsIndex, err)
		}
		payload = append(payload, part...)
	}
	return payload, nil
}

// NsRecover reconstructs the payload bytes belonging to a single namespace
// from the matching inner AVID-M shares across the given set of storage
// nodes.
func NsRecover(param avidm.Param, nsIndex int, shares []NsAvidMShare) ([]byte, error) {
	if len(shares) == 0 {
		return nil, ErrInsufficientShares
	}
	for _, s := range shares {
		if nsIndex < 0 || nsIndex >= len(s.NsLens) || nsIndex >= len(s.Content) {
			return nil, ErrIndexOutOfBound
		}
	}
	nsCommit := shares[0].NsCommits[nsIndex]
	inner := make([]avidm.Share, len(shares))
	for i, s := range shares {
		inner[i] = s.Content[nsIndex]
	}
	return avidm.Recover(param, nsCommit, inner)
}
