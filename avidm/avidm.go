// Package avidm implements AVID-M: weighted erasure-coded, Merkle-committed
// verifiable information dispersal. A payload is Reed-Solomon encoded into
// totalWeight codeword chunks, committed in a binary Merkle tree, and
// dispersed into per-node shares whose chunk counts follow a caller-supplied
// weight distribution. Any subset of shares whose weights sum to at least
// recoveryThreshold reconstructs the payload, and every share is
// individually verifiable against the 32-byte commitment.
package avidm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/espresso-sequencer/hotshot-core/crypto"
)

var (
	ErrZeroRecoveryThreshold = errors.New("avidm: recovery threshold must be nonzero")
	ErrTotalWeightTooSmall   = errors.New("avidm: total weight below recovery threshold")
	ErrTotalWeightTooLarge   = errors.New("avidm: total weight exceeds maximum")
	ErrDistributionMismatch  = errors.New("avidm: distribution does not sum to total weight")
	ErrInvalidShare          = errors.New("avidm: invalid share")
	ErrIndexOutOfBound       = errors.New("avidm: share index out of bound")
	ErrInsufficientShares    = errors.New("avidm: insufficient shares to recover payload")
)

const leafDomainTag = "AVIDM_LEAF"

// Param configures an AVID-M instance: a recovery threshold and the total
// weight (sum of per-node share weights) the encoding supports.
type Param struct {
	RecoveryThreshold uint32
	TotalWeight       uint32
}

// Commit is the 32-byte Merkle root committing to an encoded payload.
type Commit [32]byte

// Share is one node's slice of an AVID-M dispersal: a contiguous run of
// codeword chunks plus the Merkle multi-proof authenticating them against
// the commitment.
type Share struct {
	Index          uint32
	PayloadByteLen int
	ChunkIndices   []uint32
	ChunkData      [][]byte
	Proof          *crypto.MerkleMultiProof
}

// Setup validates and returns the dispersal parameters.
func Setup(recoveryThreshold, totalWeight uint32) (Param, error) {
	if recoveryThreshold == 0 {
		return Param{}, ErrZeroRecoveryThreshold
	}
	if totalWeight < recoveryThreshold {
		return Param{}, ErrTotalWeightTooSmall
	}
	if totalWeight > MaxGF16Shards {
		return Param{}, ErrTotalWeightTooLarge
	}
	return Param{RecoveryThreshold: recoveryThreshold, TotalWeight: totalWeight}, nil
}

// encodedChunks Reed-Solomon encodes payload into param.TotalWeight
// codeword chunks, each of the same padded, even per-shard byte length.
func encodedChunks(param Param, payload []byte) ([][]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	k := int(param.RecoveryThreshold)
	n := int(param.TotalWeight)

	shardSize := (len(payload) + k - 1) / k
	if shardSize%2 != 0 {
		shardSize++
	}

	shards := make([][]byte, k)
	for i := 0; i < k; i++ {
		shards[i] = make([]byte, shardSize)
		start := i * shardSize
		if start < len(payload) {
			end := start + shardSize
			if end > len(payload) {
				end = len(payload)
			}
			copy(shards[i], payload[start:end])
		}
	}

	enc, err := newRSEncoder(k, n)
	if err != nil {
		return nil, err
	}
	return enc.encode(shards)
}

func leafHash(index uint32, chunk []byte) [32]byte {
	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], index)
	return crypto.Keccak256Hash([]byte(leafDomainTag), idxBuf[:], chunk)
}

// Commit deterministically computes the Merkle root over payload's
// Reed-Solomon encoding.
func Commit(param Param, payload []byte) (Commit, error) {
	chunks, err := encodedChunks(param, payload)
	if err != nil {
		return Commit{}, err
	}
	leaves := make([][32]byte, len(chunks))
	for i, c := range chunks {
		leaves[i] = leafHash(uint32(i), c)
	}
	return Commit(crypto.MerkleRoot(leaves)), nil
}

// Disperse splits payload's encoding across len(distribution) shares,
// share i receiving exactly distribution[i] codeword chunks in index
// order. Returns the commitment and one Share per distribution entry.
func Disperse(param Param, distribution []uint32, payload []byte) (Commit, []Share, error) {
	var total uint32
	for _, w := range distribution {
		total += w
	}
	if total != param.TotalWeight {
		return Commit{}, nil, fmt.Errorf("%w: got %d, want %d", ErrDistributionMismatch, total, param.TotalWeight)
	}

	chunks, err := encodedChunks(param, payload)
	if err != nil {
		return Commit{}, nil, err
	}
	leaves := make([][32]byte, len(chunks))
	for i, c := range chunks {
		leaves[i] = leafHash(uint32(i), c)
	}
	tree, depth := crypto.BuildMerkleTree(leaves)
	commit := Commit(tree[1])

	shares := make([]Share, len(distribution))
	cursor := uint32(0)
	for i, w := range distribution {
		indices := make([]uint32, w)
		leafPositions := make([]uint64, w)
		data := make([][]byte, w)
		for j := uint32(0); j < w; j++ {
			idx := cursor + j
			indices[j] = idx
			leafPositions[j] = uint64(idx)
			data[j] = chunks[idx]
		}
		cursor += w

		var proof *crypto.MerkleMultiProof
		if w > 0 {
			proof, err = crypto.GenerateMultiProof(tree, depth, leafPositions)
			if err != nil {
				return Commit{}, nil, err
			}
		}
		shares[i] = Share{
			Index:          uint32(i),
			PayloadByteLen: len(payload),
			ChunkIndices:   indices,
			ChunkData:      data,
			Proof:          proof,
		}
	}
	return commit, shares, nil
}

// VerifyShare checks a share's chunks against the commitment: correct
// Merkle path, matching indices, and a consistent payload length.
func VerifyShare(param Param, commit Commit, share Share) error {
	if len(share.ChunkIndices) != len(share.ChunkData) {
		return fmt.Errorf("%w: chunk index/data length mismatch", ErrInvalidShare)
	}
	if len(share.ChunkIndices) == 0 {
		return fmt.Errorf("%w: empty share", ErrInvalidShare)
	}
	if share.PayloadByteLen <= 0 {
		return fmt.Errorf("%w: non-positive payload length", ErrInvalidShare)
	}
	k := int(param.RecoveryThreshold)
	shardSize := (share.PayloadByteLen + k - 1) / k
	if shardSize%2 != 0 {
		shardSize++
	}
	for _, c := range share.ChunkData {
		if len(c) != shardSize {
			return fmt.Errorf("%w: chunk length %d inconsistent with payload length %d", ErrInvalidShare, len(c), share.PayloadByteLen)
		}
	}
	for _, idx := range share.ChunkIndices {
		if idx >= param.TotalWeight {
			return fmt.Errorf("%w: chunk index %d", ErrIndexOutOfBound, idx)
		}
	}
	if share.Proof == nil || uint32(len(share.Proof.Leaves)) != uint32(len(share.ChunkIndices)) {
		return fmt.Errorf("%w: proof/leaf count mismatch", ErrInvalidShare)
	}

	wantLeaves := make(map[uint64][32]byte, len(share.ChunkIndices))
	for i, idx := range share.ChunkIndices {
		gi := crypto.GeneralizedIndex(share.Proof.Depth, uint64(idx))
		wantLeaves[gi] = leafHash(idx, share.ChunkData[i])
	}
	for _, leaf := range share.Proof.Leaves {
		want, ok := wantLeaves[leaf.GeneralizedIndex]
		if !ok || want != leaf.Hash {
			return fmt.Errorf("%w: leaf hash mismatch at index %d", ErrInvalidShare, leaf.GeneralizedIndex)
		}
	}
	if !crypto.VerifyMultiProof([32]byte(commit), share.Proof) {
		return fmt.Errorf("%w: merkle path does not authenticate against commit", ErrInvalidShare)
	}
	return nil
}

// Recover reconstructs the original payload from any subset of shares
// whose total chunk weight is at least param.RecoveryThreshold, after
// verifying every share.
func Recover(param Param, commit Commit, shares []Share) ([]byte, error) {
	type chunkEntry struct {
		index int
		data  []byte
	}
	var chunks []chunkEntry
	var totalWeight uint32
	payloadLen := 0
	seen := make(map[uint32]bool)

	for _, s := range shares {
		if err := VerifyShare(param, commit, s); err != nil {
			return nil, err
		}
		if payloadLen == 0 {
			payloadLen = s.PayloadByteLen
		} else if payloadLen != s.PayloadByteLen {
			return nil, fmt.Errorf("%w: inconsistent payload length across shares", ErrInvalidShare)
		}
		for i, idx := range s.ChunkIndices {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			chunks = append(chunks, chunkEntry{index: int(idx), data: s.ChunkData[i]})
			totalWeight++
		}
	}

	if totalWeight < param.RecoveryThreshold {
		return nil, ErrInsufficientShares
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
	k := int(param.RecoveryThreshold)
	chunks = chunks[:k]

	shardData := make([][]byte, k)
	shardIndices := make([]int, k)
	for i, c := range chunks {
		shardData[i] = c.data
		shardIndices[i] = c.index
	}

	dataShards, err := rsRecoverData(shardData, shardIndices, k)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, len(dataShards)*len(dataShards[0]))
	for _, s := range dataShards {
		payload = append(payload, s...)
	}
	if payloadLen > len(payload) {
		return nil, fmt.Errorf("%w: encoded payload shorter than declared length", ErrInvalidShare)
	}
	return payload[:payloadLen], nil
}
