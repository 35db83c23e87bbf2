// Package blockmerkle implements the append-only block-commitment Merkle
// tree: a fixed-depth-32 SHA-3 accumulator whose leaves are block header
// commitments. Light clients verify inclusion against the tree's frontier
// root without replaying the chain.
package blockmerkle

import (
	"errors"
	"math/big"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/espresso-sequencer/hotshot-core/crypto"
)

// Depth is the fixed height of the block Merkle tree, supporting up to
// 2^Depth blocks.
const Depth = 32

const maxLeaves = uint64(1) << Depth

var (
	ErrTreeFull  = errors.New("blockmerkle: tree is full")
	ErrBadIndex  = errors.New("blockmerkle: index out of range")
	ErrBadProof  = errors.New("blockmerkle: invalid proof")
	ErrEmptyTree = errors.New("blockmerkle: tree is empty")
)

var (
	leafDomain = []byte{0x00}
	nodeDomain = []byte{0x01}
)

// emptyHashes[i] is the hash of an empty subtree at depth i (0 = leaf).
var emptyHashes [Depth + 1][32]byte

func init() {
	emptyHashes[0] = sha3.Sum256(leafDomain)
	for i := 1; i <= Depth; i++ {
		emptyHashes[i] = hashNode(emptyHashes[i-1], emptyHashes[i-1])
	}
}

// Commitment is a 32-byte block header commitment, the tree's leaf value.
type Commitment [32]byte

func hashLeaf(c Commitment) [32]byte {
	h := sha3.New256()
	h.Write(leafDomain)
	h.Write(c[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashNode(left, right [32]byte) [32]byte {
	h := sha3.New256()
	h.Write(nodeDomain)
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Proof is an inclusion proof for the leaf at Index.
type Proof struct {
	Index    uint64
	Siblings [Depth][32]byte
}

// Tree is an append-only, fixed-depth-32 block commitment Merkle tree. Its
// root updates incrementally as blocks are appended, using a per-level
// cache of the most recently filled left sibling (the same frontier trick
// as a standard incremental Merkle accumulator).
type Tree struct {
	mu       sync.RWMutex
	hashes   [][32]byte
	filledAt [Depth][32]byte
	nextIdx  uint64
	root     [32]byte
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: emptyHashes[Depth]}
}

// Root returns the tree's current frontier root.
func (t *Tree) Root() [32]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Size returns the number of leaves appended so far.
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIdx
}

// Append adds commitment as the next leaf and returns its index and the
// tree's new root.
func (t *Tree) Append(commitment Commitment) (uint64, [32]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nextIdx >= maxLeaves {
		return 0, [32]byte{}, ErrTreeFull
	}

	idx := t.nextIdx
	leafHash := hashLeaf(commitment)
	t.hashes = append(t.hashes, leafHash)
	t.root = t.incrementalRoot(idx, leafHash)
	t.nextIdx++
	return idx, t.root, nil
}

func (t *Tree) incrementalRoot(index uint64, leafHash [32]byte) [32]byte {
	current := leafHash
	for level := 0; level < Depth; level++ {
		if index%2 == 0 {
			t.filledAt[level] = current
			current = hashNode(current, emptyHashes[level])
		} else {
			current = hashNode(t.filledAt[level], current)
		}
		index /= 2
	}
	return current
}

// Proof returns an inclusion proof for the leaf at index.
func (t *Tree) Proof(index uint64) (*Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index >= t.nextIdx {
		return nil, ErrBadIndex
	}

	proof := &Proof{Index: index}
	n := t.nextIdx
	layer := make([][32]byte, n)
	copy(layer, t.hashes[:n])
	idx := index

	for level := 0; level < Depth; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, emptyHashes[level])
		}
		sibIdx := idx ^ 1
		if sibIdx < uint64(len(layer)) {
			proof.Siblings[level] = layer[sibIdx]
		} else {
			proof.Siblings[level] = emptyHashes[level]
		}

		next := make([][32]byte, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = hashNode(layer[i], layer[i+1])
		}
		layer = next
		idx /= 2
	}
	return proof, nil
}

// VerifyProof checks proof against root for commitment.
func VerifyProof(commitment Commitment, proof *Proof, root [32]byte) bool {
	if proof == nil {
		return false
	}
	current := hashLeaf(commitment)
	idx := proof.Index
	for level := 0; level < Depth; level++ {
		sibling := proof.Siblings[level]
		if idx%2 == 0 {
			current = hashNode(current, sibling)
		} else {
			current = hashNode(sibling, current)
		}
		idx /= 2
	}
	return current == root
}

// LightClientRoot reduces root modulo the BN254 scalar field, the form a
// SNARK-verified light client circuit consumes as a public input.
func LightClientRoot(root [32]byte) *big.Int { return crypto.HashBytesToField(root[:]) }
