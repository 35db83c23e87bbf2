package storage

import (
	"encoding/binary"

	"github.com/espresso-sequencer/hotshot-core/blockmerkle"
)

const blockCommitmentPrefix = "blockmerkle/commitment/"

// BlockCommitmentStore persists the append-only sequence of block
// commitments backing a blockmerkle.Tree, so the tree can be rebuilt by
// replaying Append in order after a restart.
type BlockCommitmentStore struct {
	table *Table
}

// NewBlockCommitmentStore returns a BlockCommitmentStore over db.
func NewBlockCommitmentStore(db KVStore) *BlockCommitmentStore {
	return &BlockCommitmentStore{table: NewTable(db, blockCommitmentPrefix)}
}

func blockIndexKey(index uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return buf[:]
}

// Append persists commitment at index.
func (s *BlockCommitmentStore) Append(index uint64, commitment blockmerkle.Commitment) error {
	return s.table.Put(blockIndexKey(index), commitment[:])
}

// Rebuild replays every persisted commitment, in index order, into a fresh
// blockmerkle.Tree.
func (s *BlockCommitmentStore) Rebuild() (*blockmerkle.Tree, error) {
	tree := blockmerkle.New()
	err := s.table.Iterate(nil, func(key, value []byte) bool {
		var c blockmerkle.Commitment
		copy(c[:], value)
		_, _, appendErr := tree.Append(c)
		return appendErr == nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}
