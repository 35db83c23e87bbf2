package storage

import (
	"encoding/binary"
)

const sharePrefix = "shares/"

// ShareStore persists opaque AVID-M/nsavidm share blobs keyed by (height,
// nodeIndex), the retention layer a storage node uses to serve recovery
// requests without recomputing dispersal. Callers own serialization of the
// share payload itself (gob, or whatever wire format the transport layer
// uses); this store just keys and retains the bytes.
type ShareStore struct {
	table *Table
}

// NewShareStore returns a ShareStore over db.
func NewShareStore(db KVStore) *ShareStore {
	return &ShareStore{table: NewTable(db, sharePrefix)}
}

func shareKey(height uint64, nodeIndex uint32) []byte {
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[:8], height)
	binary.BigEndian.PutUint32(buf[8:], nodeIndex)
	return buf[:]
}

// Put persists a node's share blob for a given block height.
func (s *ShareStore) Put(height uint64, nodeIndex uint32, blob []byte) error {
	return s.table.Put(shareKey(height, nodeIndex), blob)
}

// Get retrieves a node's share blob, returning ErrNotFound if absent.
func (s *ShareStore) Get(height uint64, nodeIndex uint32) ([]byte, error) {
	return s.table.Get(shareKey(height, nodeIndex))
}

// DeleteHeight drops the shares recorded at height for node indices 0
// through nodeCount-1, once retention has expired.
func (s *ShareStore) DeleteHeight(height uint64, nodeCount uint32) error {
	for i := uint32(0); i < nodeCount; i++ {
		if err := s.table.Delete(shareKey(height, i)); err != nil {
			return err
		}
	}
	return nil
}
