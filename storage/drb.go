package storage

import (
	"encoding/binary"

	"github.com/espresso-sequencer/hotshot-core/drb"
)

const drbCheckpointPrefix = "drb/checkpoint/"

// DrbCheckpointStore persists the latest drb.Compute checkpoint per epoch,
// implementing drb.ProgressStore and supplying drb.CheckpointLoader/Resume.
type DrbCheckpointStore struct {
	table *Table
}

// NewDrbCheckpointStore returns a DrbCheckpointStore over db.
func NewDrbCheckpointStore(db KVStore) *DrbCheckpointStore {
	return &DrbCheckpointStore{table: NewTable(db, drbCheckpointPrefix)}
}

func drbEpochKey(epoch uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], epoch)
	return buf[:]
}

// Store implements drb.ProgressStore: it overwrites the checkpoint for
// epoch, since only the most recent checkpoint is ever needed to resume.
func (s *DrbCheckpointStore) Store(epoch, iteration uint64, value [32]byte) error {
	buf := make([]byte, 8+32)
	binary.BigEndian.PutUint64(buf[:8], iteration)
	copy(buf[8:], value[:])
	return s.table.Put(drbEpochKey(epoch), buf)
}

// Load implements drb.CheckpointLoader.
func (s *DrbCheckpointStore) Load(epoch uint64) (drb.DrbInput, bool) {
	raw, err := s.table.Get(drbEpochKey(epoch))
	if err != nil {
		return drb.DrbInput{}, false
	}
	if len(raw) != 8+32 {
		return drb.DrbInput{}, false
	}
	iteration := binary.BigEndian.Uint64(raw[:8])
	var value [32]byte
	copy(value[:], raw[8:])
	return drb.DrbInput{Epoch: epoch, Iteration: iteration, Value: value}, true
}

// Clear drops a completed epoch's checkpoint; once an epoch's DrbResult is
// published there is nothing left to resume.
func (s *DrbCheckpointStore) Clear(epoch uint64) error {
	return s.table.Delete(drbEpochKey(epoch))
}
