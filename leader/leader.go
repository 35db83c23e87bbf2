// Package leader computes stake-weighted leader selection for a view given
// a DRB seed and a committee of (pubkey, stake) entries: committee order is
// derandomized per DRB via a cyclic-XOR sort, then each view samples a
// breakpoint on the resulting stake CDF via a SHA-512 draw reduced modulo
// the total stake.
package leader

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
)

var ErrEmptyCommittee = errors.New("leader: empty committee")

// Entry is one committee member's public key and weight.
type Entry struct {
	PubKey []byte
	Stake  *uint256.Int
}

// Schedule is the derandomized, stake-weighted committee order for one DRB
// seed: a fixed point for every view sampled against it.
type Schedule struct {
	entries        []Entry
	cumulative     []*uint256.Int
	totalStake     *uint256.Int
	stakeTableHash [32]byte
}

// cyclicXOR xors pubkey against drb repeated (cycled) over its length.
func cyclicXOR(drb [32]byte, pubkey []byte) []byte {
	out := make([]byte, len(pubkey))
	for i := range pubkey {
		out[i] = pubkey[i] ^ drb[i%32]
	}
	return out
}

// BuildSchedule derandomizes committee's order by cyclic-XOR sort key,
// builds the cumulative stake CDF, and hash-accumulates the ordered
// pubkeys into the stake-table hash used by SelectLeader.
func BuildSchedule(drb [32]byte, committee []Entry) (*Schedule, error) {
	if len(committee) == 0 {
		return nil, ErrEmptyCommittee
	}

	ordered := make([]Entry, len(committee))
	copy(ordered, committee)
	keys := make([][]byte, len(ordered))
	for i, e := range ordered {
		keys[i] = cyclicXOR(drb, e.PubKey)
	}
	idx := make([]int, len(ordered))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(keys[idx[i]], keys[idx[j]]) < 0
	})
	sortedEntries := make([]Entry, len(ordered))
	for i, id := range idx {
		sortedEntries[i] = ordered[id]
	}

	cumulative := make([]*uint256.Int, len(sortedEntries))
	total := uint256.NewInt(0)
	h := sha256.New()
	for i, e := range sortedEntries {
		total = new(uint256.Int).Add(total, e.Stake)
		cumulative[i] = new(uint256.Int).Set(total)
		h.Write(e.PubKey)
	}
	var tableHash [32]byte
	copy(tableHash[:], h.Sum(nil))

	return &Schedule{
		entries:        sortedEntries,
		cumulative:     cumulative,
		totalStake:     total,
		stakeTableHash: tableHash,
	}, nil
}

// StakeTableHash returns SHA256(pubkey_1 || pubkey_2 || ...) over the
// derandomized committee order.
func (s *Schedule) StakeTableHash() [32]byte { return s.stakeTableHash }

// TotalStake returns the sum of every entry's stake.
func (s *Schedule) TotalStake() *uint256.Int { return new(uint256.Int).Set(s.totalStake) }

// Entries returns the derandomized committee order.
func (s *Schedule) Entries() []Entry { return s.entries }

// SelectLeader deterministically samples the leader for view v: it hashes
// SHA512(drb || v_LE || stake_table_hash), reduces the 512-bit digest
// modulo total stake, and returns the first entry whose cumulative stake
// strictly exceeds the resulting breakpoint.
func (s *Schedule) SelectLeader(drb [32]byte, view uint64) Entry {
	var buf [72]byte
	copy(buf[:32], drb[:])
	binary.LittleEndian.PutUint64(buf[32:40], view)
	copy(buf[40:], s.stakeTableHash[:])
	digest := sha512.Sum512(buf[:])

	digestInt := new(big.Int).SetBytes(digest[:])
	breakpointBig := new(big.Int).Mod(digestInt, s.totalStake.ToBig())
	breakpoint, _ := uint256.FromBig(breakpointBig)

	for i, cum := range s.cumulative {
		if cum.Gt(breakpoint) {
			return s.entries[i]
		}
	}
	return s.entries[len(s.entries)-1]
}
