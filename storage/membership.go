package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/espresso-sequencer/hotshot-core/crypto"
	"github.com/espresso-sequencer/hotshot-core/stake"
)

const membershipPrefix = "membership/"

// membershipRecord is the on-disk shape of one checkpointed epoch. stake.Validator
// holds unexported-field types (BLSPubKey, SchnorrVK) behind Marshal/Unmarshal,
// so the store round-trips through this flat wire struct instead of gob'ing
// the domain type directly.
type membershipRecord struct {
	Cursor     stake.EventKey
	Validators []validatorRecord
}

type validatorRecord struct {
	Account        []byte
	BLSVK          []byte
	SchnorrVK      []byte
	Stake          []byte
	Commission     uint16
	DelegatorAddrs [][]byte
	DelegatorAmts  [][]byte
}

func encodeValidator(v *stake.Validator) validatorRecord {
	vr := validatorRecord{
		Account:    append([]byte(nil), v.Account.Bytes()...),
		BLSVK:      v.StakeTableKey.Marshal(),
		SchnorrVK:  v.StateVerKey.Marshal(),
		Stake:      v.Stake.Bytes(),
		Commission: v.Commission,
	}
	for addr, amt := range v.Delegators {
		vr.DelegatorAddrs = append(vr.DelegatorAddrs, append([]byte(nil), addr.Bytes()...))
		vr.DelegatorAmts = append(vr.DelegatorAmts, amt.Bytes())
	}
	return vr
}

func decodeValidator(vr validatorRecord) (*stake.Validator, error) {
	bls, err := crypto.UnmarshalBLSPubKey(vr.BLSVK)
	if err != nil {
		return nil, err
	}
	schnorr, err := crypto.UnmarshalSchnorrVK(vr.SchnorrVK)
	if err != nil {
		return nil, err
	}
	delegators := make(map[common.Address]*uint256.Int, len(vr.DelegatorAddrs))
	for i, addr := range vr.DelegatorAddrs {
		delegators[common.BytesToAddress(addr)] = new(uint256.Int).SetBytes(vr.DelegatorAmts[i])
	}
	return &stake.Validator{
		Account:       common.BytesToAddress(vr.Account),
		StakeTableKey: bls,
		StateVerKey:   schnorr,
		Stake:         new(uint256.Int).SetBytes(vr.Stake),
		Commission:    vr.Commission,
		Delegators:    delegators,
	}, nil
}

// MembershipStore persists stake.Fetcher checkpoints keyed by epoch,
// implementing stake.MembershipPersistence over a KVStore.
type MembershipStore struct {
	table *Table
}

// NewMembershipStore returns a MembershipStore over db.
func NewMembershipStore(db KVStore) *MembershipStore {
	return &MembershipStore{table: NewTable(db, membershipPrefix)}
}

func epochKey(epoch uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], epoch)
	return buf[:]
}

// SaveEpoch encodes and persists vm and cursor under epoch.
func (s *MembershipStore) SaveEpoch(epoch uint64, vm *stake.ValidatorMap, cursor stake.EventKey) error {
	rec := membershipRecord{Cursor: cursor}
	for _, v := range vm.Validators() {
		rec.Validators = append(rec.Validators, encodeValidator(v))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}
	return s.table.Put(epochKey(epoch), buf.Bytes())
}

// LoadLatestEpoch returns the highest epoch checkpointed in the store, if
// any, reconstructed into a fresh ValidatorMap.
func (s *MembershipStore) LoadLatestEpoch() (epoch uint64, vm *stake.ValidatorMap, cursor stake.EventKey, ok bool, err error) {
	var latestEpoch uint64
	var latestRaw []byte
	found := false
	iterErr := s.table.Iterate(nil, func(key, value []byte) bool {
		e := binary.BigEndian.Uint64(key)
		if !found || e > latestEpoch {
			latestEpoch = e
			latestRaw = append([]byte(nil), value...)
			found = true
		}
		return true
	})
	if iterErr != nil {
		return 0, nil, stake.EventKey{}, false, iterErr
	}
	if !found {
		return 0, nil, stake.EventKey{}, false, nil
	}

	var rec membershipRecord
	if err := gob.NewDecoder(bytes.NewReader(latestRaw)).Decode(&rec); err != nil {
		return 0, nil, stake.EventKey{}, false, err
	}

	validators := make([]*stake.Validator, 0, len(rec.Validators))
	for _, vr := range rec.Validators {
		v, err := decodeValidator(vr)
		if err != nil {
			return 0, nil, stake.EventKey{}, false, err
		}
		validators = append(validators, v)
	}
	return latestEpoch, stake.RestoreValidatorMap(validators), rec.Cursor, true, nil
}
