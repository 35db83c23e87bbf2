// Package stake reconstructs the per-epoch validator set from an ordered
// stream of stake-table contract events. A ValidatorMap is a pure function
// of the event prefix applied to it: replaying the same ordered events from
// empty always yields an identical map, and every epoch's published snapshot
// is an immutable, independently-held copy.
package stake

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/espresso-sequencer/hotshot-core/crypto"
)

const MaxCommissionBps = 10_000

var (
	ErrAlreadyRegistered    = errors.New("stake: validator already registered")
	ErrValidatorNotFound    = errors.New("stake: validator not found")
	ErrDelegatorNotFound    = errors.New("stake: delegator not found")
	ErrBlsKeyAlreadyUsed    = errors.New("stake: bls key already in use")
	ErrSchnorrKeyAlreadyUsed = errors.New("stake: schnorr key already in use")
	ErrAuthenticationFailed = errors.New("stake: signature authentication failed")
	ErrCommissionTooHigh    = errors.New("stake: commission exceeds 10000 bps")
	ErrZeroDelegation       = errors.New("stake: zero-amount delegation rejected")
	ErrInsufficientStake    = errors.New("stake: undelegate amount exceeds balance")
	ErrNoValidValidators    = errors.New("stake: no valid validators remain after filtering")
	ErrMinimumStakeOverflow = errors.New("stake: minimum stake floor computation overflowed")
	ErrEventReplayed        = errors.New("stake: event key is not strictly increasing")
)

// Validator is one epoch's view of a registered account: its consensus and
// light-client keys, total stake (own plus delegated), commission, and the
// per-delegator breakdown that sums to Stake.
type Validator struct {
	Account       common.Address
	StakeTableKey *crypto.BLSPubKey
	StateVerKey   *crypto.SchnorrVK
	Stake         *uint256.Int
	Commission    uint16
	Delegators    map[common.Address]*uint256.Int
}

func newValidator(account common.Address, bls *crypto.BLSPubKey, schnorr *crypto.SchnorrVK, commission uint16) *Validator {
	return &Validator{
		Account:       account,
		StakeTableKey: bls,
		StateVerKey:   schnorr,
		Commission:    commission,
		Stake:         uint256.NewInt(0),
		Delegators:    make(map[common.Address]*uint256.Int),
	}
}

func (v *Validator) clone() *Validator {
	cp := *v
	cp.Stake = new(uint256.Int).Set(v.Stake)
	cp.Delegators = make(map[common.Address]*uint256.Int, len(v.Delegators))
	for k, amt := range v.Delegators {
		cp.Delegators[k] = new(uint256.Int).Set(amt)
	}
	return &cp
}

// ValidatorMap is the live, mutable fold of the event stream. It is not
// safe for concurrent use; the fetcher's background task owns it exclusively
// and publishes immutable Clone()s as epoch snapshots.
type ValidatorMap struct {
	byAccount   map[common.Address]*Validator
	blsUsed     map[string]common.Address
	schnorrUsed map[string]common.Address
}

// NewValidatorMap returns an empty map.
func NewValidatorMap() *ValidatorMap {
	return &ValidatorMap{
		byAccount:   make(map[common.Address]*Validator),
		blsUsed:     make(map[string]common.Address),
		schnorrUsed: make(map[string]common.Address),
	}
}

// Clone deep-copies the map for publication as an immutable epoch snapshot.
func (vm *ValidatorMap) Clone() *ValidatorMap {
	cp := NewValidatorMap()
	for acct, v := range vm.byAccount {
		cp.byAccount[acct] = v.clone()
	}
	for k, acct := range vm.blsUsed {
		cp.blsUsed[k] = acct
	}
	for k, acct := range vm.schnorrUsed {
		cp.schnorrUsed[k] = acct
	}
	return cp
}

// Get returns a copy of the validator for account, if present.
func (vm *ValidatorMap) Get(account common.Address) (*Validator, bool) {
	v, ok := vm.byAccount[account]
	if !ok {
		return nil, false
	}
	return v.clone(), true
}

// Len returns the number of registered validators.
func (vm *ValidatorMap) Len() int { return len(vm.byAccount) }

// Validators returns a clone of every registered validator, in no
// particular order. Used by persistence to snapshot the live map.
func (vm *ValidatorMap) Validators() []*Validator {
	out := make([]*Validator, 0, len(vm.byAccount))
	for _, v := range vm.byAccount {
		out = append(out, v.clone())
	}
	return out
}

// RestoreValidatorMap rebuilds a ValidatorMap directly from a previously
// published validator list (as returned by Validators), bypassing event
// authentication: the caller is trusted to be replaying its own
// persistence, not untrusted contract events.
func RestoreValidatorMap(validators []*Validator) *ValidatorMap {
	vm := NewValidatorMap()
	for _, v := range validators {
		cp := v.clone()
		vm.byAccount[cp.Account] = cp
		vm.blsUsed[string(cp.StakeTableKey.Marshal())] = cp.Account
		vm.schnorrUsed[string(cp.StateVerKey.Marshal())] = cp.Account
	}
	return vm
}

// Apply processes a single event, mutating vm in place. Authentication and
// invariant-violation failures reject the event without mutating state;
// the caller (the fetcher) is expected to log and continue, per the event
// error taxonomy.
func (vm *ValidatorMap) Apply(ev Event) error {
	return ev.apply(vm)
}

// Fold replays an ordered slice of events from empty and returns the
// resulting map. Events rejected by an invariant check are skipped, not
// fatal to the fold: this is the property exercised by event-fold purity
// tests, which replay the same prefix and expect an identical result.
func Fold(events []Event) *ValidatorMap {
	vm := NewValidatorMap()
	var cursor EventKey
	first := true
	for _, ev := range events {
		k := ev.Key()
		if !first && !cursor.Less(k) {
			continue
		}
		cursor = k
		first = false
		_ = vm.Apply(ev) // event-level errors are dropped; state unchanged on failure.
	}
	return vm
}

func (vm *ValidatorMap) register(account common.Address, bls *crypto.BLSPubKey, schnorr *crypto.SchnorrVK, commission uint16) error {
	if commission > MaxCommissionBps {
		return ErrCommissionTooHigh
	}
	if _, exists := vm.byAccount[account]; exists {
		return ErrAlreadyRegistered
	}
	blsKey := string(bls.Marshal())
	if _, used := vm.blsUsed[blsKey]; used {
		return ErrBlsKeyAlreadyUsed
	}
	schnorrKey := string(schnorr.Marshal())
	if _, used := vm.schnorrUsed[schnorrKey]; used {
		return ErrSchnorrKeyAlreadyUsed
	}

	vm.byAccount[account] = newValidator(account, bls, schnorr, commission)
	vm.blsUsed[blsKey] = account
	vm.schnorrUsed[schnorrKey] = account
	return nil
}

func (vm *ValidatorMap) deregister(account common.Address) error {
	v, ok := vm.byAccount[account]
	if !ok {
		return ErrValidatorNotFound
	}
	delete(vm.blsUsed, string(v.StakeTableKey.Marshal()))
	delete(vm.schnorrUsed, string(v.StateVerKey.Marshal()))
	delete(vm.byAccount, account)
	return nil
}

func (vm *ValidatorMap) delegate(account, delegator common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroDelegation
	}
	v, ok := vm.byAccount[account]
	if !ok {
		return ErrValidatorNotFound
	}
	amt, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrMinimumStakeOverflow
	}
	cur, ok := v.Delegators[delegator]
	if !ok {
		cur = uint256.NewInt(0)
	}
	next := new(uint256.Int).Add(cur, amt)
	v.Delegators[delegator] = next
	v.Stake = new(uint256.Int).Add(v.Stake, amt)
	return nil
}

func (vm *ValidatorMap) undelegate(account, delegator common.Address, amount *big.Int) error {
	v, ok := vm.byAccount[account]
	if !ok {
		return ErrValidatorNotFound
	}
	cur, ok := v.Delegators[delegator]
	if !ok {
		return ErrDelegatorNotFound
	}
	amt, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrMinimumStakeOverflow
	}
	if cur.Lt(amt) {
		return ErrInsufficientStake
	}
	remaining := new(uint256.Int).Sub(cur, amt)
	if remaining.IsZero() {
		delete(v.Delegators, delegator)
	} else {
		v.Delegators[delegator] = remaining
	}
	v.Stake = new(uint256.Int).Sub(v.Stake, amt)
	return nil
}

func (vm *ValidatorMap) updateKeys(account common.Address, bls *crypto.BLSPubKey, schnorr *crypto.SchnorrVK) error {
	v, ok := vm.byAccount[account]
	if !ok {
		return ErrValidatorNotFound
	}
	blsKey := string(bls.Marshal())
	if holder, used := vm.blsUsed[blsKey]; used && holder != account {
		return ErrBlsKeyAlreadyUsed
	}
	schnorrKey := string(schnorr.Marshal())
	if holder, used := vm.schnorrUsed[schnorrKey]; used && holder != account {
		return ErrSchnorrKeyAlreadyUsed
	}

	delete(vm.blsUsed, string(v.StakeTableKey.Marshal()))
	delete(vm.schnorrUsed, string(v.StateVerKey.Marshal()))
	v.StakeTableKey = bls
	v.StateVerKey = schnorr
	vm.blsUsed[blsKey] = account
	vm.schnorrUsed[schnorrKey] = account
	return nil
}
