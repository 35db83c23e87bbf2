package stake

import (
	"sort"

	"github.com/holiman/uint256"
)

// DefaultMinRatio is the ratio-based floor divisor used when the caller has
// no stronger preference: a validator is retained in the consensus
// committee only if stake >= max_stake/MinRatio (integer division), i.e.
// stake is roughly at least 1/MinRatio of the largest stake in the epoch. The source left this ratio
// unspecified; 20 (a 5% floor) matches the conservative end of comparable
// stake-weighted committee designs and is treated here as the resolved
// default, overridable per call.
const DefaultMinRatio = 20

// StakeTable is an immutable, ordered, per-epoch validator snapshot.
type StakeTable struct {
	Epoch      uint64
	Validators []Validator
}

// PublishEpoch clones vm, drops validators with zero stake or no
// delegators, and restricts the remainder to the ratio-based consensus
// committee floor: stake >= max_stake / minRatio. Returns
// ErrNoValidValidators if nothing survives the filter, or
// ErrMinimumStakeOverflow if the floor computation overflows.
func PublishEpoch(vm *ValidatorMap, epoch uint64, minRatio uint64) (StakeTable, error) {
	snapshot := vm.Clone()

	kept := make([]*Validator, 0, len(snapshot.byAccount))
	for _, v := range snapshot.byAccount {
		if v.Stake.IsZero() || len(v.Delegators) == 0 {
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return StakeTable{}, ErrNoValidValidators
	}

	maxStake := uint256.NewInt(0)
	for _, v := range kept {
		if v.Stake.Gt(maxStake) {
			maxStake = v.Stake
		}
	}
	if minRatio == 0 {
		return StakeTable{}, ErrMinimumStakeOverflow
	}

	floor, overflow := new(uint256.Int).MulDivOverflow(maxStake, uint256.NewInt(1), uint256.NewInt(minRatio))
	if overflow {
		return StakeTable{}, ErrMinimumStakeOverflow
	}

	committee := make([]Validator, 0, len(kept))
	for _, v := range kept {
		if v.Stake.Cmp(floor) >= 0 {
			committee = append(committee, *v)
		}
	}
	if len(committee) == 0 {
		return StakeTable{}, ErrNoValidValidators
	}

	sort.Slice(committee, func(i, j int) bool {
		return committee[i].Account.Cmp(committee[j].Account) < 0
	})

	return StakeTable{Epoch: epoch, Validators: committee}, nil
}
