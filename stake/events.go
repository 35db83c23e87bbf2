package stake

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/espresso-sequencer/hotshot-core/crypto"
)

// EventKey totally orders contract events by (block, log index). Events are
// applied in strictly increasing EventKey order and never replayed.
type EventKey struct {
	BlockNumber uint64
	LogIndex    uint64
}

// Less reports whether k sorts strictly before o.
func (k EventKey) Less(o EventKey) bool {
	if k.BlockNumber != o.BlockNumber {
		return k.BlockNumber < o.BlockNumber
	}
	return k.LogIndex < o.LogIndex
}

// Event is a closed sum of stake-table contract events. Only this package
// may implement it: the apply method is unexported so the event set stays
// exhaustively enumerable.
type Event interface {
	Key() EventKey
	apply(vm *ValidatorMap) error
}

// RegisterEvent creates a validator with no signature authentication (V1).
type RegisterEvent struct {
	EventKey
	Account     common.Address
	BLSVK       *crypto.BLSPubKey
	SchnorrVK   *crypto.SchnorrVK
	Commission  uint16
}

func (e RegisterEvent) Key() EventKey { return e.EventKey }

func (e RegisterEvent) apply(vm *ValidatorMap) error {
	return vm.register(e.Account, e.BLSVK, e.SchnorrVK, e.Commission)
}

// RegisterV2Event creates a validator after authenticating that both
// supplied signatures sign abi_encode(account) under the declared keys.
type RegisterV2Event struct {
	EventKey
	Account    common.Address
	BLSVK      *crypto.BLSPubKey
	SchnorrVK  *crypto.SchnorrVK
	Commission uint16
	BLSSig     *crypto.BLSSignature
	SchnorrSig *crypto.SchnorrSignature
}

func (e RegisterV2Event) Key() EventKey { return e.EventKey }

func (e RegisterV2Event) apply(vm *ValidatorMap) error {
	msg, err := abiEncodeAddress(e.Account)
	if err != nil {
		return err
	}
	if !crypto.BLSVerify(e.BLSVK, msg, e.BLSSig) {
		return ErrAuthenticationFailed
	}
	challenge := crypto.HashBytesToField(msg)
	if !crypto.SchnorrVerify(e.SchnorrVK, challenge, e.SchnorrSig) {
		return ErrAuthenticationFailed
	}
	return vm.register(e.Account, e.BLSVK, e.SchnorrVK, e.Commission)
}

// DeregisterEvent removes a validator and all of its delegations.
type DeregisterEvent struct {
	EventKey
	Account common.Address
}

func (e DeregisterEvent) Key() EventKey { return e.EventKey }

func (e DeregisterEvent) apply(vm *ValidatorMap) error {
	return vm.deregister(e.Account)
}

// DelegateEvent increases a delegator's stake behind a validator.
type DelegateEvent struct {
	EventKey
	Account   common.Address
	Delegator common.Address
	Amount    *big.Int
}

func (e DelegateEvent) Key() EventKey { return e.EventKey }

func (e DelegateEvent) apply(vm *ValidatorMap) error {
	return vm.delegate(e.Account, e.Delegator, e.Amount)
}

// UndelegateEvent decreases a delegator's stake behind a validator.
type UndelegateEvent struct {
	EventKey
	Account   common.Address
	Delegator common.Address
	Amount    *big.Int
}

func (e UndelegateEvent) Key() EventKey { return e.EventKey }

func (e UndelegateEvent) apply(vm *ValidatorMap) error {
	return vm.undelegate(e.Account, e.Delegator, e.Amount)
}

// KeyUpdateEvent replaces a validator's consensus keys (V1, unauthenticated).
type KeyUpdateEvent struct {
	EventKey
	Account   common.Address
	BLSVK     *crypto.BLSPubKey
	SchnorrVK *crypto.SchnorrVK
}

func (e KeyUpdateEvent) Key() EventKey { return e.EventKey }

func (e KeyUpdateEvent) apply(vm *ValidatorMap) error {
	return vm.updateKeys(e.Account, e.BLSVK, e.SchnorrVK)
}

// KeyUpdateV2Event replaces a validator's consensus keys after authenticating
// both new-key signatures over abi_encode(account).
type KeyUpdateV2Event struct {
	EventKey
	Account    common.Address
	BLSVK      *crypto.BLSPubKey
	SchnorrVK  *crypto.SchnorrVK
	BLSSig     *crypto.BLSSignature
	SchnorrSig *crypto.SchnorrSignature
}

func (e KeyUpdateV2Event) Key() EventKey { return e.EventKey }

func (e KeyUpdateV2Event) apply(vm *ValidatorMap) error {
	msg, err := abiEncodeAddress(e.Account)
	if err != nil {
		return err
	}
	if !crypto.BLSVerify(e.BLSVK, msg, e.BLSSig) {
		return ErrAuthenticationFailed
	}
	challenge := crypto.HashBytesToField(msg)
	if !crypto.SchnorrVerify(e.SchnorrVK, challenge, e.SchnorrSig) {
		return ErrAuthenticationFailed
	}
	return vm.updateKeys(e.Account, e.BLSVK, e.SchnorrVK)
}

var addressABIType, _ = abi.NewType("address", "", nil)

// abiEncodeAddress ABI-encodes a single address argument, matching the
// on-chain abi_encode(account) message signed by RegisterV2/KeyUpdateV2.
func abiEncodeAddress(account common.Address) ([]byte, error) {
	args := abi.Arguments{{Type: addressABIType}}
	return args.Pack(account)
}
