package storage

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/espresso-sequencer/hotshot-core/blockmerkle"
	"github.com/espresso-sequencer/hotshot-core/crypto"
	"github.com/espresso-sequencer/hotshot-core/stake"
)

func TestMemoryStoreContract(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()

	ok, err := m.Has([]byte("a"))
	if err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if _, err := m.Get([]byte("a")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err = m.Has([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("expected present key, got ok=%v err=%v", ok, err)
	}
	v, err := m.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("Get: got %q, err=%v", v, err)
	}

	if err := m.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get([]byte("a")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreIterateOrderAndPrefix(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()

	entries := map[string]string{
		"p/b": "2",
		"p/a": "1",
		"p/c": "3",
		"q/a": "x",
	}
	for k, v := range entries {
		if err := m.Put([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	var keys []string
	err := m.Iterate([]byte("p/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	want := []string{"p/a", "p/b", "p/c"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestTablePrefixIsolation(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()

	a := NewTable(db, "a/")
	b := NewTable(db, "b/")

	if err := a.Put([]byte("k"), []byte("from-a")); err != nil {
		t.Fatalf("a.Put: %v", err)
	}
	if err := b.Put([]byte("k"), []byte("from-b")); err != nil {
		t.Fatalf("b.Put: %v", err)
	}

	av, err := a.Get([]byte("k"))
	if err != nil || string(av) != "from-a" {
		t.Fatalf("a.Get: got %q, err=%v", av, err)
	}
	bv, err := b.Get([]byte("k"))
	if err != nil || string(bv) != "from-b" {
		t.Fatalf("b.Get: got %q, err=%v", bv, err)
	}

	var seen []string
	err = a.Iterate(nil, func(key, value []byte) bool {
		seen = append(seen, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("a.Iterate: %v", err)
	}
	if len(seen) != 1 || seen[0] != "k" {
		t.Fatalf("expected only a's own key with prefix stripped, got %v", seen)
	}
}

func mustBLS(t *testing.T) *crypto.BLSPubKey {
	t.Helper()
	_, pub, err := crypto.GenerateBLSKey()
	if err != nil {
		t.Fatalf("GenerateBLSKey: %v", err)
	}
	return pub
}

func mustSchnorr(t *testing.T) *crypto.SchnorrVK {
	t.Helper()
	_, vk, err := crypto.GenerateSchnorrKey()
	if err != nil {
		t.Fatalf("GenerateSchnorrKey: %v", err)
	}
	return vk
}

func TestMembershipStoreSaveLoadRoundTrip(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()
	ms := NewMembershipStore(db)

	acct1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	acct2 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	delegator := common.HexToAddress("0x3333333333333333333333333333333333333333")

	events := []stake.Event{
		stake.RegisterEvent{
			EventKey:   stake.EventKey{BlockNumber: 1, LogIndex: 0},
			Account:    acct1,
			BLSVK:      mustBLS(t),
			SchnorrVK:  mustSchnorr(t),
			Commission: 500,
		},
		stake.RegisterEvent{
			EventKey:   stake.EventKey{BlockNumber: 1, LogIndex: 1},
			Account:    acct2,
			BLSVK:      mustBLS(t),
			SchnorrVK:  mustSchnorr(t),
			Commission: 250,
		},
		stake.DelegateEvent{
			EventKey:  stake.EventKey{BlockNumber: 2, LogIndex: 0},
			Account:   acct1,
			Delegator: delegator,
			Amount:    big.NewInt(42),
		},
	}
	vm := stake.Fold(events)
	if vm.Len() != 2 {
		t.Fatalf("expected 2 validators after fold, got %d", vm.Len())
	}

	cursor := stake.EventKey{BlockNumber: 2, LogIndex: 0}
	if err := ms.SaveEpoch(7, vm, cursor); err != nil {
		t.Fatalf("SaveEpoch: %v", err)
	}

	epoch, restored, gotCursor, ok, err := ms.LoadLatestEpoch()
	if err != nil {
		t.Fatalf("LoadLatestEpoch: %v", err)
	}
	if !ok {
		t.Fatalf("expected a checkpoint to be found")
	}
	if epoch != 7 {
		t.Fatalf("epoch = %d, want 7", epoch)
	}
	if gotCursor != cursor {
		t.Fatalf("cursor = %+v, want %+v", gotCursor, cursor)
	}
	if restored.Len() != vm.Len() {
		t.Fatalf("restored.Len() = %d, want %d", restored.Len(), vm.Len())
	}

	v1, ok := restored.Get(acct1)
	if !ok {
		t.Fatalf("acct1 missing after restore")
	}
	if v1.Stake.Uint64() != 42 {
		t.Fatalf("acct1 stake = %d, want 42", v1.Stake.Uint64())
	}
	if v1.Commission != 500 {
		t.Fatalf("acct1 commission = %d, want 500", v1.Commission)
	}
}

func TestMembershipStoreLoadLatestEpochEmpty(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()
	ms := NewMembershipStore(db)

	_, _, _, ok, err := ms.LoadLatestEpoch()
	if err != nil {
		t.Fatalf("LoadLatestEpoch: %v", err)
	}
	if ok {
		t.Fatalf("expected no checkpoint in an empty store")
	}
}

func TestDrbCheckpointStoreRoundTrip(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()
	cs := NewDrbCheckpointStore(db)

	var value [32]byte
	value[0] = 0xAB

	if _, ok := cs.Load(3); ok {
		t.Fatalf("expected no checkpoint before Store")
	}

	if err := cs.Store(3, 11, value); err != nil {
		t.Fatalf("Store: %v", err)
	}
	input, ok := cs.Load(3)
	if !ok {
		t.Fatalf("expected checkpoint after Store")
	}
	if input.Epoch != 3 || input.Iteration != 11 || input.Value != value {
		t.Fatalf("Load returned %+v", input)
	}

	if err := cs.Clear(3); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := cs.Load(3); ok {
		t.Fatalf("expected no checkpoint after Clear")
	}
}

func TestBlockCommitmentStoreAppendAndRebuild(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()
	bs := NewBlockCommitmentStore(db)

	tree := blockmerkle.New()
	for i := 0; i < 5; i++ {
		var c blockmerkle.Commitment
		c[0] = byte(i)
		if _, _, err := tree.Append(c); err != nil {
			t.Fatalf("tree.Append: %v", err)
		}
		if err := bs.Append(uint64(i), c); err != nil {
			t.Fatalf("bs.Append: %v", err)
		}
	}

	rebuilt, err := bs.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.Size() != tree.Size() {
		t.Fatalf("rebuilt.Size() = %d, want %d", rebuilt.Size(), tree.Size())
	}
	if rebuilt.Root() != tree.Root() {
		t.Fatalf("rebuilt root does not match original")
	}
}

func TestShareStorePutGetAndDeleteHeight(t *testing.T) {
	db := NewMemoryStore()
	defer db.Close()
	ss := NewShareStore(db)

	if err := ss.Put(10, 0, []byte("share-0")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ss.Put(10, 1, []byte("share-1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, err := ss.Get(10, 0)
	if err != nil || string(v) != "share-0" {
		t.Fatalf("Get(10,0): got %q, err=%v", v, err)
	}
	v, err = ss.Get(10, 1)
	if err != nil || string(v) != "share-1" {
		t.Fatalf("Get(10,1): got %q, err=%v", v, err)
	}

	if err := ss.DeleteHeight(10, 2); err != nil {
		t.Fatalf("DeleteHeight: %v", err)
	}
	if _, err := ss.Get(10, 0); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after DeleteHeight, got %v", err)
	}
	if _, err := ss.Get(10, 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after DeleteHeight, got %v", err)
	}
}
