// Package storage provides the persistence layer the consensus glue relies
// on: a small key-value store abstraction with an in-memory implementation
// for tests and a Pebble-backed implementation for production, plus
// domain-specific stores layered over it (stake-table membership, DRB
// checkpoints, AVID-M shares, and the block Merkle tree).
package storage

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("storage: not found")

// KVStore is the minimal persistence contract every domain store in this
// package is built on.
type KVStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every stored key with the given prefix, in
	// ascending key order, until fn returns false or the keys are
	// exhausted.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	Close() error
}

// MemoryStore is an in-memory KVStore, safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemoryStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemoryStore) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snapshot[k] = append([]byte(nil), m.data[k]...)
	}
	m.mu.RUnlock()

	for _, k := range keys {
		if !fn([]byte(k), snapshot[k]) {
			break
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// PebbleStore is a Pebble-backed KVStore for production deployments.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (or creates) a Pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *PebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleStore) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if !fn(key, value) {
			break
		}
	}
	return iter.Error()
}

func (p *PebbleStore) Close() error { return p.db.Close() }

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil if prefix is all 0xff (unbounded).
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Table wraps a KVStore, prepending a fixed prefix to every key so
// multiple logical domains can share one physical store without key
// collisions.
type Table struct {
	db     KVStore
	prefix []byte
}

// NewTable returns a Table over db with the given prefix.
func NewTable(db KVStore, prefix string) *Table {
	return &Table{db: db, prefix: []byte(prefix)}
}

func (t *Table) prefixed(key []byte) []byte {
	out := make([]byte, len(t.prefix)+len(key))
	copy(out, t.prefix)
	copy(out[len(t.prefix):], key)
	return out
}

func (t *Table) Has(key []byte) (bool, error)   { return t.db.Has(t.prefixed(key)) }
func (t *Table) Get(key []byte) ([]byte, error) { return t.db.Get(t.prefixed(key)) }
func (t *Table) Put(key, value []byte) error    { return t.db.Put(t.prefixed(key), value) }
func (t *Table) Delete(key []byte) error        { return t.db.Delete(t.prefixed(key)) }

func (t *Table) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	return t.db.Iterate(t.prefixed(prefix), func(key, value []byte) bool {
		return fn(key[len(t.prefix):], value)
	})
}

func (t *Table) Close() error { return nil }
