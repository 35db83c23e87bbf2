package stake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrFetcherStopped = errors.New("stake: fetcher stopped")
	ErrQueueFull      = errors.New("stake: event queue full")
)

// MembershipPersistence is the storage contract the fetcher checkpoints
// against: it records the live validator map and event cursor at each
// published epoch so a restart can replay forward from the last checkpoint
// instead of re-scanning from genesis.
type MembershipPersistence interface {
	LoadLatestEpoch() (epoch uint64, vm *ValidatorMap, cursor EventKey, ok bool, err error)
	SaveEpoch(epoch uint64, vm *ValidatorMap, cursor EventKey) error
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	MinRatio  uint64
	QueueSize int
}

// DefaultFetcherConfig returns sensible defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{MinRatio: DefaultMinRatio, QueueSize: 256}
}

// Fetcher owns the event cursor and the live ValidatorMap on a single
// background task; Submit enqueues events from whatever is reading the
// contract log stream, and PublishEpoch snapshots the current fold into an
// immutable StakeTable. Stop cancels the background task and waits for it
// to drain, the drop-guard pattern for the fetcher's owned goroutine.
type Fetcher struct {
	config      FetcherConfig
	persistence MembershipPersistence

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
	eventCh chan Event

	mu        sync.RWMutex
	live      *ValidatorMap
	cursor    EventKey
	hasCursor bool
	snapshots map[uint64]StakeTable
}

// NewFetcher constructs a Fetcher, replaying from persistence if a prior
// checkpoint exists, and starts its background apply loop.
func NewFetcher(config FetcherConfig, persistence MembershipPersistence) (*Fetcher, error) {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.MinRatio == 0 {
		config.MinRatio = DefaultMinRatio
	}

	live := NewValidatorMap()
	var cursor EventKey
	hasCursor := false
	if persistence != nil {
		_, loadedVM, loadedCursor, ok, err := persistence.LoadLatestEpoch()
		if err != nil {
			return nil, err
		}
		if ok {
			live = loadedVM
			cursor = loadedCursor
			hasCursor = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		config:      config,
		persistence: persistence,
		ctx:         ctx,
		cancel:      cancel,
		eventCh:     make(chan Event, config.QueueSize),
		live:        live,
		cursor:      cursor,
		hasCursor:   hasCursor,
		snapshots:   make(map[uint64]StakeTable),
	}

	f.wg.Add(1)
	go f.run()
	return f, nil
}

// Submit enqueues an event for processing by the background task. Returns
// ErrFetcherStopped if the fetcher has been stopped, or ErrQueueFull if the
// queue is saturated.
func (f *Fetcher) Submit(ev Event) error {
	if f.stopped.Load() {
		return ErrFetcherStopped
	}
	select {
	case f.eventCh <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (f *Fetcher) run() {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case ev := <-f.eventCh:
			f.applyLocked(ev)
		}
	}
}

func (f *Fetcher) applyLocked(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := ev.Key()
	if f.hasCursor && !f.cursor.Less(k) {
		return // out-of-order or replayed event; dropped, not fatal.
	}
	f.cursor = k
	f.hasCursor = true
	_ = f.live.Apply(ev) // event-level rejection is skipped; state is unchanged.
}

// PublishEpoch computes and records an immutable StakeTable snapshot for
// epoch from the current live fold, persisting the checkpoint if a
// MembershipPersistence was configured.
func (f *Fetcher) PublishEpoch(epoch uint64) (StakeTable, error) {
	f.mu.RLock()
	vm := f.live.Clone()
	cursor := f.cursor
	f.mu.RUnlock()

	st, err := PublishEpoch(vm, epoch, f.config.MinRatio)
	if err != nil {
		return StakeTable{}, err
	}

	f.mu.Lock()
	f.snapshots[epoch] = st
	f.mu.Unlock()

	if f.persistence != nil {
		if err := f.persistence.SaveEpoch(epoch, vm, cursor); err != nil {
			return StakeTable{}, err
		}
	}
	return st, nil
}

// Snapshot returns a previously published epoch's StakeTable.
func (f *Fetcher) Snapshot(epoch uint64) (StakeTable, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.snapshots[epoch]
	return st, ok
}

// Cursor returns the last applied EventKey.
func (f *Fetcher) Cursor() (EventKey, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cursor, f.hasCursor
}

// Stop cancels the background task and waits for it to exit.
func (f *Fetcher) Stop() {
	if f.stopped.Swap(true) {
		return
	}
	f.cancel()
	f.wg.Wait()
}
