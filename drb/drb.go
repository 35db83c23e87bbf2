// Package drb computes the distributed random beacon: an unbiased per-epoch
// seed derived by iterating SHA-256 a fixed difficulty-level number of times
// over a quorum-certificate-derived input. Progress checkpoints at a
// configurable interval so a long-running compute can be resumed after a
// restart without redoing already-hashed rounds.
package drb

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/espresso-sequencer/hotshot-core/log"
	"github.com/espresso-sequencer/hotshot-core/metrics"
)

var drbLog = log.Default().Module("drb")

// drbStats tags each Compute's wall-clock duration by epoch (via Record)
// and feeds the same observation into an untagged histogram (via
// RecordHistogram) so DRBMetricsSnapshot can report both the latest
// per-epoch timing and the overall p50/p99 compute latency.
var drbStats = metrics.NewMetricsCollector(metrics.CollectorConfig{EnableHistograms: true})

// drbRate tracks how often DRB computations finish, the way a node
// operator would watch the epoch cadence for stalls.
var drbRate = metrics.NewMeter()

// logReportBackend logs each periodic metrics snapshot through drbLog
// instead of pushing it to an external system such as Prometheus or
// StatsD; suitable for a devnet run with no metrics infrastructure.
type logReportBackend struct{}

func (logReportBackend) Report(snap map[string]float64) error {
	drbLog.Info("drb metrics", "snapshot", snap)
	return nil
}

var drbReporter = metrics.NewMetricsReporter(30 * time.Second)

func init() {
	drbReporter.RegisterBackend("log", logReportBackend{})
}

// StartMetricsReporting begins periodically logging DRB compute metrics
// (rate and latency) every 30 seconds. Callers should arrange a single call
// at node startup; Stop is idempotent and safe to call during shutdown.
func StartMetricsReporting() {
	drbReporter.Start()
}

// StopMetricsReporting halts periodic metrics logging started by
// StartMetricsReporting.
func StopMetricsReporting() {
	drbReporter.Stop()
}

// DRBMetricsSnapshot returns the most recent per-epoch compute duration,
// the overall p50/p99 compute latency in milliseconds, and the current
// completions-per-second rate.
func DRBMetricsSnapshot() map[string]float64 {
	snap := map[string]float64{
		"p50_ms": drbStats.HistogramPercentile("drb_compute_duration_ms", 50),
		"p99_ms": drbStats.HistogramPercentile("drb_compute_duration_ms", 99),
		"rate1":  drbRate.Rate1(),
	}
	if latest := drbStats.Get("drb_compute_duration_ms"); latest != nil {
		snap["latest_ms"] = latest.Value
	}
	return snap
}

// Production-scale defaults. Tests that need the computation to finish in
// milliseconds construct a Param with a much smaller DifficultyLevel; the
// hash-chain algorithm itself does not change with the difficulty.
const (
	DefaultDifficultyLevel    = 1 << 34
	DefaultCheckpointInterval = 100_000
	DefaultKeepPreviousResults = 10
)

// InitialDrbSeedInput is the canonical all-zero seed used for epochs 1 and
// 2, before any quorum certificate exists to derive a seed from.
var InitialDrbSeedInput = [32]byte{}

// DrbInput is the starting point (or a checkpoint resumption point) for a
// DRB computation.
type DrbInput struct {
	Epoch     uint64
	Iteration uint64
	Value     [32]byte
}

// DrbResult is the finished 32-byte beacon output for an epoch.
type DrbResult [32]byte

// Param configures the hash-chain difficulty and checkpoint cadence.
type Param struct {
	DifficultyLevel    uint64
	CheckpointInterval uint64
}

// DefaultParam returns production-scale parameters.
func DefaultParam() Param {
	return Param{DifficultyLevel: DefaultDifficultyLevel, CheckpointInterval: DefaultCheckpointInterval}
}

// ProgressStore receives a checkpoint every CheckpointInterval iterations
// during Compute, so a cancelled or crashed compute can resume from the
// most recent one via Resume.
type ProgressStore interface {
	Store(epoch uint64, iteration uint64, value [32]byte) error
}

// Compute iteratively hashes input.Value for
// param.DifficultyLevel-input.Iteration rounds, emitting a checkpoint to
// store every param.CheckpointInterval iterations, and returns the final
// hash. DifficultyLevel < input.Iteration violates a local invariant the
// caller must never trigger (a checkpoint is never stored past the
// difficulty level) and panics rather than silently clamping.
func Compute(param Param, input DrbInput, store ProgressStore) (DrbResult, error) {
	if input.Iteration > param.DifficultyLevel {
		panic("drb: iteration exceeds difficulty level")
	}
	interval := param.CheckpointInterval
	if interval == 0 {
		interval = DefaultCheckpointInterval
	}

	start := time.Now()
	value := input.Value
	remaining := param.DifficultyLevel - input.Iteration
	for i := uint64(0); i < remaining; i++ {
		value = sha256.Sum256(value[:])
		iterationNow := input.Iteration + i + 1
		if store != nil && iterationNow%interval == 0 {
			if err := store.Store(input.Epoch, iterationNow, value); err != nil {
				drbLog.Error("checkpoint store failed", "epoch", input.Epoch, "iteration", iterationNow, "error", err)
				return DrbResult{}, err
			}
			drbLog.Debug("drb checkpoint stored", "epoch", input.Epoch, "iteration", iterationNow)
		}
	}

	duration := time.Since(start)
	durationMS := float64(duration.Milliseconds())
	drbStats.Record("drb_compute_duration_ms", durationMS, map[string]string{"epoch": fmt.Sprint(input.Epoch)})
	drbStats.RecordHistogram("drb_compute_duration_ms", durationMS)
	drbRate.Mark(1)
	drbReporter.RecordTimer("drb_compute_duration_ms", duration)
	drbReporter.RecordMetric("drb_compute_rate1", drbRate.Rate1())
	drbLog.Info("drb compute finished", "epoch", input.Epoch, "iterations", remaining, "duration_ms", durationMS)

	return DrbResult(value), nil
}

// CheckpointLoader looks up the most recent stored checkpoint for an epoch.
type CheckpointLoader func(epoch uint64) (DrbInput, bool)

// SeedFunc derives the fresh starting seed for an epoch with no checkpoint:
// for epochs 1 and 2 this is InitialDrbSeedInput; otherwise the canonical
// serialization of the quorum certificate signature from two epochs prior.
// The core does not fetch that signature itself, so callers supply it here.
type SeedFunc func(epoch uint64) ([32]byte, error)

// Resume is the dual entry point the source's conflicting signatures both
// named: if a checkpoint exists for epoch, computation continues from it;
// otherwise it starts fresh from seed. Either path produces the same final
// result as a single uninterrupted Compute from iteration zero.
func Resume(param Param, epoch uint64, load CheckpointLoader, seed SeedFunc, store ProgressStore) (DrbResult, error) {
	if load != nil {
		if checkpoint, ok := load(epoch); ok {
			return Compute(param, checkpoint, store)
		}
	}
	v, err := seed(epoch)
	if err != nil {
		return DrbResult{}, err
	}
	return Compute(param, DrbInput{Epoch: epoch, Iteration: 0, Value: v}, store)
}

// ResultStore holds published DRB results indexed by epoch, pruned by
// GarbageCollect(epoch, keep) to the epochs at or above epoch-keep.
type ResultStore struct {
	mu      sync.RWMutex
	results map[uint64]DrbResult
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[uint64]DrbResult)}
}

// Put records epoch's result. DRB results are published exactly once per
// epoch; callers should not call Put twice for the same epoch.
func (rs *ResultStore) Put(epoch uint64, result DrbResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.results[epoch] = result
}

// Get returns epoch's result, if still retained.
func (rs *ResultStore) Get(epoch uint64) (DrbResult, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.results[epoch]
	return r, ok
}

// GarbageCollect drops every entry older than epoch-keep.
func (rs *ResultStore) GarbageCollect(epoch uint64, keep uint64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var floor uint64
	if epoch > keep {
		floor = epoch - keep
	}
	for e := range rs.results {
		if e < floor {
			delete(rs.results, e)
		}
	}
}
