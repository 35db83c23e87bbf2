// Package glue wires the stake, drb, leader, and blockmerkle packages
// into one consensus-facing
// component: a per-epoch state holder, a named inflight limiter guarding
// request handling, and the ClientMessage/ServerMessage boundary types.
package glue

import (
	"sync"

	"github.com/espresso-sequencer/hotshot-core/blockmerkle"
	"github.com/espresso-sequencer/hotshot-core/drb"
	"github.com/espresso-sequencer/hotshot-core/leader"
	"github.com/espresso-sequencer/hotshot-core/log"
	"github.com/espresso-sequencer/hotshot-core/metrics"
	"github.com/espresso-sequencer/hotshot-core/stake"
)

var glueLog = log.Default().Module("glue")

// blockProofErrors has no pre-defined counterpart in metrics/standard.go;
// every other metric below reuses one of its existing consensus.* gauges
// and counters rather than minting a parallel glue-scoped name.
var blockProofErrors = metrics.DefaultRegistry.Counter("glue.block_proof_errors")

// EpochState is one epoch's published, immutable view of consensus
// inputs: the committee snapshot, the epoch's DRB result, the leader
// schedule derived from them, the most recent block Merkle root, and the
// currently open view number. Publication is copy-on-publish: readers
// hold a pointer to a frozen EpochState and never observe a partial
// update, per the "per-epoch stake snapshots published atomically" and
// "Block Merkle tree: single writer on decide, many readers" shared
// resource rules.
type EpochState struct {
	Epoch          uint64
	StakeTable     stake.StakeTable
	Drb            drb.DrbResult
	Schedule       *leader.Schedule
	BlockRoot      [32]byte
	OpenView       uint64
}

// Node holds the currently published EpochState behind a mutex, swapped
// only by Publish. It is the single-writer-many-readers coordinator the
// rest of the glue package's handlers read through; grounded on the
// teacher's DistCoordinator, which likewise serializes all mutation of
// round state behind one RWMutex and hands readers copies.
type Node struct {
	mu      sync.RWMutex
	current *EpochState
	tree    *blockmerkle.Tree
}

// NewNode returns a Node with no epoch published yet and a fresh, empty
// block Merkle tree.
func NewNode() *Node {
	return &Node{tree: blockmerkle.New()}
}

// Publish atomically swaps in a new EpochState. Callers build the next
// EpochState from a StakeTable snapshot, a DRB result, and a leader
// schedule computed over both — all already-immutable, published values —
// so Publish itself never blocks on computation.
func (n *Node) Publish(state *EpochState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = state
	metrics.CurrentEpoch.Set(int64(state.Epoch))
	metrics.CurrentView.Set(int64(state.OpenView))
	glueLog.Info("epoch published", "epoch", state.Epoch, "open_view", state.OpenView)
}

// Current returns the most recently published EpochState, or nil if none
// has been published yet.
func (n *Node) Current() *EpochState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// AdvanceView records that view v is now open for the current epoch.
// View numbers only move forward within an epoch; Publish is what moves
// the epoch itself.
func (n *Node) AdvanceView(v uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil && v > n.current.OpenView {
		next := *n.current
		next.OpenView = v
		n.current = &next
		metrics.CurrentView.Set(int64(v))
	}
}

// DecideBlock appends a block's commitment to the block Merkle tree and
// updates the published EpochState's BlockRoot to the new root. This is
// the tree's single writer; Proof generation below may run concurrently
// from any number of readers against the frozen root they observed.
func (n *Node) DecideBlock(commitment blockmerkle.Commitment) (uint64, [32]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	index, root, err := n.tree.Append(commitment)
	if err != nil {
		glueLog.Error("block decide failed", "error", err)
		return 0, [32]byte{}, err
	}
	if n.current != nil {
		next := *n.current
		next.BlockRoot = root
		n.current = &next
	}
	metrics.BlocksDecided.Inc()
	glueLog.Debug("block decided", "index", index, "root", root)
	return index, root, nil
}

// BlockProof returns an inclusion proof for the commitment at index
// against the tree's current state. Safe to call concurrently with
// DecideBlock readers, though the proof it returns is only valid against
// whatever root was current at the time the caller later checks it.
func (n *Node) BlockProof(index uint64) (*blockmerkle.Proof, [32]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	proof, err := n.tree.Proof(index)
	if err != nil {
		blockProofErrors.Inc()
		return nil, [32]byte{}, err
	}
	return proof, n.tree.Root(), nil
}

// SelectLeader resolves the leader for view v under the currently
// published schedule. Leader selection is a pure function of already-
// published inputs (schedule, DRB, view), per the ordering-guarantees
// rule in the concurrency model, so this never takes the write lock.
func (n *Node) SelectLeader(v uint64) (leader.Entry, bool) {
	n.mu.RLock()
	state := n.current
	n.mu.RUnlock()
	if state == nil || state.Schedule == nil {
		return leader.Entry{}, false
	}
	return state.Schedule.SelectLeader(state.Drb, v), true
}
