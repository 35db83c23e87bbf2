// Package payload implements the block payload's namespace structure: the
// transaction and namespace tables, per-namespace proofs over AVID-M/nsavidm
// commitments, and deterministic iteration over a block's transactions.
package payload

import (
	"encoding/binary"

	"github.com/espresso-sequencer/hotshot-core/crypto"
)

// NamespaceId identifies a logical sub-stream within a block payload.
type NamespaceId uint64

// TxTableEntryByteLen is the width of one little-endian offset entry in a
// namespace's transaction table.
const TxTableEntryByteLen = 4

// TxTableHeaderByteLen is the width of the little-endian transaction count
// that prefixes a namespace's transaction table.
const TxTableHeaderByteLen = 4

// Transaction is a payload addressed to a namespace.
type Transaction struct {
	Namespace NamespaceId
	Payload   []byte
}

// NewTransaction constructs a Transaction.
func NewTransaction(namespace NamespaceId, payload []byte) Transaction {
	return Transaction{Namespace: namespace, Payload: payload}
}

// Commitment computes H("Transaction" || namespace || length || payload).
func (t Transaction) Commitment() crypto.Hash32 {
	var nsBuf, lenBuf [8]byte
	binary.BigEndian.PutUint64(nsBuf[:], uint64(t.Namespace))
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(t.Payload)))
	return crypto.Keccak256Hash([]byte("Transaction"), nsBuf[:], lenBuf[:], t.Payload)
}

// MinimumBlockSize is the smallest number of bytes any block containing t
// must add to its payload, used for admission control: the transaction's
// own bytes, its entry in its namespace's transaction table, and that
// table's header (a namespace table entry lives in the block header, not
// the payload, so it doesn't count here).
func (t Transaction) MinimumBlockSize() uint64 {
	return uint64(len(t.Payload)) + TxTableEntryByteLen + TxTableHeaderByteLen
}

// SizeInBlock is the marginal payload bytes t adds to a block under
// construction. If t is the first transaction observed for its namespace
// (newNs), the namespace's transaction table header has not yet been
// counted, so the full MinimumBlockSize applies; otherwise only t's own
// bytes and table entry are new.
func (t Transaction) SizeInBlock(newNs bool) uint64 {
	if newNs {
		return t.MinimumBlockSize()
	}
	return uint64(len(t.Payload)) + TxTableEntryByteLen
}
