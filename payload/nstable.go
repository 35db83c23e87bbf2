package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNsTableNotCovering = errors.New("payload: namespace table does not cover the payload exactly once")
	ErrNsTableOutOfOrder  = errors.New("payload: namespace table ranges are not strictly increasing")
	ErrTruncatedTxTable   = errors.New("payload: truncated transaction table")
	ErrTruncatedTxBody    = errors.New("payload: truncated transaction body")
)

// Range is a half-open byte range [Start, End) into the block payload.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

// NsTableEntry associates a namespace with its byte range in the block
// payload.
type NsTableEntry struct {
	Namespace NamespaceId
	ByteRange Range
}

// NsTable is the ordered namespace table for a block: each entry's range
// is contiguous, strictly increasing, and the entries together cover the
// whole payload exactly once.
type NsTable []NsTableEntry

// Validate checks NsTable's coverage invariant against a payload of the
// given length.
func (t NsTable) Validate(payloadLen int) error {
	cursor := 0
	for i, e := range t {
		if e.ByteRange.Start != cursor || e.ByteRange.End < e.ByteRange.Start {
			return fmt.Errorf("%w: entry %d", ErrNsTableOutOfOrder, i)
		}
		cursor = e.ByteRange.End
	}
	if cursor != payloadLen {
		return ErrNsTableNotCovering
	}
	return nil
}

// BuildNsPayload serializes transactions (which must all share one
// namespace) into a namespace payload: a little-endian transaction table
// (count header followed by one cumulative end-offset per transaction)
// followed by the concatenated transaction bodies.
func BuildNsPayload(transactions []Transaction) []byte {
	header := make([]byte, TxTableHeaderByteLen+TxTableEntryByteLen*len(transactions))
	binary.LittleEndian.PutUint32(header[:TxTableHeaderByteLen], uint32(len(transactions)))

	var bodies []byte
	offset := uint32(0)
	for i, tx := range transactions {
		offset += uint32(len(tx.Payload))
		entryOff := TxTableHeaderByteLen + TxTableEntryByteLen*i
		binary.LittleEndian.PutUint32(header[entryOff:entryOff+TxTableEntryByteLen], offset)
		bodies = append(bodies, tx.Payload...)
	}
	return append(header, bodies...)
}

// ReadNsPayload parses a namespace payload built by BuildNsPayload back
// into its transactions, all tagged with namespace.
func ReadNsPayload(namespace NamespaceId, nsPayload []byte) ([]Transaction, error) {
	if len(nsPayload) < TxTableHeaderByteLen {
		return nil, ErrTruncatedTxTable
	}
	count := int(binary.LittleEndian.Uint32(nsPayload[:TxTableHeaderByteLen]))
	tableEnd := TxTableHeaderByteLen + TxTableEntryByteLen*count
	if len(nsPayload) < tableEnd {
		return nil, ErrTruncatedTxTable
	}

	txs := make([]Transaction, count)
	bodiesStart := tableEnd
	prevOffset := uint32(0)
	for i := 0; i < count; i++ {
		entryOff := TxTableHeaderByteLen + TxTableEntryByteLen*i
		endOffset := binary.LittleEndian.Uint32(nsPayload[entryOff : entryOff+TxTableEntryByteLen])
		if endOffset < prevOffset {
			return nil, ErrTruncatedTxTable
		}
		start := bodiesStart + int(prevOffset)
		end := bodiesStart + int(endOffset)
		if end > len(nsPayload) {
			return nil, ErrTruncatedTxBody
		}
		txs[i] = Transaction{Namespace: namespace, Payload: nsPayload[start:end]}
		prevOffset = endOffset
	}
	return txs, nil
}

// NumTransactions reports the transaction count recorded in a namespace
// payload's table header, without parsing bodies.
func NumTransactions(nsPayload []byte) (int, error) {
	if len(nsPayload) < TxTableHeaderByteLen {
		return 0, ErrTruncatedTxTable
	}
	return int(binary.LittleEndian.Uint32(nsPayload[:TxTableHeaderByteLen])), nil
}
