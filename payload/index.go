package payload

// Index locates one transaction within a block: its namespace's position
// in the namespace table, and its position within that namespace's
// transaction table.
type Index struct {
	Namespace uint32
	Position  uint32
}

// Iterate yields every transaction's Index in namespace-table order, then
// transaction-table order within each namespace, matching how a block's
// payload bytes are laid out.
func Iterate(nsTable NsTable, blockPayload []byte) ([]Index, error) {
	var indices []Index
	for nsPos, entry := range nsTable {
		nsPayload := blockPayload[entry.ByteRange.Start:entry.ByteRange.End]
		count, err := NumTransactions(nsPayload)
		if err != nil {
			return nil, err
		}
		for txPos := 0; txPos < count; txPos++ {
			indices = append(indices, Index{Namespace: uint32(nsPos), Position: uint32(txPos)})
		}
	}
	return indices, nil
}

// Transactions returns every transaction in a block's payload, in Iterate
// order, resolving each Index to its full Transaction.
func Transactions(nsTable NsTable, blockPayload []byte) ([]Transaction, error) {
	var all []Transaction
	for _, entry := range nsTable {
		nsPayload := blockPayload[entry.ByteRange.Start:entry.ByteRange.End]
		txs, err := ReadNsPayload(entry.Namespace, nsPayload)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	return all, nil
}
