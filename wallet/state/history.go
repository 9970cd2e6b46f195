package state

// mergeTx reconciles one transaction entry into a history sequence.
// If an entry with the same TxID exists it is replaced in place,
// keeping its position; only the fields a chain reorg can change
// are overwritten. Otherwise the entry is appended at the end.
// The input slice is never mutated.
func mergeTx(history []TxHistoryEntry, e TxHistoryEntry) []TxHistoryEntry {
	out := make([]TxHistoryEntry, len(history), len(history)+1)
	copy(out, history)
	for i := range out {
		if out[i].TxID == e.TxID {
			out[i].IsVoided = e.IsVoided
			out[i].Balance = e.Balance
			out[i].Version = e.Version
			return out
		}
	}
	return append(out, e)
}

// appendPage appends a fetched history page to the end of the
// existing sequence. The fetch source enforces non-overlap between
// pages, so no de-duplication happens here.
func appendPage(history, page []TxHistoryEntry) []TxHistoryEntry {
	out := make([]TxHistoryEntry, 0, len(history)+len(page))
	out = append(out, history...)
	return append(out, page...)
}
