package domain

// Changeset partitions a remote listing against the ledger.
type Changeset struct {
	// New are decks with no ledger record.
	New []Deck

	// Modified are decks whose remote timestamp is newer than the
	// record's last observed time (or everything, in full mode).
	// Final confirmation happens via content hash after download.
	Modified []Deck

	// Unchanged are decks skipped entirely: no download, no ledger write.
	Unchanged []Deck

	// Deleted are ledger records absent from the remote listing,
	// flagged for index removal.
	Deleted []Record
}

// Worklist returns the decks that enter the pipeline this run.
func (c Changeset) Worklist() []Deck {
	out := make([]Deck, 0, len(c.New)+len(c.Modified))
	out = append(out, c.New...)
	out = append(out, c.Modified...)
	return out
}
