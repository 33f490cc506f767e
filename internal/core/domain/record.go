package domain

import "time"

// Status is the ledger state of a deck within the processing pipeline.
type Status string

// Pipeline statuses, in stage order. Failed is reachable from every
// non-terminal status; terminal statuses only move again on an explicit
// reset or a detected content change.
const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusExtracting  Status = "extracting"
	StatusRendering   Status = "rendering"
	StatusEmbedding   Status = "embedding"
	StatusIndexing    Status = "indexing"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
)

// stageOrder maps each in-pipeline status to its position.
var stageOrder = map[Status]int{
	StatusPending:     0,
	StatusDownloading: 1,
	StatusExtracting:  2,
	StatusRendering:   3,
	StatusEmbedding:   4,
	StatusIndexing:    5,
	StatusSuccess:     6,
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition reports whether a ledger record may move from s to next.
// Transitions are monotonic along the stage sequence, except failed →
// pending (explicit reset) and success → pending (content change).
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == StatusFailed {
		return !s.Terminal()
	}
	if s.Terminal() {
		return next == StatusPending
	}
	return stageOrder[next] > stageOrder[s]
}

// Record is the ledger's processing state for one deck, keyed by
// RemoteID. It is created by the change detector on first sighting and
// mutated exclusively through the ledger at stage transitions.
type Record struct {
	// RemoteID is the deck identifier; primary key in the ledger.
	RemoteID string

	// Name is the deck's display name, kept for reporting.
	Name string

	// ContentHash is the hash of the last successfully processed bytes.
	ContentHash string

	// ModifiedAt is the remote timestamp observed when the record was
	// last refreshed; input to the incremental pre-filter.
	ModifiedAt time.Time

	// Size is the remote byte size at last sighting.
	Size int64

	// Status is the current pipeline state.
	Status Status

	// RetryCount is the number of transient-failure retries consumed
	// during the current run.
	RetryCount int

	// LastError holds the captured failure message, if any.
	LastError string

	// StartedAt is when the current (or last) run began for this deck.
	StartedAt time.Time

	// FinishedAt is when the deck last reached a terminal status.
	FinishedAt time.Time

	// SlideCount is the number of content units extracted.
	SlideCount int

	// Duration is how long the last completed run took.
	Duration time.Duration
}

// Event is one audit-log entry for a deck, recorded at stage
// boundaries and on failures.
type Event struct {
	ID        int64
	RemoteID  string
	Stage     string
	Message   string
	CreatedAt time.Time
}

// LedgerStats aggregates ledger-wide counts for reporting.
type LedgerStats struct {
	// ByStatus maps each status to the number of records holding it.
	ByStatus map[Status]int

	// TotalSlides is the sum of SlideCount over successful records.
	TotalSlides int

	// AvgDuration is the mean processing duration of successful records.
	AvgDuration time.Duration
}

// Total returns the total number of ledger records.
func (s LedgerStats) Total() int {
	n := 0
	for _, c := range s.ByStatus {
		n += c
	}
	return n
}
