// Package memory provides in-memory store implementations, used in
// tests and as lightweight fallbacks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.Ledger = (*Ledger)(nil)

// Ledger is an in-memory implementation of driven.Ledger.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	events  map[string][]domain.Event
	nextID  int64
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[string]domain.Record),
		events:  make(map[string][]domain.Event),
	}
}

// Get retrieves the record for a deck.
func (l *Ledger) Get(_ context.Context, remoteID string) (*domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[remoteID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Upsert atomically stores or replaces a record.
func (l *Ledger) Upsert(_ context.Context, rec *domain.Record) error {
	if rec == nil || rec.RemoteID == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.RemoteID] = *rec
	return nil
}

// List returns all records sorted by remote ID.
func (l *Ledger) List(_ context.Context) ([]domain.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out, nil
}

// ListByStatus returns records holding the given status.
func (l *Ledger) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Record, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	for _, rec := range all {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListFailed returns all failed records.
func (l *Ledger) ListFailed(ctx context.Context) ([]domain.Record, error) {
	return l.ListByStatus(ctx, domain.StatusFailed)
}

// ResetFailed moves every failed record back to pending.
func (l *Ledger) ResetFailed(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for id, rec := range l.records {
		if rec.Status == domain.StatusFailed {
			rec.Status = domain.StatusPending
			rec.RetryCount = 0
			rec.LastError = ""
			rec.ContentHash = ""
			l.records[id] = rec
			count++
		}
	}
	return count, nil
}

// Delete removes a record and its events.
func (l *Ledger) Delete(_ context.Context, remoteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, remoteID)
	delete(l.events, remoteID)
	return nil
}

// AddEvent appends an audit-log entry for a deck.
func (l *Ledger) AddEvent(_ context.Context, remoteID, stage, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.events[remoteID] = append(l.events[remoteID], domain.Event{
		ID:        l.nextID,
		RemoteID:  remoteID,
		Stage:     stage,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// ListEvents returns the audit log for a deck, oldest first.
func (l *Ledger) ListEvents(_ context.Context, remoteID string) ([]domain.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.events[remoteID]
	out := make([]domain.Event, len(events))
	copy(out, events)
	return out, nil
}

// Statistics returns aggregate counts and durations.
func (l *Ledger) Statistics(_ context.Context) (*domain.LedgerStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &domain.LedgerStats{ByStatus: make(map[domain.Status]int)}
	var total time.Duration
	succeeded := 0
	for _, rec := range l.records {
		stats.ByStatus[rec.Status]++
		if rec.Status == domain.StatusSuccess {
			stats.TotalSlides += rec.SlideCount
			total += rec.Duration
			succeeded++
		}
	}
	if succeeded > 0 {
		stats.AvgDuration = total / time.Duration(succeeded)
	}
	return stats, nil
}

// Close is a no-op for the in-memory ledger.
func (l *Ledger) Close() error {
	return nil
}
