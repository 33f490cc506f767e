package driven

import (
	"context"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// Ledger is the durable per-deck processing-state store. It is the
// single source of truth for what needs (re)processing and the
// resumption point after a crash.
//
// Every write is one atomic transaction; concurrent stage workers
// never observe a half-updated record. The ledger is injected into the
// pipeline as a dependency and never accessed as global state.
type Ledger interface {
	// Get retrieves the record for a deck.
	// Returns domain.ErrNotFound if the deck has never been seen.
	Get(ctx context.Context, remoteID string) (*domain.Record, error)

	// Upsert atomically stores or replaces a record.
	Upsert(ctx context.Context, rec *domain.Record) error

	// List returns all records.
	List(ctx context.Context) ([]domain.Record, error)

	// ListByStatus returns records holding the given status.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Record, error)

	// ListFailed returns all failed records.
	ListFailed(ctx context.Context) ([]domain.Record, error)

	// ResetFailed moves every failed record back to pending and
	// returns the number of records reset.
	ResetFailed(ctx context.Context) (int, error)

	// Delete removes a record, used when a deck disappears from
	// the remote source.
	Delete(ctx context.Context, remoteID string) error

	// AddEvent appends an audit-log entry for a deck.
	AddEvent(ctx context.Context, remoteID, stage, message string) error

	// ListEvents returns the audit log for a deck, oldest first.
	ListEvents(ctx context.Context, remoteID string) ([]domain.Event, error)

	// Statistics returns aggregate counts and durations.
	Statistics(ctx context.Context) (*domain.LedgerStats, error)

	// Close releases resources.
	Close() error
}
