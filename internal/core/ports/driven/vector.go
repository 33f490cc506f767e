package driven

import (
	"context"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// VectorIndex stores and searches slide-level index points.
// Backed by Qdrant.
type VectorIndex interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Replace atomically swaps a deck's points: deletes everything
	// matching remoteID, then inserts the new set. Delete-then-insert
	// ordering trades a brief stale window for always-non-empty reads.
	Replace(ctx context.Context, remoteID string, points []domain.Point) error

	// DeleteDeck removes all points for a deck.
	DeleteDeck(ctx context.Context, remoteID string) error

	// Search finds the top-k nearest points for the named vector kind.
	Search(ctx context.Context, kind domain.VectorKind, query []float32, topK int) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}

// AlertSink receives batch-level alert signals, typically when a run's
// failure rate exceeds the configured threshold.
type AlertSink interface {
	// Send delivers an alert. Delivery is best effort; failures are
	// logged, never propagated into the pipeline.
	Send(ctx context.Context, alert domain.Alert) error
}
