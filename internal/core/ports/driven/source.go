package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// RemoteSource lists and fetches presentation decks.
// Implementations include the SharePoint (Graph API) connector and the
// local filesystem connector.
type RemoteSource interface {
	// Name returns the connector type identifier.
	Name() string

	// Validate checks the source is reachable and properly configured.
	// For API connectors this makes a test call; for filesystem it
	// checks the root path exists and is readable.
	Validate(ctx context.Context) error

	// List returns the full remote listing with metadata only;
	// no bytes are fetched.
	List(ctx context.Context) ([]domain.Deck, error)

	// Fetch streams the bytes of one deck.
	Fetch(ctx context.Context, remoteID string) (io.ReadCloser, error)

	// Close releases resources.
	Close() error
}
