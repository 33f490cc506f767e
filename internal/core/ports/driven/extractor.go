package driven

import (
	"context"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// Extractor parses a staged deck into ordered content units.
type Extractor interface {
	// Extract returns the slides of the deck at path, in source order.
	// A malformed deck is reported as a domain.ContentError.
	Extract(ctx context.Context, remoteID, path string) ([]domain.Slide, error)
}

// Renderer produces visual representations of a staged deck.
//
// The rendering resource is NOT reentrant: callers must hold the
// pipeline's exclusive render slot for the whole call. The adapter is
// responsible for leaving no orphaned converter state behind; after a
// transient fault callers invoke Reset before retrying.
type Renderer interface {
	// Render converts the deck at path into one image per slide under
	// outDir, deterministically named, in slide order.
	Render(ctx context.Context, remoteID, path, outDir string) ([]domain.SlideImage, error)

	// Reset releases and reinitialises the underlying converter so a
	// retry starts from a clean state.
	Reset(ctx context.Context) error

	// Close releases the converter.
	Close() error
}
