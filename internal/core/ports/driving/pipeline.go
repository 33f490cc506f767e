package driving

import (
	"context"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// RunMode selects how the change detector treats the remote listing.
type RunMode string

const (
	// ModeIncremental trusts the timestamp pre-filter and only
	// rechecks decks flagged as changed.
	ModeIncremental RunMode = "incremental"

	// ModeFull treats every remote deck as a candidate, still
	// short-circuiting on a matching content hash after download.
	ModeFull RunMode = "full"
)

// PipelineRunner drives an ingest run end to end.
type PipelineRunner interface {
	// Run executes one batch: detect changes, drive every worklist
	// deck through the stages, remove deleted decks from the index,
	// and return the batch metrics. Per-deck failures are recorded in
	// the ledger and do not abort the batch; systemic failures do.
	Run(ctx context.Context, mode RunMode) (*domain.BatchMetrics, error)

	// Status returns live progress for the active run, or an idle
	// status when no run is active.
	Status(ctx context.Context) (*RunStatus, error)
}

// RunStatus is a point-in-time snapshot of an ingest run.
type RunStatus struct {
	// Running indicates whether a run is in progress.
	Running bool

	// Mode is the active run's mode.
	Mode RunMode

	// Total is the worklist size.
	Total int

	// Completed counts decks that reached a terminal status this run.
	Completed int

	// Failed counts decks that failed this run.
	Failed int
}

// Searcher answers slide-level similarity queries.
type Searcher interface {
	// Search embeds the query text and returns the top-k hits.
	Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error)
}
