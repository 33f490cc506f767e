package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driving"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// Detector classifies a remote listing against the ledger.
type Detector struct {
	ledger driven.Ledger
}

// NewDetector creates a change detector backed by the given ledger.
func NewDetector(ledger driven.Ledger) *Detector {
	return &Detector{ledger: ledger}
}

// Detect partitions the remote listing into new, modified, unchanged
// and deleted decks. The timestamp comparison is only a cheap
// pre-filter; actual change is confirmed by content hash after
// download. In full mode the pre-filter is bypassed and every deck
// becomes a candidate.
func (d *Detector) Detect(
	ctx context.Context,
	remote []domain.Deck,
	mode driving.RunMode,
) (*domain.Changeset, error) {
	records, err := d.ledger.List(ctx)
	if err != nil {
		return nil, domain.Systemic(fmt.Errorf("list ledger: %w", err))
	}

	byID := make(map[string]domain.Record, len(records))
	for _, rec := range records {
		byID[rec.RemoteID] = rec
	}

	cs := &domain.Changeset{}
	seen := make(map[string]bool, len(remote))

	for _, deck := range remote {
		seen[deck.RemoteID] = true

		rec, known := byID[deck.RemoteID]
		if !known {
			cs.New = append(cs.New, deck)
			continue
		}

		if d.needsRecheck(&rec, &deck, mode) {
			cs.Modified = append(cs.Modified, deck)
		} else {
			cs.Unchanged = append(cs.Unchanged, deck)
		}
	}

	for _, rec := range records {
		if !seen[rec.RemoteID] {
			cs.Deleted = append(cs.Deleted, rec)
		}
	}

	logger.Info("Change detection: %d new, %d modified, %d unchanged, %d deleted",
		len(cs.New), len(cs.Modified), len(cs.Unchanged), len(cs.Deleted))

	return cs, nil
}

// needsRecheck decides whether a known deck re-enters the pipeline.
func (d *Detector) needsRecheck(rec *domain.Record, deck *domain.Deck, mode driving.RunMode) bool {
	if mode == driving.ModeFull {
		return true
	}

	// A deck interrupted mid-pipeline resumes where it left off.
	// Terminal statuses only re-enter on a detected change; failed
	// decks otherwise wait for an explicit reset.
	if !rec.Status.Terminal() {
		return true
	}

	// Strictly-newer remote timestamp flags a candidate. The hash
	// check after download catches timestamp false positives.
	return deck.ModifiedAt.After(rec.ModifiedAt)
}
