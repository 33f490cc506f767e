package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driving"
)

func TestDetector_NewDecks(t *testing.T) {
	ledger := memory.NewLedger()
	detector := NewDetector(ledger)

	remote := []domain.Deck{
		{RemoteID: "a.pptx", Name: "a.pptx"},
		{RemoteID: "b.pptx", Name: "b.pptx"},
	}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
	require.NoError(t, err)

	assert.Len(t, cs.New, 2)
	assert.Empty(t, cs.Modified)
	assert.Empty(t, cs.Unchanged)
	assert.Empty(t, cs.Deleted)
}

func TestDetector_ModifiedByTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{
		RemoteID:   "a.pptx",
		Status:     domain.StatusSuccess,
		ModifiedAt: base,
	})
	detector := NewDetector(ledger)

	remote := []domain.Deck{{RemoteID: "a.pptx", ModifiedAt: base.Add(time.Hour)}}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
	require.NoError(t, err)

	assert.Len(t, cs.Modified, 1)
	assert.Empty(t, cs.New)
	assert.Empty(t, cs.Unchanged)
}

func TestDetector_UnchangedTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{
		RemoteID:   "a.pptx",
		Status:     domain.StatusSuccess,
		ModifiedAt: base,
	})
	detector := NewDetector(ledger)

	// Equal and older timestamps both stay unchanged.
	for _, ts := range []time.Time{base, base.Add(-time.Hour)} {
		remote := []domain.Deck{{RemoteID: "a.pptx", ModifiedAt: ts}}

		cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
		require.NoError(t, err)

		assert.Len(t, cs.Unchanged, 1)
		assert.Empty(t, cs.Modified)
	}
}

func TestDetector_InterruptedDeckResumes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{
		RemoteID:   "a.pptx",
		Status:     domain.StatusRendering,
		ModifiedAt: base,
	})
	detector := NewDetector(ledger)

	// Same timestamp, but the deck never reached a terminal status.
	remote := []domain.Deck{{RemoteID: "a.pptx", ModifiedAt: base}}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
	require.NoError(t, err)

	assert.Len(t, cs.Modified, 1)
}

func TestDetector_FailedDeckWaitsForReset(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{
		RemoteID:   "a.pptx",
		Status:     domain.StatusFailed,
		ModifiedAt: base,
	})
	detector := NewDetector(ledger)

	remote := []domain.Deck{{RemoteID: "a.pptx", ModifiedAt: base}}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
	require.NoError(t, err)

	// Failed is terminal: without a remote change or an explicit
	// reset the deck is not retried.
	assert.Len(t, cs.Unchanged, 1)
	assert.Empty(t, cs.Modified)
}

func TestDetector_FullModeBypassesTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{
		RemoteID:   "a.pptx",
		Status:     domain.StatusSuccess,
		ModifiedAt: base,
	})
	detector := NewDetector(ledger)

	remote := []domain.Deck{{RemoteID: "a.pptx", ModifiedAt: base}}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeFull)
	require.NoError(t, err)

	assert.Len(t, cs.Modified, 1)
	assert.Empty(t, cs.Unchanged)
}

func TestDetector_DeletedDecks(t *testing.T) {
	ledger := memory.NewLedger()
	seed(t, ledger, &domain.Record{RemoteID: "gone.pptx", Status: domain.StatusSuccess})
	seed(t, ledger, &domain.Record{RemoteID: "kept.pptx", Status: domain.StatusSuccess})
	detector := NewDetector(ledger)

	remote := []domain.Deck{{RemoteID: "kept.pptx"}}

	cs, err := detector.Detect(context.Background(), remote, driving.ModeIncremental)
	require.NoError(t, err)

	require.Len(t, cs.Deleted, 1)
	assert.Equal(t, "gone.pptx", cs.Deleted[0].RemoteID)
}

func seed(t *testing.T, ledger *memory.Ledger, rec *domain.Record) {
	t.Helper()
	require.NoError(t, ledger.Upsert(context.Background(), rec))
}
