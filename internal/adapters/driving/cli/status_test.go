package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status", statusCmd.Use)
}

func TestStatusCmd_EmptyLedger(t *testing.T) {
	out := executeCommand(t, "status")

	assert.Contains(t, out, "Decks: 0")
	assert.Contains(t, out, "Indexed slides: 0")
}

func TestStatusCmd_Aggregates(t *testing.T) {
	dir := seedLedger(t,
		&domain.Record{
			RemoteID:   "a.pptx",
			Status:     domain.StatusSuccess,
			SlideCount: 12,
			Duration:   20 * time.Second,
		},
		&domain.Record{RemoteID: "b.pptx", Status: domain.StatusFailed},
		&domain.Record{RemoteID: "c.pptx", Status: domain.StatusPending},
	)

	out := executeCommandIn(t, dir, "status")

	assert.Contains(t, out, "Decks: 3")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Indexed slides: 12")
	assert.Contains(t, out, "Average processing time: 20s")
}

func TestStatusCmd_Events(t *testing.T) {
	dir := t.TempDir()
	ledger, err := sqlite.NewLedger(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, ledger.Upsert(ctx, &domain.Record{
		RemoteID: "a.pptx",
		Status:   domain.StatusPending,
	}))
	require.NoError(t, ledger.AddEvent(ctx, "a.pptx", "downloading", "download complete"))
	require.NoError(t, ledger.AddEvent(ctx, "a.pptx", "extracting", "extracted 12 slides"))
	require.NoError(t, ledger.Close())

	out := executeCommandIn(t, dir, "status", "--events", "a.pptx")

	assert.Contains(t, out, "download complete")
	assert.Contains(t, out, "extracted 12 slides")
}

func TestStatusCmd_EventsUnknownDeck(t *testing.T) {
	out := executeCommand(t, "status", "--events", "nope.pptx")

	assert.Contains(t, out, "No events recorded for nope.pptx.")
}
