package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

func TestFailedCmd_Use(t *testing.T) {
	assert.Equal(t, "failed", failedCmd.Use)
	assert.Equal(t, "retry", retryCmd.Use)
}

func TestFailedCmd_EmptyLedger(t *testing.T) {
	out := executeCommand(t, "failed")

	assert.Contains(t, out, "No failed decks.")
}

func TestRetryCmd_EmptyLedger(t *testing.T) {
	out := executeCommand(t, "retry")

	assert.Contains(t, out, "No failed decks to retry.")
}

func TestFailedCmd_ListsFailures(t *testing.T) {
	dir := seedLedger(t, &domain.Record{
		RemoteID:   "decks/q3.pptx",
		Name:       "q3.pptx",
		Status:     domain.StatusFailed,
		RetryCount: 2,
		LastError:  "render timed out",
	})

	out := executeCommandIn(t, dir, "failed")

	assert.Contains(t, out, "decks/q3.pptx")
	assert.Contains(t, out, "render timed out")
}

func TestRetryCmd_ResetsFailures(t *testing.T) {
	dir := seedLedger(t, &domain.Record{
		RemoteID: "decks/q3.pptx",
		Name:     "q3.pptx",
		Status:   domain.StatusFailed,
	})

	out := executeCommandIn(t, dir, "retry")

	assert.Contains(t, out, "Queued 1 decks for reprocessing.")

	ledger, err := sqlite.NewLedger(dir)
	require.NoError(t, err)
	defer ledger.Close()
	rec, err := ledger.Get(context.Background(), "decks/q3.pptx")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rec.Status)
}

// seedLedger writes records into a fresh data dir and returns it.
func seedLedger(t *testing.T, records ...*domain.Record) string {
	t.Helper()

	dir := t.TempDir()
	ledger, err := sqlite.NewLedger(dir)
	require.NoError(t, err)
	defer ledger.Close()

	for _, rec := range records {
		require.NoError(t, ledger.Upsert(context.Background(), rec))
	}
	return dir
}

// executeCommandIn runs the root command against an existing data dir.
func executeCommandIn(t *testing.T, dataDir string, args ...string) string {
	t.Helper()

	// Flag values survive across Execute calls.
	statusEvents = ""
	ingestFull = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(append(args,
		"--config", t.TempDir(),
		"--data-dir", dataDir,
	))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.NoError(t, err)
	return buf.String()
}
