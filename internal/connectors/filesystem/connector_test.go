package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConnector_Name(t *testing.T) {
	assert.Equal(t, "filesystem", New("/tmp").Name())
}

func TestConnector_Validate(t *testing.T) {
	t.Run("accepts readable directory", func(t *testing.T) {
		connector := New(t.TempDir())
		assert.NoError(t, connector.Validate(context.Background()))
	})

	t.Run("rejects missing path", func(t *testing.T) {
		connector := New("/non/existent/path")
		assert.Error(t, connector.Validate(context.Background()))
	})

	t.Run("rejects regular file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "deck.pptx", "x")
		connector := New(filepath.Join(dir, "deck.pptx"))
		err := connector.Validate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestConnector_List(t *testing.T) {
	t.Run("lists pptx files with metadata", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "roadmap.pptx", "deck one")
		writeFile(t, dir, "sub/budget.pptx", "deck two")
		writeFile(t, dir, "notes.txt", "not a deck")

		decks, err := New(dir).List(context.Background())
		require.NoError(t, err)
		require.Len(t, decks, 2)

		byID := make(map[string]domain.Deck)
		for _, d := range decks {
			byID[d.RemoteID] = d
		}
		require.Contains(t, byID, "roadmap.pptx")
		require.Contains(t, byID, "sub/budget.pptx")

		deck := byID["roadmap.pptx"]
		assert.Equal(t, "roadmap.pptx", deck.Name)
		assert.Equal(t, int64(len("deck one")), deck.Size)
		assert.False(t, deck.ModifiedAt.IsZero())
		assert.Empty(t, deck.ContentHash, "hash is computed after download")
	})

	t.Run("skips office lock files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "open.pptx", "deck")
		writeFile(t, dir, "~$open.pptx", "lock file")

		decks, err := New(dir).List(context.Background())
		require.NoError(t, err)
		require.Len(t, decks, 1)
		assert.Equal(t, "open.pptx", decks[0].RemoteID)
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "visible.pptx", "deck")
		writeFile(t, dir, ".hidden.pptx", "hidden")
		writeFile(t, dir, ".trash/old.pptx", "hidden dir")

		decks, err := New(dir).List(context.Background())
		require.NoError(t, err)
		require.Len(t, decks, 1)
		assert.Equal(t, "visible.pptx", decks[0].RemoteID)
	})

	t.Run("matches extension case-insensitively", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "SHOUTY.PPTX", "deck")

		decks, err := New(dir).List(context.Background())
		require.NoError(t, err)
		assert.Len(t, decks, 1)
	})

	t.Run("empty directory lists nothing", func(t *testing.T) {
		decks, err := New(t.TempDir()).List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, decks)
	})

	t.Run("propagates cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "deck.pptx", "deck")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(dir).List(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConnector_Fetch(t *testing.T) {
	t.Run("streams deck bytes", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "sub/deck.pptx", "deck bytes")

		rc, err := New(dir).Fetch(context.Background(), "sub/deck.pptx")
		require.NoError(t, err)
		defer rc.Close()

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "deck bytes", string(content))
	})

	t.Run("missing deck is not found", func(t *testing.T) {
		_, err := New(t.TempDir()).Fetch(context.Background(), "gone.pptx")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		_, err := New(t.TempDir()).Fetch(context.Background(), "../../etc/passwd")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
