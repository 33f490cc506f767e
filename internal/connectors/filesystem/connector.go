// Package filesystem provides a local-directory deck source.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.RemoteSource = (*Connector)(nil)

// Connector lists PPTX files under a root directory. The remote ID of
// a deck is its path relative to the root, so moving the root does not
// re-ingest everything.
type Connector struct {
	rootPath string
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Name returns the connector type identifier.
func (c *Connector) Name() string {
	return "filesystem"
}

// Validate checks the root path exists and is a readable directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("source path %q: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %q is not a directory", c.rootPath)
	}
	return nil
}

// List walks the root and returns every deck's metadata. Office lock
// files (~$ prefix) and hidden files are skipped.
func (c *Connector) List(ctx context.Context) ([]domain.Deck, error) {
	var decks []domain.Deck

	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != c.rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".pptx") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.rootPath, path)
		if err != nil {
			return err
		}

		decks = append(decks, domain.Deck{
			RemoteID:   filepath.ToSlash(rel),
			Name:       name,
			ModifiedAt: info.ModTime().UTC(),
			Size:       info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing decks: %w", err)
	}
	return decks, nil
}

// Fetch streams the bytes of one deck.
func (c *Connector) Fetch(_ context.Context, remoteID string) (io.ReadCloser, error) {
	path := filepath.Join(c.rootPath, filepath.FromSlash(remoteID))

	// Remote IDs are relative paths; refuse anything escaping the root.
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: deck id %q", domain.ErrInvalidInput, remoteID)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("deck %q: %w", remoteID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("opening deck %q: %w", remoteID, err)
	}
	return f, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}
