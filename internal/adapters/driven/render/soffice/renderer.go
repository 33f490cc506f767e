// Package soffice renders decks to slide images with LibreOffice.
//
// LibreOffice's conversion pipeline is a single shared resource: two
// concurrent invocations against the same user profile corrupt each
// other. The pipeline holds an exclusive slot around Render; this
// adapter additionally guards itself with a mutex so a misuse cannot
// interleave conversions.
package soffice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driven.Renderer = (*Renderer)(nil)

// Default configuration values.
const (
	DefaultBinary     = "soffice"
	DefaultPdftoppm   = "pdftoppm"
	DefaultTimeout    = 5 * time.Minute
	DefaultResolution = 110 // DPI, keeps PNGs under ~1MB for typical slides
)

// Config holds configuration for the LibreOffice renderer.
type Config struct {
	// Binary is the LibreOffice executable (default: soffice).
	Binary string

	// Pdftoppm is the poppler PDF rasteriser (default: pdftoppm).
	Pdftoppm string

	// ProfileDir is the LibreOffice user profile directory. A dedicated
	// profile isolates conversions from any desktop installation and
	// gives Reset something safe to wipe. Defaults to a temp directory.
	ProfileDir string

	// Timeout bounds a single conversion (default: 5m).
	Timeout time.Duration

	// Resolution is the rasterisation DPI (default: 110).
	Resolution int
}

// Renderer converts decks to per-slide PNGs via PDF.
type Renderer struct {
	mu         sync.Mutex
	binary     string
	pdftoppm   string
	profileDir string
	timeout    time.Duration
	resolution int
}

// NewRenderer creates a LibreOffice renderer.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = DefaultPdftoppm
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = DefaultResolution
	}
	if cfg.ProfileDir == "" {
		dir, err := os.MkdirTemp("", "deckhand-soffice-*")
		if err != nil {
			return nil, fmt.Errorf("creating profile directory: %w", err)
		}
		cfg.ProfileDir = dir
	}
	return &Renderer{
		binary:     cfg.Binary,
		pdftoppm:   cfg.Pdftoppm,
		profileDir: cfg.ProfileDir,
		timeout:    cfg.Timeout,
		resolution: cfg.Resolution,
	}, nil
}

// Render converts the deck at path into one PNG per slide under
// outDir, named by domain.SlideImageName, in slide order.
func (r *Renderer) Render(ctx context.Context, remoteID, path, outDir string) ([]domain.SlideImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating render directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pdf, err := r.convertToPDF(ctx, path, outDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(pdf)

	pages, err := r.rasterise(ctx, pdf, outDir)
	if err != nil {
		return nil, err
	}

	images := make([]domain.SlideImage, 0, len(pages))
	for i, page := range pages {
		name := domain.SlideImageName(i + 1)
		final := filepath.Join(outDir, name)
		if err := os.Rename(page, final); err != nil {
			return nil, fmt.Errorf("naming slide image %d: %w", i+1, err)
		}
		images = append(images, domain.SlideImage{
			RemoteID: remoteID,
			Index:    i + 1,
			Path:     final,
		})
	}

	logger.Debug("rendered %d slides for %s", len(images), remoteID)
	return images, nil
}

// convertToPDF runs LibreOffice headless and returns the PDF path.
func (r *Renderer) convertToPDF(ctx context.Context, path, outDir string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary,
		"--headless", "--norestore",
		"-env:UserInstallation=file://"+r.profileDir,
		"--convert-to", "pdf",
		"--outdir", outDir,
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("pdf conversion: %w", ctx.Err())
		}
		return "", fmt.Errorf("pdf conversion: %w: %s", err, strings.TrimSpace(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pdf := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdf); err != nil {
		// LibreOffice exits zero on decks it silently refuses to open.
		return "", domain.Contentf("deck could not be converted: %s", strings.TrimSpace(string(out)))
	}
	return pdf, nil
}

// rasterise runs pdftoppm and returns the generated page files sorted
// by page number.
func (r *Renderer) rasterise(ctx context.Context, pdf, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, r.pdftoppm,
		"-png",
		"-r", fmt.Sprint(r.resolution),
		pdf, prefix,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rasterising pdf: %w", ctx.Err())
		}
		return nil, fmt.Errorf("rasterising pdf: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("listing rendered pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, domain.Contentf("rendering produced no pages")
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(pages)
	return pages, nil
}

// Reset wipes the LibreOffice profile so a retry starts clean. A
// crashed conversion leaves lock files behind that make every later
// invocation hang.
func (r *Renderer) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.RemoveAll(r.profileDir); err != nil {
		return fmt.Errorf("clearing profile directory: %w", err)
	}
	if err := os.MkdirAll(r.profileDir, 0o700); err != nil {
		return fmt.Errorf("recreating profile directory: %w", err)
	}
	logger.Debug("renderer profile reset")
	return nil
}

// Close removes the profile directory.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return os.RemoveAll(r.profileDir)
}
