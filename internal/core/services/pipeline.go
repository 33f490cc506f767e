package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driving"
	"github.com/custodia-labs/deckhand-cli/internal/extract/chunker"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineRunner = (*Pipeline)(nil)

// Default stage ceilings and alerting threshold.
const (
	DefaultDownloadWorkers = 10
	DefaultExtractWorkers  = 5
	DefaultEmbedWorkers    = 4
	DefaultAlertThreshold  = 0.10
)

// hashPrefixLen is the number of hex characters kept from the SHA-1
// content hash.
const hashPrefixLen = 12

// PipelineConfig holds tunables for one Pipeline.
type PipelineConfig struct {
	// StagingDir receives fetched decks and extraction sidecars.
	StagingDir string

	// RenderDir receives per-deck rendered image directories.
	RenderDir string

	// DownloadWorkers bounds concurrent fetches (I/O-bound).
	DownloadWorkers int

	// ExtractWorkers bounds concurrent extractions.
	ExtractWorkers int

	// EmbedWorkers sizes the embedding worker pool (CPU-bound).
	EmbedWorkers int

	// Retry is the policy applied to transient stage failures.
	Retry RetryPolicy

	// AlertThreshold is the batch failure rate above which an alert
	// is emitted.
	AlertThreshold float64
}

// withDefaults fills unset fields.
func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.DownloadWorkers <= 0 {
		c.DownloadWorkers = DefaultDownloadWorkers
	}
	if c.ExtractWorkers <= 0 {
		c.ExtractWorkers = DefaultExtractWorkers
	}
	if c.EmbedWorkers <= 0 {
		c.EmbedWorkers = DefaultEmbedWorkers
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = DefaultAlertThreshold
	}
	return c
}

// Pipeline drives decks through download → extract → render → embed →
// index, writing the ledger at every stage boundary. Each stage has
// its own concurrency ceiling; rendering is a single exclusive slot
// shared by the whole pipeline.
type Pipeline struct {
	source   driven.RemoteSource
	ledger   driven.Ledger
	detector *Detector
	extract  driven.Extractor
	chunker  *chunker.Chunker
	renderer driven.Renderer
	embedder driven.EmbeddingService
	visual   driven.ImageEmbeddingService
	index    driven.VectorIndex
	alerts   driven.AlertSink
	cfg      PipelineConfig

	downloadSem *semaphore.Weighted
	extractSem  *semaphore.Weighted
	renderSlot  *Slot
	embedPool   *ants.Pool

	mu     sync.RWMutex
	status driving.RunStatus
}

// NewPipeline wires a pipeline. The visual embedder and alert sink are
// optional; nil disables per-slide visual vectors and alerting.
func NewPipeline(
	source driven.RemoteSource,
	ledger driven.Ledger,
	extractor driven.Extractor,
	renderer driven.Renderer,
	embedder driven.EmbeddingService,
	visual driven.ImageEmbeddingService,
	index driven.VectorIndex,
	alerts driven.AlertSink,
	cfg PipelineConfig,
) (*Pipeline, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	cfg = cfg.withDefaults()

	pool, err := ants.NewPool(cfg.EmbedWorkers)
	if err != nil {
		return nil, fmt.Errorf("create embed pool: %w", err)
	}

	return &Pipeline{
		source:      source,
		ledger:      ledger,
		detector:    NewDetector(ledger),
		extract:     extractor,
		chunker:     chunker.New(),
		renderer:    renderer,
		embedder:    embedder,
		visual:      visual,
		index:       index,
		alerts:      alerts,
		cfg:         cfg,
		downloadSem: semaphore.NewWeighted(int64(cfg.DownloadWorkers)),
		extractSem:  semaphore.NewWeighted(int64(cfg.ExtractWorkers)),
		renderSlot:  NewSlot(),
		embedPool:   pool,
	}, nil
}

// Close releases the embedding pool.
func (p *Pipeline) Close() {
	p.embedPool.Release()
}

// Status returns a snapshot of the active run.
func (p *Pipeline) Status(_ context.Context) (*driving.RunStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.status
	return &s, nil
}

// Run executes one ingest batch.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) Run(ctx context.Context, mode driving.RunMode) (*domain.BatchMetrics, error) {
	if !p.beginRun(mode) {
		return nil, domain.ErrIngestInProgress
	}
	defer p.endRun()

	start := time.Now()
	metrics := &domain.BatchMetrics{Mode: string(mode)}

	if err := p.source.Validate(ctx); err != nil {
		return nil, domain.Systemic(fmt.Errorf("validate source: %w", err))
	}

	remote, err := p.source.List(ctx)
	if err != nil {
		return nil, domain.Systemic(fmt.Errorf("list remote: %w", err))
	}
	metrics.Discovered = len(remote)

	changes, err := p.detector.Detect(ctx, remote, mode)
	if err != nil {
		return nil, err
	}

	if err := p.index.EnsureCollection(ctx, p.embedder.Dimensions()); err != nil {
		return nil, domain.Systemic(fmt.Errorf("ensure collection: %w", err))
	}

	if err := p.removeDeleted(ctx, changes.Deleted, metrics); err != nil {
		return nil, err
	}

	work := changes.Worklist()
	metrics.Processed = len(work)
	p.setTotal(len(work))

	var mu sync.Mutex // guards metrics
	g, gctx := errgroup.WithContext(ctx)
	for _, deck := range work {
		deck := deck
		g.Go(func() error {
			outcome, err := p.processDeck(gctx, deck)
			if err != nil {
				// Systemic: stop issuing new work.
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if outcome.failed {
				metrics.Failed++
				metrics.FailedDecks = append(metrics.FailedDecks, domain.FailedDeck{
					RemoteID: deck.RemoteID,
					Name:     deck.Name,
					Error:    outcome.errMsg,
				})
			} else {
				metrics.Succeeded++
			}
			p.deckDone(outcome.failed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.Duration = time.Since(start)
	p.maybeAlert(ctx, metrics)

	logger.Info("Batch complete: %d succeeded, %d failed, %d deleted in %s",
		metrics.Succeeded, metrics.Failed, metrics.Deleted, metrics.Duration.Round(time.Millisecond))

	return metrics, nil
}

// removeDeleted drops index entries and ledger records for decks that
// disappeared from the remote listing. Not an error condition.
func (p *Pipeline) removeDeleted(ctx context.Context, deleted []domain.Record, metrics *domain.BatchMetrics) error {
	for _, rec := range deleted {
		if err := p.index.DeleteDeck(ctx, rec.RemoteID); err != nil {
			return domain.Systemic(fmt.Errorf("delete index entries for %s: %w", rec.RemoteID, err))
		}
		if err := p.ledger.Delete(ctx, rec.RemoteID); err != nil {
			return domain.Systemic(fmt.Errorf("delete ledger record %s: %w", rec.RemoteID, err))
		}
		logger.Debug("Removed deleted deck %s (%s)", rec.RemoteID, rec.Name)
		metrics.Deleted++
	}
	return nil
}

// deckOutcome reports one deck's terminal state within a run.
type deckOutcome struct {
	failed bool
	errMsg string
}

// pipeline stages in order. A resumed deck enters at the first stage
// whose completion the ledger has not recorded.
const (
	stageDownload = iota
	stageExtract
	stageRender
	stageEmbed
	stageIndex
)

// entryStage maps a ledger status to the stage a resumed deck enters.
// Embedding vectors are transient, so a deck interrupted during or
// after embedding recomputes them; the index replace is idempotent.
func entryStage(s domain.Status) int {
	switch s {
	case domain.StatusDownloading:
		return stageExtract
	case domain.StatusExtracting:
		return stageRender
	case domain.StatusRendering:
		return stageEmbed
	case domain.StatusEmbedding, domain.StatusIndexing:
		return stageEmbed
	default:
		return stageDownload
	}
}

// processDeck drives one deck through the pipeline. The returned error
// is non-nil only for systemic failures; per-deck failures are
// recorded in the ledger and reported through the outcome.
//
//nolint:gocognit,gocyclo // Pipeline orchestration with sequential stages
func (p *Pipeline) processDeck(ctx context.Context, deck domain.Deck) (deckOutcome, error) {
	start := time.Now()

	rec, err := p.admit(ctx, deck, start)
	if err != nil {
		return deckOutcome{}, err
	}

	staged := p.stagedPath(deck.RemoteID)
	sidecar := p.sidecarPath(deck.RemoteID)
	renderDir := filepath.Join(p.cfg.RenderDir, deck.RemoteID)
	stage := entryStage(rec.Status)

	if stage <= stageDownload {
		hash, err := p.runDownload(ctx, deck, rec, staged)
		if err != nil {
			return p.fail(ctx, rec, start, err)
		}
		if hash == rec.ContentHash && rec.ContentHash != "" {
			// Timestamp pre-filter false positive: identical bytes.
			return p.succeed(ctx, deck, rec, start, true)
		}
		rec.ContentHash = hash
		if err := p.advance(ctx, rec, domain.StatusDownloading, "download complete"); err != nil {
			return deckOutcome{}, err
		}
	}

	var slides []domain.Slide
	if stage <= stageExtract {
		slides, err = p.runExtract(ctx, deck, staged, sidecar)
		if err != nil {
			return p.fail(ctx, rec, start, err)
		}
		rec.SlideCount = slideCount(slides)
		if err := p.advance(ctx, rec, domain.StatusExtracting,
			fmt.Sprintf("extracted %d slides", rec.SlideCount)); err != nil {
			return deckOutcome{}, err
		}
	} else {
		slides, err = p.loadSidecar(sidecar)
		if err != nil {
			return p.fail(ctx, rec, start, err)
		}
	}

	var images []domain.SlideImage
	if stage <= stageRender {
		images, err = p.runRender(ctx, deck, rec, staged, renderDir)
		if err != nil {
			return p.fail(ctx, rec, start, err)
		}
		if err := p.advance(ctx, rec, domain.StatusRendering,
			fmt.Sprintf("rendered %d slides", len(images))); err != nil {
			return deckOutcome{}, err
		}
	} else {
		images = restoreImages(deck.RemoteID, renderDir, slideCount(slides))
	}

	vectors, err := p.runEmbed(ctx, rec, slides, images)
	if err != nil {
		return p.fail(ctx, rec, start, err)
	}
	if rec.Status.CanTransition(domain.StatusEmbedding) {
		if err := p.advance(ctx, rec, domain.StatusEmbedding,
			fmt.Sprintf("embedded %d slides", len(slides))); err != nil {
			return deckOutcome{}, err
		}
	}

	if rec.Status.CanTransition(domain.StatusIndexing) {
		if err := p.advance(ctx, rec, domain.StatusIndexing, "writing index points"); err != nil {
			return deckOutcome{}, err
		}
	}
	points := buildPoints(deck, rec.ContentHash, slides, images, vectors)
	if err := p.index.Replace(ctx, deck.RemoteID, points); err != nil {
		return deckOutcome{}, domain.Systemic(fmt.Errorf("replace index points for %s: %w", deck.RemoteID, err))
	}

	return p.succeed(ctx, deck, rec, start, false)
}

// admit loads or creates the ledger record for a worklist deck and
// resets terminal records back to pending.
func (p *Pipeline) admit(ctx context.Context, deck domain.Deck, start time.Time) (*domain.Record, error) {
	rec, err := p.ledger.Get(ctx, deck.RemoteID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec = &domain.Record{
			RemoteID: deck.RemoteID,
			Status:   domain.StatusPending,
		}
	case err != nil:
		return nil, domain.Systemic(fmt.Errorf("get record %s: %w", deck.RemoteID, err))
	}

	if rec.Status.Terminal() {
		if rec.Status == domain.StatusFailed {
			// A failed deck never reached the index; its stale hash
			// must not short-circuit the reprocessing.
			rec.ContentHash = ""
		}
		rec.Status = domain.StatusPending
		rec.RetryCount = 0
		rec.LastError = ""
	}

	rec.Name = deck.Name
	rec.Size = deck.Size
	// Record the observed remote timestamp up front so a failed deck
	// stays terminal until the remote actually changes again.
	rec.ModifiedAt = deck.ModifiedAt
	rec.StartedAt = start

	if err := p.ledger.Upsert(ctx, rec); err != nil {
		return nil, domain.Systemic(fmt.Errorf("admit %s: %w", deck.RemoteID, err))
	}
	return rec, nil
}

// runDownload fetches the deck to staging under the download ceiling
// and returns the content hash of the staged bytes.
func (p *Pipeline) runDownload(ctx context.Context, deck domain.Deck, rec *domain.Record, staged string) (string, error) {
	if err := p.downloadSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.downloadSem.Release(1)

	var hash string
	retries, err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		h, fetchErr := p.fetchToStaging(ctx, deck.RemoteID, staged)
		if fetchErr != nil {
			return fetchErr
		}
		hash = h
		return nil
	})
	rec.RetryCount += retries
	if err != nil {
		return "", fmt.Errorf("download %s: %w", deck.Name, err)
	}

	logger.Debug("Downloaded %s (hash %s, %d retries)", deck.Name, hash, retries)
	return hash, nil
}

// fetchToStaging streams one deck to disk and hashes it on the way.
func (p *Pipeline) fetchToStaging(ctx context.Context, remoteID, staged string) (string, error) {
	body, err := p.source.Fetch(ctx, remoteID)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(staged), 0o700); err != nil {
		return "", domain.Systemic(err)
	}
	f, err := os.Create(staged)
	if err != nil {
		return "", domain.Systemic(err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(io.MultiWriter(f, h), body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:hashPrefixLen], nil
}

// runExtract parses the staged deck under the extraction ceiling and
// persists the slides sidecar for resumability.
func (p *Pipeline) runExtract(ctx context.Context, deck domain.Deck, staged, sidecar string) ([]domain.Slide, error) {
	if err := p.extractSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.extractSem.Release(1)

	slides, err := p.extract.Extract(ctx, deck.RemoteID, staged)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", deck.Name, err)
	}
	slides = p.chunker.Split(slides)
	if err := p.saveSidecar(sidecar, slides); err != nil {
		return nil, err
	}
	return slides, nil
}

// runRender renders the deck holding the pipeline-wide exclusive slot.
// On a transient converter fault the resource is reset before the next
// attempt; the slot is released on every exit path.
func (p *Pipeline) runRender(
	ctx context.Context,
	deck domain.Deck,
	rec *domain.Record,
	staged, renderDir string,
) ([]domain.SlideImage, error) {
	if err := p.renderSlot.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.renderSlot.Release()

	var images []domain.SlideImage
	firstAttempt := true
	retries, err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		if !firstAttempt {
			if resetErr := p.renderer.Reset(ctx); resetErr != nil {
				return resetErr
			}
		}
		firstAttempt = false

		out, renderErr := p.renderer.Render(ctx, deck.RemoteID, staged, renderDir)
		if renderErr != nil {
			return renderErr
		}
		images = out
		return nil
	})
	rec.RetryCount += retries
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", deck.Name, err)
	}
	return images, nil
}

// runEmbed computes per-slide vectors on the shared worker pool.
// Slides fail individually; the deck fails only if one of its own
// slides could not be embedded.
func (p *Pipeline) runEmbed(
	ctx context.Context,
	rec *domain.Record,
	slides []domain.Slide,
	images []domain.SlideImage,
) ([]domain.Vector, error) {
	imageByIndex := make(map[int]string, len(images))
	for _, img := range images {
		imageByIndex[img.Index] = img.Path
	}

	vectors := make([]domain.Vector, len(slides))
	visuals := make([]domain.Vector, len(slides))
	errs := make([]error, len(slides))
	var retryTotal atomic.Int64

	var wg sync.WaitGroup
	for i := range slides {
		i := i
		slide := slides[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()

			text := slide.Text
			if slide.Notes != "" {
				text += "\n\n" + slide.Notes
			}

			var values []float32
			retries, err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
				v, embedErr := p.embedder.Embed(ctx, text)
				if embedErr != nil {
					return embedErr
				}
				values = v
				return nil
			})
			retryTotal.Add(int64(retries))
			if err != nil {
				errs[i] = fmt.Errorf("slide %d: %w", slide.Index, err)
				return
			}
			vectors[i] = domain.Vector{
				RemoteID: slide.RemoteID,
				Index:    slide.Index,
				ChunkID:  slide.ChunkID,
				Kind:     domain.VectorText,
				Values:   values,
			}

			// One visual vector per slide, on the first chunk.
			imagePath := imageByIndex[slide.Index]
			if p.visual != nil && slide.ChunkID == 0 && imagePath != "" {
				var v []float32
				retries, err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
					vv, embedErr := p.visual.EmbedImage(ctx, imagePath)
					if embedErr != nil {
						return embedErr
					}
					v = vv
					return nil
				})
				retryTotal.Add(int64(retries))
				if err != nil {
					errs[i] = fmt.Errorf("slide %d visual: %w", slide.Index, err)
					return
				}
				visuals[i] = domain.Vector{
					RemoteID: slide.RemoteID,
					Index:    slide.Index,
					ChunkID:  slide.ChunkID,
					Kind:     domain.VectorVisual,
					Values:   v,
				}
			}
		}
		if err := p.embedPool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	rec.RetryCount += int(retryTotal.Load())

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	out := vectors
	if p.visual != nil {
		for i := range visuals {
			if visuals[i].Values != nil {
				out = append(out, visuals[i])
			}
		}
	}
	return out, nil
}

// buildPoints assembles the deck's index points from slides, rendered
// images and vectors.
func buildPoints(
	deck domain.Deck,
	contentHash string,
	slides []domain.Slide,
	images []domain.SlideImage,
	vectors []domain.Vector,
) []domain.Point {
	imageByIndex := make(map[int]string, len(images))
	for _, img := range images {
		imageByIndex[img.Index] = img.Path
	}

	type key struct{ index, chunk int }
	byKey := make(map[key]*domain.Point, len(slides))
	points := make([]domain.Point, 0, len(slides))

	now := time.Now().UTC()
	for _, slide := range slides {
		points = append(points, domain.Point{
			RemoteID: deck.RemoteID,
			Index:    slide.Index,
			ChunkID:  slide.ChunkID,
			Vectors:  make(map[domain.VectorKind][]float32, 2),
			Payload: domain.PointPayload{
				RemoteID:    deck.RemoteID,
				DeckName:    deck.Name,
				ContentHash: contentHash,
				SlideNo:     slide.Index,
				Text:        slide.Text,
				Notes:       slide.Notes,
				ImagePath:   imageByIndex[slide.Index],
				IndexedAt:   now,
			},
		})
		byKey[key{slide.Index, slide.ChunkID}] = &points[len(points)-1]
	}

	for _, vec := range vectors {
		if pt, ok := byKey[key{vec.Index, vec.ChunkID}]; ok {
			pt.Vectors[vec.Kind] = vec.Values
		}
	}
	return points
}

// advance writes one status transition and its audit event.
func (p *Pipeline) advance(ctx context.Context, rec *domain.Record, next domain.Status, event string) error {
	if !rec.Status.CanTransition(next) {
		return domain.Systemic(fmt.Errorf("%w: %s -> %s for %s",
			domain.ErrInvalidTransition, rec.Status, next, rec.RemoteID))
	}
	rec.Status = next
	if err := p.ledger.Upsert(ctx, rec); err != nil {
		return domain.Systemic(fmt.Errorf("record %s transition: %w", rec.RemoteID, err))
	}
	if err := p.ledger.AddEvent(ctx, rec.RemoteID, string(next), event); err != nil {
		return domain.Systemic(fmt.Errorf("record %s event: %w", rec.RemoteID, err))
	}
	return nil
}

// succeed finalises a deck, recording its duration, then discards
// staging artifacts. Rendered images are kept for downstream
// presentation.
func (p *Pipeline) succeed(
	ctx context.Context,
	deck domain.Deck,
	rec *domain.Record,
	start time.Time,
	shortCircuit bool,
) (deckOutcome, error) {
	rec.Status = domain.StatusSuccess
	rec.LastError = ""
	rec.FinishedAt = time.Now()
	rec.Duration = time.Since(start)

	if err := p.ledger.Upsert(ctx, rec); err != nil {
		return deckOutcome{}, domain.Systemic(fmt.Errorf("record %s success: %w", rec.RemoteID, err))
	}
	msg := "processed"
	if shortCircuit {
		msg = "content hash unchanged, skipped reprocessing"
	}
	if err := p.ledger.AddEvent(ctx, rec.RemoteID, string(domain.StatusSuccess), msg); err != nil {
		return deckOutcome{}, domain.Systemic(err)
	}

	p.cleanStaging(deck.RemoteID)
	logger.Debug("Deck %s succeeded in %s", deck.Name, rec.Duration.Round(time.Millisecond))
	return deckOutcome{}, nil
}

// fail records a per-deck failure in the ledger. Systemic errors are
// passed through instead so the batch aborts.
func (p *Pipeline) fail(ctx context.Context, rec *domain.Record, start time.Time, cause error) (deckOutcome, error) {
	if domain.IsSystemic(cause) {
		return deckOutcome{}, cause
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		// Batch abort: leave the ledger at the last durable status
		// so the next run resumes this deck.
		return deckOutcome{}, cause
	}

	rec.Status = domain.StatusFailed
	rec.LastError = cause.Error()
	rec.FinishedAt = time.Now()
	rec.Duration = time.Since(start)

	if err := p.ledger.Upsert(ctx, rec); err != nil {
		return deckOutcome{}, domain.Systemic(fmt.Errorf("record %s failure: %w", rec.RemoteID, err))
	}
	if err := p.ledger.AddEvent(ctx, rec.RemoteID, string(domain.StatusFailed), cause.Error()); err != nil {
		return deckOutcome{}, domain.Systemic(err)
	}

	p.cleanStaging(rec.RemoteID)
	logger.Warn("Deck %s failed: %v", rec.Name, cause)
	return deckOutcome{failed: true, errMsg: cause.Error()}, nil
}

// maybeAlert emits an alert when the batch failure rate exceeds the
// configured threshold. Delivery failures are logged, never fatal.
func (p *Pipeline) maybeAlert(ctx context.Context, metrics *domain.BatchMetrics) {
	if p.alerts == nil || metrics.Processed == 0 {
		return
	}
	rate := metrics.FailureRate()
	if rate <= p.cfg.AlertThreshold {
		return
	}

	severity := domain.SeverityWarning
	if rate >= 0.5 {
		severity = domain.SeverityCritical
	}
	names := make([]string, 0, len(metrics.FailedDecks))
	for _, fd := range metrics.FailedDecks {
		names = append(names, fd.RemoteID)
	}
	alert := domain.Alert{
		Severity: severity,
		Message: fmt.Sprintf("ingest failure rate %.0f%% exceeds %.0f%% threshold; failed decks: %s",
			rate*100, p.cfg.AlertThreshold*100, strings.Join(names, ", ")),
		Metrics: *metrics,
	}
	if err := p.alerts.Send(ctx, alert); err != nil {
		logger.Warn("Alert delivery failed: %v", err)
	}
}

// ---- staging helpers ----

func (p *Pipeline) stagedPath(remoteID string) string {
	return filepath.Join(p.cfg.StagingDir, remoteID+".pptx")
}

func (p *Pipeline) sidecarPath(remoteID string) string {
	return filepath.Join(p.cfg.StagingDir, remoteID+".slides.json")
}

// saveSidecar persists extracted slides so an interrupted run can
// resume past extraction.
func (p *Pipeline) saveSidecar(path string, slides []domain.Slide) error {
	data, err := json.Marshal(slides)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domain.Systemic(err)
	}
	return nil
}

func (p *Pipeline) loadSidecar(path string) ([]domain.Slide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var slides []domain.Slide
	if err := json.Unmarshal(data, &slides); err != nil {
		return nil, err
	}
	return slides, nil
}

// slideCount counts distinct slide indexes; chunked slides share one.
func slideCount(slides []domain.Slide) int {
	seen := make(map[int]bool, len(slides))
	for _, s := range slides {
		seen[s.Index] = true
	}
	return len(seen)
}

// restoreImages rebuilds the rendered-image list for a resumed deck
// from the deterministic naming convention.
func restoreImages(remoteID, renderDir string, count int) []domain.SlideImage {
	images := make([]domain.SlideImage, 0, count)
	for i := 1; i <= count; i++ {
		path := filepath.Join(renderDir, domain.SlideImageName(i))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		images = append(images, domain.SlideImage{RemoteID: remoteID, Index: i, Path: path})
	}
	return images
}

// cleanStaging removes the fetched deck and its extraction sidecar.
func (p *Pipeline) cleanStaging(remoteID string) {
	for _, path := range []string{p.stagedPath(remoteID), p.sidecarPath(remoteID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("Staging cleanup of %s: %v", path, err)
		}
	}
}

// ---- run status tracking ----

func (p *Pipeline) beginRun(mode driving.RunMode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.Running {
		return false
	}
	p.status = driving.RunStatus{Running: true, Mode: mode}
	return true
}

func (p *Pipeline) endRun() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = false
}

func (p *Pipeline) setTotal(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Total = n
}

func (p *Pipeline) deckDone(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Completed++
	if failed {
		p.status.Failed++
	}
}
