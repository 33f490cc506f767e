package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/alert/webhook"
	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/render/soffice"
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driving"
	"github.com/custodia-labs/deckhand-cli/internal/core/services"
	"github.com/custodia-labs/deckhand-cli/internal/extract/pptx"
)

var ingestFull bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest changed decks from the remote source",
	Long: `Discovers decks on the remote source, detects new, modified and
deleted ones, and runs them through the processing pipeline.

By default only changed decks are processed. Use --full to reprocess
every deck regardless of ledger state.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "reprocess all decks")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	pipeline, cleanup, err := buildPipeline(ctx, ledger)
	if err != nil {
		return err
	}
	defer cleanup()

	mode := driving.ModeIncremental
	if ingestFull {
		mode = driving.ModeFull
	}
	cmd.Printf("Starting %s ingest...\n", mode)

	metrics, err := runWithProgress(ctx, cmd, pipeline, mode)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Discovered %d decks, processed %d.\n", metrics.Discovered, metrics.Processed)
	cmd.Printf("  Succeeded: %d\n", metrics.Succeeded)
	cmd.Printf("  Failed:    %d\n", metrics.Failed)
	cmd.Printf("  Deleted:   %d\n", metrics.Deleted)
	cmd.Printf("  Duration:  %s\n", metrics.Duration.Round(time.Millisecond))
	for _, fd := range metrics.FailedDecks {
		cmd.Printf("  FAILED %s: %s\n", fd.Name, fd.Error)
	}
	return nil
}

// runWithProgress runs the batch while printing progress updates.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.PipelineRunner,
	mode driving.RunMode,
) (*domain.BatchMetrics, error) {
	type result struct {
		metrics *domain.BatchMetrics
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		metrics, err := pipeline.Run(ctx, mode)
		resCh <- result{metrics, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastDone := -1
	for {
		select {
		case res := <-resCh:
			if lastDone > 0 {
				cmd.Println()
			}
			return res.metrics, res.err
		case <-ticker.C:
			// Best effort; a status error just skips the update.
			status, err := pipeline.Status(ctx)
			if err == nil && status.Total > 0 && status.Completed > lastDone {
				lastDone = status.Completed
				cmd.Printf("\rProcessing... %d/%d decks", status.Completed, status.Total)
			}
		}
	}
}

// buildPipeline wires the full ingest pipeline from configuration. The
// returned cleanup releases everything except the ledger, which the
// caller owns.
func buildPipeline(ctx context.Context, ledger driven.Ledger) (driving.PipelineRunner, func(), error) {
	source, err := buildSource(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("configure source: %w", err)
	}

	embedder, err := buildEmbedder()
	if err != nil {
		return nil, nil, fmt.Errorf("configure embedding: %w", err)
	}
	visual, err := buildVisualEmbedder()
	if err != nil {
		return nil, nil, fmt.Errorf("configure visual embedding: %w", err)
	}

	visualDims := 0
	if visual != nil {
		visualDims = visual.Dimensions()
	}
	index, err := buildIndex(visualDims)
	if err != nil {
		return nil, nil, fmt.Errorf("configure index: %w", err)
	}

	renderer, err := soffice.NewRenderer(soffice.Config{
		Binary:   configStore.GetString("render.binary"),
		Pdftoppm: configStore.GetString("render.pdftoppm"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure renderer: %w", err)
	}

	var alerts driven.AlertSink
	if url := configStore.GetString("alert.webhook_url"); url != "" {
		sink, sinkErr := webhook.NewSink(url)
		if sinkErr != nil {
			renderer.Close()
			return nil, nil, fmt.Errorf("configure alerting: %w", sinkErr)
		}
		alerts = sink
	}

	dir, err := resolveDataDir()
	if err != nil {
		renderer.Close()
		return nil, nil, err
	}

	pipeline, err := services.NewPipeline(
		source, ledger, pptx.New(), renderer, embedder, visual, index, alerts,
		services.PipelineConfig{
			StagingDir:      filepath.Join(dir, "staging"),
			RenderDir:       filepath.Join(dir, "renders"),
			DownloadWorkers: configStore.GetInt("pipeline.download_workers"),
			ExtractWorkers:  configStore.GetInt("pipeline.extract_workers"),
			EmbedWorkers:    configStore.GetInt("pipeline.embed_workers"),
			AlertThreshold:  configStore.GetFloat("pipeline.alert_threshold"),
		},
	)
	if err != nil {
		renderer.Close()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}

	cleanup := func() {
		pipeline.Close()
		_ = source.Close()
		_ = renderer.Close()
		_ = embedder.Close()
		if visual != nil {
			_ = visual.Close()
		}
		_ = index.Close()
	}
	return pipeline, cleanup, nil
}
