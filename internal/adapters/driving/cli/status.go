package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

var statusEvents string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger statistics",
	Long: `Shows aggregate processing state: how many decks are in each
status, total indexed slides, and average processing time.

Use --events <remote-id> to print the audit log for one deck instead.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusEvents, "events", "", "show the audit log for a deck")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ledger, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	ctx := context.Background()

	if statusEvents != "" {
		return printEvents(ctx, cmd, ledger, statusEvents)
	}

	stats, err := ledger.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	cmd.Printf("Decks: %d\n", stats.Total())
	order := []domain.Status{
		domain.StatusPending,
		domain.StatusDownloading,
		domain.StatusExtracting,
		domain.StatusRendering,
		domain.StatusEmbedding,
		domain.StatusIndexing,
		domain.StatusSuccess,
		domain.StatusFailed,
	}
	for _, s := range order {
		if n := stats.ByStatus[s]; n > 0 {
			cmd.Printf("  %-12s %d\n", s, n)
		}
	}
	cmd.Printf("Indexed slides: %d\n", stats.TotalSlides)
	if stats.AvgDuration > 0 {
		cmd.Printf("Average processing time: %s\n", stats.AvgDuration.Round(time.Millisecond))
	}
	return nil
}

func printEvents(ctx context.Context, cmd *cobra.Command, ledger driven.Ledger, remoteID string) error {
	events, err := ledger.ListEvents(ctx, remoteID)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	if len(events) == 0 {
		cmd.Printf("No events recorded for %s.\n", remoteID)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Stage, e.Message)
	}
	return w.Flush()
}
