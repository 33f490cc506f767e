package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List failed decks",
	Long:  `Lists every deck whose last processing attempt failed, with the error.`,
	RunE:  runFailed,
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Queue failed decks for reprocessing",
	Long: `Resets every failed deck back to pending so the next ingest run
picks it up again.`,
	RunE: runRetry,
}

func init() {
	rootCmd.AddCommand(failedCmd)
	rootCmd.AddCommand(retryCmd)
}

func runFailed(cmd *cobra.Command, _ []string) error {
	ledger, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	records, err := ledger.ListFailed(context.Background())
	if err != nil {
		return fmt.Errorf("list failed decks: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No failed decks.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REMOTE ID\tNAME\tRETRIES\tERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			rec.RemoteID, rec.Name, rec.RetryCount, rec.LastError)
	}
	return w.Flush()
}

func runRetry(cmd *cobra.Command, _ []string) error {
	ledger, err := openLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	n, err := ledger.ResetFailed(context.Background())
	if err != nil {
		return fmt.Errorf("reset failed decks: %w", err)
	}
	if n == 0 {
		cmd.Println("No failed decks to retry.")
		return nil
	}
	cmd.Printf("Queued %d decks for reprocessing. Run 'deckhand ingest' to start.\n", n)
	return nil
}
