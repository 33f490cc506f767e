package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deckhand-cli/internal/core/services"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed slides",
	Long: `Embeds the query and returns the closest slides from the vector
index, with deck name, slide number and a text excerpt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", services.DefaultTopK, "number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	embedder, err := buildEmbedder()
	if err != nil {
		return fmt.Errorf("configure embedding: %w", err)
	}
	defer embedder.Close()

	index, err := buildIndex(0)
	if err != nil {
		return fmt.Errorf("configure index: %w", err)
	}
	defer index.Close()

	searcher := services.NewSearchService(embedder, index)
	hits, err := searcher.Search(context.Background(), query, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(hits) == 0 {
		cmd.Println("No results.")
		return nil
	}

	for i, hit := range hits {
		cmd.Printf("%d. %s, slide %d (score %.3f)\n",
			i+1, hit.Payload.DeckName, hit.Payload.SlideNo, hit.Score)
		if excerpt := excerptOf(hit.Payload.Text); excerpt != "" {
			cmd.Printf("   %s\n", excerpt)
		}
	}
	return nil
}

// excerptOf trims slide text to a single display line.
func excerptOf(text string) string {
	const maxLen = 120
	line := strings.Join(strings.Fields(text), " ")
	if len(line) > maxLen {
		line = line[:maxLen] + "..."
	}
	return line
}
