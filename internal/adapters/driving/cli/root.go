// Package cli provides the deckhand command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/deckhand-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/index/qdrant"
	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/deckhand-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/deckhand-cli/internal/connectors/sharepoint"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	dataDir   string
	configDir string
)

// configStore is loaded before any command runs.
var configStore driven.ConfigStore

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Index PowerPoint decks for semantic search",
	Long: `Deckhand ingests PowerPoint decks from a remote source, extracts
slide text and speaker notes, renders slide images, and indexes
per-slide embeddings in a vector database for semantic search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		store, err := configfile.NewConfigStore(configDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		configStore = store
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.deckhand/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.deckhand)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveDataDir applies the --data-dir flag or the default location.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".deckhand", "data"), nil
}

// openLedger opens the processing-state store under the data dir.
func openLedger() (driven.Ledger, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	return sqlite.NewLedger(dir)
}

// buildSource constructs the configured remote source.
func buildSource(ctx context.Context) (driven.RemoteSource, error) {
	switch sourceType := configStore.GetString("source.type"); sourceType {
	case "filesystem":
		root := configStore.GetString("source.path")
		if root == "" {
			return nil, errors.New("source.path is required for the filesystem source")
		}
		return filesystem.New(root), nil
	case "sharepoint", "":
		return sharepoint.New(ctx, sharepoint.Config{
			TenantID:     configStore.GetString("source.tenant_id"),
			ClientID:     configStore.GetString("source.client_id"),
			ClientSecret: configStore.GetString("source.client_secret"),
			DriveID:      configStore.GetString("source.drive_id"),
			FolderPath:   configStore.GetString("source.folder"),
		})
	default:
		return nil, fmt.Errorf("unknown source.type %q", sourceType)
	}
}

// buildEmbedder constructs the configured text embedding provider.
func buildEmbedder() (driven.EmbeddingService, error) {
	switch provider := configStore.GetString("embedding.provider"); provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     configStore.GetString("embedding.api_key"),
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		})
	case "ollama", "":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding.provider %q", provider)
	}
}

// buildVisualEmbedder constructs the optional image embedding provider.
// Returns nil when no visual provider is configured.
func buildVisualEmbedder() (driven.ImageEmbeddingService, error) {
	baseURL := configStore.GetString("visual.base_url")
	if baseURL == "" {
		return nil, nil
	}
	return openai.NewImageEmbeddingService(openai.VisionConfig{
		APIKey:     configStore.GetString("visual.api_key"),
		BaseURL:    baseURL,
		Model:      configStore.GetString("visual.model"),
		Dimensions: configStore.GetInt("visual.dimensions"),
	})
}

// buildIndex constructs the vector index client.
func buildIndex(visualDims int) (driven.VectorIndex, error) {
	url := configStore.GetString("index.url")
	if url == "" {
		url = "http://localhost:6333"
	}
	return qdrant.NewIndex(qdrant.Config{
		URL:        url,
		Collection: configStore.GetString("index.collection"),
		APIKey:     configStore.GetString("index.api_key"),
		VisualDims: visualDims,
	})
}
