package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driving"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// DefaultTopK is the default number of search results.
const DefaultTopK = 5

// SearchService answers slide-level similarity queries against the
// vector index.
type SearchService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
}

// NewSearchService creates a search service.
func NewSearchService(embedder driven.EmbeddingService, index driven.VectorIndex) *SearchService {
	return &SearchService{embedder: embedder, index: index}
}

// Search embeds the query and returns the top-k textual matches.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error) {
	if query == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, domain.VectorText, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	logger.Debug("Search %q: %d hits", query, len(hits))
	return hits, nil
}
