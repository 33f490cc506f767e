package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure ImageEmbeddingService implements the interface.
var _ driven.ImageEmbeddingService = (*ImageEmbeddingService)(nil)

// Default configuration values for image embeddings.
const (
	DefaultVisionModel      = "clip-ViT-B-32"
	DefaultVisionDimensions = 512
)

// VisionConfig holds configuration for the image embedding service.
// It targets OpenAI-compatible CLIP servers that accept images as
// data URLs on the embeddings endpoint.
type VisionConfig struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (required; no public OpenAI default
	// exists for image embeddings).
	BaseURL string

	// Model is the embedding model to use (default: clip-ViT-B-32).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (default: 512).
	Dimensions int
}

// ImageEmbeddingService generates image embeddings via an
// OpenAI-compatible embeddings endpoint.
type ImageEmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// NewImageEmbeddingService creates a new image embedding service.
func NewImageEmbeddingService(cfg VisionConfig) (*ImageEmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: base URL is required for image embeddings")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVisionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultVisionDimensions
	}

	return &ImageEmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// EmbedImage generates a vector embedding for the PNG at path.
func (s *ImageEmbeddingService) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	reqBody := embeddingRequest{
		Model: s.model,
		Input: []string{dataURL},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openai: %w", domain.ErrRateLimited)
	}

	if embedResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", embedResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(embedResp.Data) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}

	embedding := make([]float32, len(embedResp.Data[0].Embedding))
	for i, v := range embedResp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Dimensions returns the embedding vector size.
func (s *ImageEmbeddingService) Dimensions() int {
	return s.dimensions
}

// Close releases resources.
func (s *ImageEmbeddingService) Close() error {
	return nil
}
