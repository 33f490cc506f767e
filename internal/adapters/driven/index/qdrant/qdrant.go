// Package qdrant implements the vector index against Qdrant's HTTP API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

const (
	defaultTimeout = 30 * time.Second
	defaultTopK    = 5
)

// pointNamespace seeds deterministic UUIDv5 point IDs, so re-indexing
// the same slide always produces the same point ID.
var pointNamespace = uuid.MustParse("8a6e7c1d-0b4f-4f3a-9d2e-5c1b8f0a3e47")

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a Qdrant-backed vector index over slide points.
type Index struct {
	client     *http.Client
	baseURL    string
	collection string
	apiKey     string

	// visualDims is the rendered-image embedding size; zero means the
	// collection carries text vectors only.
	visualDims int
}

// Config holds the Qdrant connection settings.
type Config struct {
	// URL is the Qdrant base URL, e.g. http://localhost:6333.
	URL string

	// Collection is the collection name. Defaults to "slides".
	Collection string

	// APIKey is optional; sent as the api-key header when set.
	APIKey string

	// VisualDims enables a second named vector for image embeddings.
	VisualDims int

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// NewIndex creates a Qdrant index client. The collection is not
// touched until EnsureCollection is called.
func NewIndex(cfg Config) (*Index, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrInvalidInput)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "slides"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Index{
		client:     &http.Client{Timeout: timeout},
		baseURL:    base,
		collection: collection,
		apiKey:     cfg.APIKey,
		visualDims: cfg.VisualDims,
	}, nil
}

// EnsureCollection creates the collection with named vectors if it
// does not already exist.
func (q *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/exists", q.collection)
	if err := q.doRequest(ctx, http.MethodGet, path, nil, &exists); err != nil {
		return err
	}
	if exists.Result.Exists {
		return nil
	}

	vectors := map[string]any{
		string(domain.VectorText): map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	if q.visualDims > 0 {
		vectors[string(domain.VectorVisual)] = map[string]any{
			"size":     q.visualDims,
			"distance": "Cosine",
		}
	}
	body := map[string]any{"vectors": vectors}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil)
}

// PointID returns the deterministic point ID for one slide chunk.
func PointID(remoteID string, index, chunkID int) string {
	return uuid.NewSHA1(pointNamespace, fmt.Appendf(nil, "%s:%d:%d", remoteID, index, chunkID)).String()
}

// Replace swaps a deck's points: delete everything under remoteID,
// then insert the new set. Both calls wait for Qdrant to apply the
// change so a crash between them leaves the deck absent, never mixed.
func (q *Index) Replace(ctx context.Context, remoteID string, points []domain.Point) error {
	if err := q.DeleteDeck(ctx, remoteID); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	upsert := make([]any, 0, len(points))
	for i := range points {
		p := &points[i]
		vectors := make(map[string][]float32, len(p.Vectors))
		for kind, values := range p.Vectors {
			vectors[string(kind)] = values
		}
		upsert = append(upsert, map[string]any{
			"id":      PointID(p.RemoteID, p.Index, p.ChunkID),
			"vector":  vectors,
			"payload": p.Payload,
		})
	}
	body := map[string]any{"points": upsert}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collection)
	return q.doRequest(ctx, http.MethodPut, path, body, nil)
}

// DeleteDeck removes all points carrying the deck's remote ID.
func (q *Index) DeleteDeck(ctx context.Context, remoteID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []any{
				map[string]any{
					"key":   "remote_id",
					"match": map[string]any{"value": remoteID},
				},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection)
	return q.doRequest(ctx, http.MethodPost, path, body, nil)
}

// searchResult captures the fields returned by Qdrant search responses.
type searchResult struct {
	ID      any                 `json:"id"`
	Score   float64             `json:"score"`
	Payload domain.PointPayload `json:"payload"`
}

// Search finds the top-k nearest points for the named vector kind.
func (q *Index) Search(ctx context.Context, kind domain.VectorKind, query []float32, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	request := map[string]any{
		"vector": map[string]any{
			"name":   string(kind),
			"vector": query,
		},
		"limit":        topK,
		"with_payload": true,
	}
	var response struct {
		Result []searchResult `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.doRequest(ctx, http.MethodPost, path, request, &response); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Result))
	for _, res := range response.Result {
		hits = append(hits, domain.SearchHit{
			Score:   res.Score,
			Payload: res.Payload,
		})
	}
	return hits, nil
}

// Close releases resources.
func (q *Index) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Index) doRequest(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		buf = bytes.NewReader(payload)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("qdrant: read response: %w", readErr)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Status struct {
				Error string `json:"error"`
			} `json:"status"`
		}
		if err := json.Unmarshal(payload, &apiErr); err != nil || apiErr.Status.Error == "" {
			return fmt.Errorf("qdrant: request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("qdrant: %s (%d)", apiErr.Status.Error, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}
