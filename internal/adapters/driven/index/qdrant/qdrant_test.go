package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// newTestServer records every request and answers from the handler map
// keyed by "METHOD path".
func newTestServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &body))
		}
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		if resp, ok := responses[r.Method+" "+r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}
		w.Write([]byte(`{"result": true, "status": "ok"}`))
	}))
	return server, &requests
}

func newTestIndex(t *testing.T, url string) *Index {
	t.Helper()
	idx, err := NewIndex(Config{URL: url, Collection: "slides", VisualDims: 512})
	require.NoError(t, err)
	return idx
}

func TestNewIndex_RequiresURL(t *testing.T) {
	_, err := NewIndex(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewIndex_Defaults(t *testing.T) {
	idx, err := NewIndex(Config{URL: "http://localhost:6333/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:6333", idx.baseURL)
	assert.Equal(t, "slides", idx.collection)
	assert.Equal(t, defaultTimeout, idx.client.Timeout)
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"GET /collections/slides/exists": `{"result": {"exists": false}, "status": "ok"}`,
	})
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	err := idx.EnsureCollection(context.Background(), 768)
	require.NoError(t, err)

	require.Len(t, *requests, 2)
	create := (*requests)[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/slides", create.Path)

	vectors := create.Body["vectors"].(map[string]any)
	text := vectors["text"].(map[string]any)
	assert.Equal(t, float64(768), text["size"])
	assert.Equal(t, "Cosine", text["distance"])
	visual := vectors["visual"].(map[string]any)
	assert.Equal(t, float64(512), visual["size"])
}

func TestEnsureCollection_SkipsWhenPresent(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"GET /collections/slides/exists": `{"result": {"exists": true}, "status": "ok"}`,
	})
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	err := idx.EnsureCollection(context.Background(), 768)
	require.NoError(t, err)
	assert.Len(t, *requests, 1)
}

func TestEnsureCollection_TextOnly(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"GET /collections/slides/exists": `{"result": {"exists": false}, "status": "ok"}`,
	})
	defer server.Close()

	idx, err := NewIndex(Config{URL: server.URL, Collection: "slides"})
	require.NoError(t, err)
	require.NoError(t, idx.EnsureCollection(context.Background(), 768))

	vectors := (*requests)[1].Body["vectors"].(map[string]any)
	assert.Contains(t, vectors, "text")
	assert.NotContains(t, vectors, "visual")
}

func TestReplace_DeleteThenInsert(t *testing.T) {
	server, requests := newTestServer(t, nil)
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	points := []domain.Point{
		{
			RemoteID: "deck-1",
			Index:    1,
			ChunkID:  1,
			Vectors: map[domain.VectorKind][]float32{
				domain.VectorText: {0.1, 0.2},
			},
			Payload: domain.PointPayload{
				RemoteID:  "deck-1",
				DeckName:  "Roadmap.pptx",
				SlideNo:   1,
				Text:      "Welcome",
				IndexedAt: time.Now().UTC(),
			},
		},
	}

	err := idx.Replace(context.Background(), "deck-1", points)
	require.NoError(t, err)

	require.Len(t, *requests, 2)

	del := (*requests)[0]
	assert.Equal(t, http.MethodPost, del.Method)
	assert.Equal(t, "/collections/slides/points/delete", del.Path)
	assert.Equal(t, "wait=true", del.Query)
	must := del.Body["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "remote_id", cond["key"])
	assert.Equal(t, "deck-1", cond["match"].(map[string]any)["value"])

	put := (*requests)[1]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "/collections/slides/points", put.Path)
	assert.Equal(t, "wait=true", put.Query)

	sent := put.Body["points"].([]any)
	require.Len(t, sent, 1)
	point := sent[0].(map[string]any)
	assert.Equal(t, PointID("deck-1", 1, 1), point["id"])
	assert.Contains(t, point["vector"].(map[string]any), "text")
	payload := point["payload"].(map[string]any)
	assert.Equal(t, "deck-1", payload["remote_id"])
	assert.Equal(t, "Welcome", payload["text"])
}

func TestReplace_EmptyPointsDeletesOnly(t *testing.T) {
	server, requests := newTestServer(t, nil)
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	err := idx.Replace(context.Background(), "deck-1", nil)
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	assert.Equal(t, "/collections/slides/points/delete", (*requests)[0].Path)
}

func TestSearch(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"POST /collections/slides/points/search": `{
			"result": [
				{"id": "abc", "score": 0.92, "payload": {
					"remote_id": "deck-1", "deck_name": "Roadmap.pptx",
					"slide_no": 3, "text": "Q3 goals"
				}},
				{"id": "def", "score": 0.81, "payload": {
					"remote_id": "deck-2", "deck_name": "Budget.pptx",
					"slide_no": 1, "text": "Overview"
				}}
			],
			"status": "ok"
		}`,
	})
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	hits, err := idx.Search(context.Background(), domain.VectorText, []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, 0.92, hits[0].Score)
	assert.Equal(t, "deck-1", hits[0].Payload.RemoteID)
	assert.Equal(t, 3, hits[0].Payload.SlideNo)
	assert.Equal(t, "Q3 goals", hits[0].Payload.Text)
	assert.Equal(t, "Budget.pptx", hits[1].Payload.DeckName)

	req := (*requests)[0]
	vector := req.Body["vector"].(map[string]any)
	assert.Equal(t, "text", vector["name"])
	assert.Equal(t, float64(5), req.Body["limit"])
	assert.Equal(t, true, req.Body["with_payload"])
}

func TestSearch_DefaultTopK(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"POST /collections/slides/points/search": `{"result": [], "status": "ok"}`,
	})
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	_, err := idx.Search(context.Background(), domain.VectorText, []float32{0.1}, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(defaultTopK), (*requests)[0].Body["limit"])
}

func TestDoRequest_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": {"error": "wrong vector size"}}`))
	}))
	defer server.Close()

	idx := newTestIndex(t, server.URL)
	err := idx.DeleteDeck(context.Background(), "deck-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong vector size")
	assert.Contains(t, err.Error(), "400")
}

func TestDoRequest_APIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		w.Write([]byte(`{"result": true, "status": "ok"}`))
	}))
	defer server.Close()

	idx, err := NewIndex(Config{URL: server.URL, APIKey: "secret"})
	require.NoError(t, err)
	require.NoError(t, idx.DeleteDeck(context.Background(), "deck-1"))
	assert.Equal(t, "secret", gotKey)
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("deck-1", 3, 7)
	b := PointID("deck-1", 3, 7)
	c := PointID("deck-1", 3, 8)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}
