package domain

import "time"

// VectorKind names one embedding representation of a slide.
type VectorKind string

const (
	// VectorText is the embedding of the slide's text and notes.
	VectorText VectorKind = "text"

	// VectorVisual is the embedding of the slide's rendered image.
	VectorVisual VectorKind = "visual"
)

// Vector is one embedding computed for a slide chunk.
type Vector struct {
	RemoteID string
	Index    int
	ChunkID  int
	Kind     VectorKind
	Values   []float32
}

// Point is one entry written to the vector index. Points are never
// mutated in place; a changed deck replaces its points wholesale.
type Point struct {
	// RemoteID, Index and ChunkID form the deterministic composite key.
	RemoteID string
	Index    int
	ChunkID  int

	// Vectors holds one or more named vectors for this point.
	Vectors map[VectorKind][]float32

	// Payload carries the searchable metadata stored alongside vectors.
	Payload PointPayload
}

// PointPayload is the metadata stored with each index point.
type PointPayload struct {
	RemoteID    string    `json:"remote_id"`
	DeckName    string    `json:"deck_name"`
	ContentHash string    `json:"content_hash"`
	SlideNo     int       `json:"slide_no"`
	Text        string    `json:"text"`
	Notes       string    `json:"notes,omitempty"`
	ImagePath   string    `json:"image_path,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// SearchHit is one ranked result from the vector index.
type SearchHit struct {
	Score   float64
	Payload PointPayload
}
