package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations are pure from the caller's perspective: no shared
// mutable state between calls, so the embedding stage may invoke them
// from multiple workers.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Batching is an internal optimisation; a batch failure must not
	// fail texts whose individual embedding would have succeeded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768).
	// This must match the vector index configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ImageEmbeddingService generates vector embeddings from rendered
// slide images. Optional: when absent, only textual vectors are
// indexed.
type ImageEmbeddingService interface {
	// EmbedImage generates a vector embedding for the image at path.
	EmbedImage(ctx context.Context, path string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Close releases resources.
	Close() error
}
