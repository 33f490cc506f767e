// Package chunker splits oversized slide text into fixed-size chunks.
package chunker

import (
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits slides whose text exceeds the chunk size into
// multiple slides sharing the same index, distinguished by ChunkID.
// Most slides fit in one chunk and pass through untouched.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split expands oversized slides into chunked copies. Speaker notes
// stay on the first chunk only, so they are embedded once per slide.
func (c *Chunker) Split(slides []domain.Slide) []domain.Slide {
	out := make([]domain.Slide, 0, len(slides))
	for _, slide := range slides {
		if len(slide.Text) <= c.chunkSize {
			out = append(out, slide)
			continue
		}
		out = append(out, c.split(slide)...)
	}
	return out
}

func (c *Chunker) split(slide domain.Slide) []domain.Slide {
	text := slide.Text
	step := c.chunkSize - c.overlap

	chunks := make([]domain.Slide, 0, len(text)/step+1)
	for start := 0; start < len(text); start += step {
		end := min(start+c.chunkSize, len(text))

		chunk := slide
		chunk.Text = text[start:end]
		chunk.ChunkID = len(chunks)
		if chunk.ChunkID > 0 {
			chunk.Notes = ""
		}
		chunks = append(chunks, chunk)

		if end == len(text) {
			break
		}
	}
	return chunks
}
