package domain

import (
	"fmt"
	"time"
)

// Deck identifies a presentation document on the remote source.
// RemoteID is assigned by the source and stable across renames;
// ContentHash is computed once the bytes are staged locally and is
// the authoritative identity for index entries.
type Deck struct {
	// RemoteID is the source-assigned stable identifier.
	RemoteID string

	// Name is the human-readable file name.
	Name string

	// ModifiedAt is the remote last-modified timestamp.
	// Used only as a cheap change pre-filter; timestamps from remote
	// systems are not trusted as the final word on change.
	ModifiedAt time.Time

	// Size is the remote byte size.
	Size int64

	// ContentHash is the hash of the deck bytes, empty until downloaded.
	ContentHash string
}

// Slide is one extracted content unit of a deck. Slides keep their
// source order because ordering affects downstream comprehension.
type Slide struct {
	// RemoteID links back to the owning deck.
	RemoteID string

	// Index is the 1-based slide number.
	Index int

	// Text is the cleaned body text of the slide.
	Text string

	// Notes is the cleaned speaker-notes text.
	Notes string

	// ChunkID distinguishes chunks when a slide's text is split.
	// Zero for the default single chunk.
	ChunkID int
}

// SlideImage is a rendered visual artifact for one slide.
type SlideImage struct {
	// RemoteID links back to the owning deck.
	RemoteID string

	// Index is the 1-based slide number.
	Index int

	// Path is the location of the rendered image on disk.
	Path string
}

// SlideImageName returns the deterministic file name for a rendered
// slide. Renderers and resume logic must agree on this convention.
func SlideImageName(index int) string {
	return fmt.Sprintf("slide_%04d.png", index)
}
