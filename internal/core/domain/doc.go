// Package domain defines the core business entities for Deckhand.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Deck: A presentation document as listed by a remote source
//   - Record: The ledger's per-deck processing state
//   - Slide: One extracted content unit of a deck
//   - Point: One index entry written to the vector index
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
