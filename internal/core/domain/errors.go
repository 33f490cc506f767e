package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a ledger status change that the
	// state machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIngestInProgress indicates an ingest run is already active.
	ErrIngestInProgress = errors.New("ingest in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Nothing can be indexed or searched without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ContentError marks a failure caused by the document itself: a
// malformed deck, an unrenderable slide. Content errors are never
// retried; the deck is failed immediately with the captured message.
type ContentError struct {
	Err error
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("content error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ContentError) Unwrap() error { return e.Err }

// Contentf wraps a formatted message as a ContentError.
func Contentf(format string, args ...any) error {
	return &ContentError{Err: fmt.Errorf(format, args...)}
}

// IsContent reports whether err is (or wraps) a ContentError.
func IsContent(err error) bool {
	var ce *ContentError
	return errors.As(err, &ce)
}

// SystemicError marks a failure that affects correctness for every
// deck: the ledger is unavailable, the index is unreachable. Systemic
// errors abort the batch instead of failing individual decks.
type SystemicError struct {
	Err error
}

// Error implements the error interface.
func (e *SystemicError) Error() string {
	return fmt.Sprintf("systemic error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *SystemicError) Unwrap() error { return e.Err }

// Systemic wraps err as a SystemicError. Returns nil for nil.
func Systemic(err error) error {
	if err == nil {
		return nil
	}
	return &SystemicError{Err: err}
}

// IsSystemic reports whether err is (or wraps) a SystemicError.
func IsSystemic(err error) bool {
	var se *SystemicError
	return errors.As(err, &se)
}
