package services

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Slot is an explicit exclusive-resource handle: at most one holder
// process-wide, regardless of how many decks are otherwise ready.
// The rendering stage passes every request through one Slot shared by
// the whole pipeline, making the mutual exclusion a testable invariant
// rather than implicit process-wide locking.
type Slot struct {
	sem *semaphore.Weighted
}

// NewSlot creates a single-holder slot.
func NewSlot() *Slot {
	return &Slot{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the slot is free or ctx is cancelled.
func (s *Slot) Acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// Release frees the slot. Must be called exactly once per successful
// Acquire, on every exit path including cancellation.
func (s *Slot) Release() {
	s.sem.Release(1)
}

// TryAcquire acquires the slot without blocking.
func (s *Slot) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}
