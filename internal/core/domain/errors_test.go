package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentError(t *testing.T) {
	err := Contentf("slide %d is unrenderable", 3)

	assert.True(t, IsContent(err))
	assert.Contains(t, err.Error(), "content error")
	assert.Contains(t, err.Error(), "slide 3")

	// Survives wrapping.
	wrapped := fmt.Errorf("render deck: %w", err)
	assert.True(t, IsContent(wrapped))

	assert.False(t, IsContent(errors.New("plain")))
	assert.False(t, IsContent(nil))
}

func TestSystemicError(t *testing.T) {
	cause := errors.New("ledger unavailable")
	err := Systemic(cause)

	assert.True(t, IsSystemic(err))
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("run batch: %w", err)
	assert.True(t, IsSystemic(wrapped))

	assert.Nil(t, Systemic(nil))
	assert.False(t, IsSystemic(errors.New("plain")))
}

func TestBatchMetrics_FailureRate(t *testing.T) {
	m := BatchMetrics{Processed: 20, Failed: 3}
	assert.InDelta(t, 0.15, m.FailureRate(), 1e-9)

	assert.Zero(t, BatchMetrics{}.FailureRate())
}
