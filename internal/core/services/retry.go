package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// RetryPolicy is the single retry configuration applied across stages.
// Transient errors are retried with capped exponential backoff;
// content and systemic errors fail immediately.
type RetryPolicy struct {
	// MaxAttempts is the total attempt cap, first try included.
	MaxAttempts int

	// BaseDelay is the initial backoff delay, doubled per attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy mirrors the download stage defaults: three
// attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// Do runs fn under the policy and reports how many retries were
// consumed. fn failures are retried unless the error is a content or
// systemic error, or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (retries int, err error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		fnErr := fn(ctx)
		if fnErr == nil {
			return nil
		}
		if domain.IsContent(fnErr) || domain.IsSystemic(fnErr) || ctx.Err() != nil {
			return fnErr
		}
		retries++
		return retry.RetryableError(fnErr)
	})

	if err != nil && retries > 0 {
		// The last attempt failed too; it was counted as a retry
		// candidate but never re-run.
		retries--
	}
	return retries, err
}
