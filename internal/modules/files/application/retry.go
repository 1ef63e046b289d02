package application

import (
	"context"
	"time"

	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how hard compensation and cleanup try to remove an object.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts uint64
	// Backoff is the first delay; each further delay doubles.
	Backoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond}
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	base := p.Backoff
	if base <= 0 {
		base = time.Millisecond
	}
	return retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
}

// removeWithRetry removes key, retrying every failure until the policy is spent.
// It returns the last error.
func removeWithRetry(ctx context.Context, objects domain.ObjectStore, key string, policy RetryPolicy) error {
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		if err := objects.Remove(ctx, key); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
