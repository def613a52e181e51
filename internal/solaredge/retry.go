package solaredge

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy retries retryable errors with exponential backoff:
// BaseDelay doubles after every attempt and is capped at MaxDelay.
// A call makes at most MaxRetries+1 attempts.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy is 3 retries starting at 2s, capped at 60s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

// Do runs fn until it succeeds, returns a non-retryable error, attempts run out or ctx is done.
// The last error is returned unchanged. notify, if set, is called before every wait.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, notify func(attempt int, err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}
	}

	return backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx), onRetry)
}
