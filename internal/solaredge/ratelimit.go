package solaredge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const quotaWindow = 24 * time.Hour

// DefaultDailyLimit is the upstream per-account quota of requests per day.
const DefaultDailyLimit = 300

// RateLimiter bounds in-flight requests and caps requests in any trailing 24 hour window.
// The quota is checked before a concurrency slot is taken, so a rejected caller never holds a slot.
type RateLimiter struct {
	dailyLimit int
	slots      chan struct{}
	pacer      *rate.Limiter

	mu       sync.Mutex
	requests []time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter. requestsPerSecond <= 0 disables pacing,
// dailyLimit <= 0 means DefaultDailyLimit.
func NewRateLimiter(maxConcurrent, dailyLimit int, requestsPerSecond float64) *RateLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	r := &RateLimiter{
		dailyLimit: dailyLimit,
		slots:      make(chan struct{}, maxConcurrent),
		now:        time.Now,
	}
	if requestsPerSecond > 0 {
		r.pacer = rate.NewLimiter(rate.Limit(requestsPerSecond), maxConcurrent)
	}
	return r
}

// Acquire waits for a free slot. It fails immediately with *RateLimitExceededError
// when the daily quota is already used up.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	r.prune()
	if len(r.requests) >= r.dailyLimit {
		resetAt := r.requests[0].Add(quotaWindow)
		r.mu.Unlock()
		return &RateLimitExceededError{Limit: r.dailyLimit, ResetAt: resetAt}
	}
	r.mu.Unlock()

	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if r.pacer != nil {
		if err := r.pacer.Wait(ctx); err != nil {
			<-r.slots
			return err
		}
	}
	return nil
}

// Release records the completed request and frees its slot.
func (r *RateLimiter) Release() {
	r.mu.Lock()
	r.requests = append(r.requests, r.now())
	r.mu.Unlock()
	<-r.slots
}

// Do runs fn between Acquire and Release. Release happens on every exit path.
func (r *RateLimiter) Do(ctx context.Context, fn func() error) error {
	if err := r.Acquire(ctx); err != nil {
		return err
	}
	defer r.Release()
	return fn()
}

// RequestsToday is the number of requests in the trailing 24 hours.
func (r *RateLimiter) RequestsToday() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	return len(r.requests)
}

// RemainingRequests is the quota left in the trailing 24 hours, never negative.
func (r *RateLimiter) RemainingRequests() int {
	remaining := r.dailyLimit - r.RequestsToday()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DailyLimit returns the configured quota.
func (r *RateLimiter) DailyLimit() int {
	return r.dailyLimit
}

// prune drops timestamps older than the quota window. Callers hold mu.
func (r *RateLimiter) prune() {
	cutoff := r.now().Add(-quotaWindow)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.requests = append(r.requests[:0], r.requests[i:]...)
	}
}
