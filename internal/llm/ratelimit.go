package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errLimiterClosed = errors.New("rate limiter closed")

// rateLimiter is a token bucket holding up to one minute of requests. Tokens
// accrue continuously from the elapsed time, so no goroutine is needed.
type rateLimiter struct {
	last      time.Time
	now       func() time.Time
	closed    chan struct{}
	interval  time.Duration
	tokens    float64
	capacity  float64
	mu        sync.Mutex
	closeOnce sync.Once
}

// newRateLimiter allows requestsPerMinute requests per minute, 60 when the
// value is not positive. The bucket starts full.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimiter{
		now:      time.Now,
		last:     time.Now(),
		closed:   make(chan struct{}),
		interval: time.Minute / time.Duration(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		capacity: float64(requestsPerMinute),
	}
}

// wait blocks until a token is available, ctx ends or the limiter closes.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		select {
		case <-rl.closed:
			return errLimiterClosed
		default:
		}

		delay := rl.reserve()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-rl.closed:
			timer.Stop()
			return errLimiterClosed
		case <-timer.C:
		}
	}
}

// tryAcquire takes a token if one is available.
func (rl *rateLimiter) tryAcquire() bool {
	return rl.reserve() == 0
}

// reserve takes a token and returns zero, or returns how long until the
// next token accrues.
func (rl *rateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.last); elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+float64(elapsed)/float64(rl.interval))
	}
	rl.last = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration((1 - rl.tokens) * float64(rl.interval))
}

// Close wakes every waiter with an error. Later waits fail immediately.
func (rl *rateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.closed) })
}
