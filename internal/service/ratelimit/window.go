package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ProScalper/pkg/cache"
)

// WindowLimiter allows limit requests per key within each fixed window.
// Backed by a shared counter store so replicas enforce one budget.
type WindowLimiter struct {
	counter cache.Counter
	limit   int64
	window  time.Duration
}

var _ Limiter = (*WindowLimiter)(nil)

func NewWindowLimiter(counter cache.Counter, limit int64, window time.Duration) *WindowLimiter {
	return &WindowLimiter{counter: counter, limit: limit, window: window}
}

// Allow counts the request; a refused key waits until its window resets.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	n, left, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit incr: %w", err)
	}
	if n <= l.limit {
		return true, 0, nil
	}
	return false, left, nil
}
