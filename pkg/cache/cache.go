package cache

import (
	"context"
	"time"
)

// Counter is a store of expiring counters. The first Incr on a key starts its
// window; the key resets once the window elapses. Incr returns the new count
// and the time left until the reset.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Close() error
}
