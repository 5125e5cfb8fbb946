package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter implements Counter using INCR with a first-write expiry, so
// every replica shares one window per key.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

var _ Counter = (*RedisCounter)(nil)

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(opts ...RedisOption) (*RedisCounter, error) {
	s := defaultRedisSettings()
	for _, opt := range opts {
		opt(s)
	}

	client := redis.NewClient(s.clientOptions())

	ctx, cancel := context.WithTimeout(context.Background(), s.pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", s.addr, err)
	}

	return NewRedisCounterWithClient(client, s.prefix), nil
}

// NewRedisCounterWithClient wraps an existing client.
func NewRedisCounterWithClient(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	key = c.wrapKey(key)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	left := ttl.Val()
	// negative when the key has no expiry
	if left <= 0 {
		left = window
	}
	return incr.Val(), left, nil
}

// Close closes the Redis connection.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

func (c *RedisCounter) wrapKey(key string) string {
	return fmt.Sprintf("%s:rl:%s", c.prefix, key)
}
