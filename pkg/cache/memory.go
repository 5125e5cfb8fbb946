package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	count    int64
	expireAt time.Time
}

// MemoryCounter implements Counter in process memory.
type MemoryCounter struct {
	mu            sync.Mutex
	data          map[string]*memoryItem
	now           func() time.Time
	sweepEvery    time.Duration
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

var _ Counter = (*MemoryCounter)(nil)

// MemoryOption configures NewMemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithMemoryCleanup sets how often expired keys are swept.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(mc *MemoryCounter) {
		if interval > 0 {
			mc.sweepEvery = interval
		}
	}
}

// WithMemoryClock replaces time.Now.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(mc *MemoryCounter) {
		if now != nil {
			mc.now = now
		}
	}
}

// NewMemoryCounter creates an in-memory counter store.
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	mc := &MemoryCounter{
		data:       make(map[string]*memoryItem),
		now:        time.Now,
		sweepEvery: time.Minute,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	mc.cleanupTicker = time.NewTicker(mc.sweepEvery)
	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := mc.now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.data[key]
	if !ok || !now.Before(item.expireAt) {
		item = &memoryItem{expireAt: now.Add(window)}
		mc.data[key] = item
	}
	item.count++
	return item.count, item.expireAt.Sub(now), nil
}

// Len returns the number of tracked keys, including expired ones not yet swept.
func (mc *MemoryCounter) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

func (mc *MemoryCounter) sweep() {
	now := mc.now()
	mc.mu.Lock()
	for key, item := range mc.data {
		if !now.Before(item.expireAt) {
			delete(mc.data, key)
		}
	}
	mc.mu.Unlock()
}

func (mc *MemoryCounter) cleanupExpired() {
	for {
		select {
		case <-mc.cleanupTicker.C:
			mc.sweep()
		case <-mc.done:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCounter) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}
