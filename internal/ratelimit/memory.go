package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements Limiter with an in-process sliding window.
// For multi-replica deployments, use RedisLimiter instead.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records an attempt against the key's sliding window.
func (l *MemoryLimiter) Allow(_ context.Context, key Key) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[key.String()]
	if !ok {
		bucket = &slidingWindow{}
		l.buckets[key.String()] = bucket
	}
	bucket.dropExpired(now.Add(-l.window))

	if len(bucket.timestamps) >= l.limit {
		resetAt := bucket.timestamps[0].Add(l.window)
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(false, resetAt, now),
		}, nil
	}

	bucket.timestamps = append(bucket.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(bucket.timestamps),
		ResetAt:   bucket.timestamps[0].Add(l.window),
	}, nil
}

// Reset clears the window for a key.
func (l *MemoryLimiter) Reset(_ context.Context, key Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key.String())
	return nil
}

// Purge drops windows with no live entries. Called by the cleanup worker to
// keep long-running processes from accumulating dead keys.
func (l *MemoryLimiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for key, bucket := range l.buckets {
		bucket.dropExpired(cutoff)
		if len(bucket.timestamps) == 0 {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (sw *slidingWindow) dropExpired(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
