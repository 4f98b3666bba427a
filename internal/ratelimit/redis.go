package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "masthead/pkg/domain-errors"
)

// RedisLimiter implements Limiter with a fixed window counter shared across
// replicas: INCR the key, stamp the TTL on first increment, reject once the
// count exceeds the limit.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow records an attempt against the key's window.
func (l *RedisLimiter) Allow(ctx context.Context, key Key) (Result, error) {
	k := key.String()

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit increment failed")
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit expiry failed")
		}
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	now := time.Now()
	resetAt := now.Add(ttl)

	if count > int64(l.limit) {
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(false, resetAt, now),
		}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for a key.
func (l *RedisLimiter) Reset(ctx context.Context, key Key) error {
	if err := l.client.Del(ctx, key.String()).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit reset failed")
	}
	return nil
}
