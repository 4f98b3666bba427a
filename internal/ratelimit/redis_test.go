package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, limit, window), mr
}

func TestRedisLimiterAllows(t *testing.T) {
	l, _ := newRedisLimiter(t, 3, time.Minute)
	key := Key{Scope: "login", Client: "10.0.0.1"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	l, mr := newRedisLimiter(t, 1, time.Minute)
	key := Key{Scope: "login", Client: "a@b.c"}
	ctx := context.Background()

	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)

	res, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiterReset(t *testing.T) {
	l, _ := newRedisLimiter(t, 1, time.Minute)
	key := Key{Scope: "login", Client: "x"}
	ctx := context.Background()

	_, err := l.Allow(ctx, key)
	require.NoError(t, err)
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, key))

	res, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiterScopesIsolated(t *testing.T) {
	l, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, Key{Scope: "login", Client: "one"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, Key{Scope: "request", Client: "one"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
