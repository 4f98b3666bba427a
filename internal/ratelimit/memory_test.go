package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllows(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	key := Key{Scope: "login", Client: "10.0.0.1"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Positive(t, res.RetryAfter)
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }

	key := Key{Scope: "login", Client: "a@b.c"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// one attempt ages out, freeing one slot
	current = current.Add(61 * time.Second)
	res, err = l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, Key{Scope: "login", Client: "one"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, Key{Scope: "login", Client: "two"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// same client, different scope
	res, err = l.Allow(ctx, Key{Scope: "request", Client: "one"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterReset(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
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

func TestMemoryLimiterPurge(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := l.Allow(ctx, Key{Scope: "login", Client: "stale"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = l.Allow(ctx, Key{Scope: "login", Client: "fresh"})
	require.NoError(t, err)

	assert.Equal(t, 1, l.Purge())
}
