package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masthead/pkg/secrets"
)

func TestMemoryStoreConsume(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	hash := secrets.HashSHA256("123456")

	require.NoError(t, store.Put(ctx, "Ada@Example.com", hash, 10*time.Minute))

	ok, err := store.Consume(ctx, "ada@example.com", secrets.HashSHA256("000000"))
	require.NoError(t, err)
	assert.False(t, ok, "wrong code must not consume")

	ok, err = store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.False(t, ok, "a code is single use")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	hash := secrets.HashSHA256("123456")
	require.NoError(t, store.Put(ctx, "ada@example.com", hash, 10*time.Minute))

	now = now.Add(11 * time.Minute)
	ok, err := store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "old@example.com", "h1", time.Minute))
	require.NoError(t, store.Put(ctx, "new@example.com", "h2", time.Hour))

	now = now.Add(2 * time.Minute)
	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestRedisStoreConsume(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	hash := secrets.HashSHA256("123456")

	require.NoError(t, store.Put(ctx, "ada@example.com", hash, 10*time.Minute))

	ok, err := store.Consume(ctx, "ada@example.com", secrets.HashSHA256("000000"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	hash := secrets.HashSHA256("123456")

	require.NoError(t, store.Put(ctx, "ada@example.com", hash, 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	ok, err := store.Consume(ctx, "ada@example.com", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
