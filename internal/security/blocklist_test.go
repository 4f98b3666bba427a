package security

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBlocklistMatch(t *testing.T) {
	ctx := context.Background()
	bl := NewInMemoryBlocklist()

	require.NoError(t, bl.Add(ctx, &BlockEntry{
		CIDR:   netip.MustParsePrefix("203.0.113.0/24"),
		Reason: "scanner",
		Source: "manual",
	}))

	entry, err := bl.Match(ctx, netip.MustParseAddr("203.0.113.200"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "scanner", entry.Reason)

	entry, err = bl.Match(ctx, netip.MustParseAddr("198.51.100.1"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestInMemoryBlocklistExpiry(t *testing.T) {
	ctx := context.Background()
	bl := NewInMemoryBlocklist()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, bl.Add(ctx, &BlockEntry{
		CIDR:      netip.MustParsePrefix("203.0.113.7/32"),
		Reason:    "stale",
		ExpiresAt: &past,
	}))

	entry, err := bl.Match(ctx, netip.MustParseAddr("203.0.113.7"))
	require.NoError(t, err)
	assert.Nil(t, entry, "expired entries must not match")

	removed, err := bl.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := bl.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	token, err := IssueCSRFToken(key)
	require.NoError(t, err)
	assert.True(t, ValidCSRFToken(key, token))
	assert.False(t, ValidCSRFToken([]byte("another-key-entirely-32-bytes!!!"), token))
	assert.False(t, ValidCSRFToken(key, "malformed"))
	assert.False(t, ValidCSRFToken(key, token+"0"))
}
