package cleanup

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	otpStore "masthead/internal/auth/store/otp"
	userStore "masthead/internal/auth/store/user"
	"masthead/internal/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCleanupService_RunOnce_Integration(t *testing.T) {
	ctx := context.Background()

	users := userStore.NewInMemoryStore()
	codes := otpStore.NewInMemoryStore()
	trail := audit.NewInMemoryStore()
	blocklist := security.NewInMemoryBlocklist()

	staleExpiry := time.Now().Add(-1 * time.Hour)
	staleUser := &models.User{
		ID:                  uuid.New(),
		Email:               "stale@example.com",
		Username:            "stale",
		RoleID:              uuid.New(),
		Active:              true,
		ResetTokenHash:      "deadbeef",
		ResetTokenExpiresAt: &staleExpiry,
	}
	require.NoError(t, users.Create(ctx, staleUser))

	freshExpiry := time.Now().Add(5 * time.Minute)
	freshUser := &models.User{
		ID:                  uuid.New(),
		Email:               "fresh@example.com",
		Username:            "fresh",
		RoleID:              uuid.New(),
		Active:              true,
		ResetTokenHash:      "cafef00d",
		ResetTokenExpiresAt: &freshExpiry,
	}
	require.NoError(t, users.Create(ctx, freshUser))

	require.NoError(t, codes.Put(ctx, "stale@example.com", "aaaa", -time.Minute))
	require.NoError(t, codes.Put(ctx, "fresh@example.com", "bbbb", 10*time.Minute))

	require.NoError(t, trail.Append(ctx, audit.Record{
		ID:        uuid.New(),
		Timestamp: time.Now().Add(-120 * 24 * time.Hour),
		Action:    audit.ActionLoginFailed,
		Severity:  audit.SeverityWarning,
	}))
	require.NoError(t, trail.Append(ctx, audit.Record{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Action:    audit.ActionLoginSucceeded,
		Severity:  audit.SeverityInfo,
	}))

	expiredBlock := time.Now().Add(-1 * time.Minute)
	require.NoError(t, blocklist.Add(ctx, &security.BlockEntry{
		ID:        uuid.New(),
		CIDR:      netip.MustParsePrefix("203.0.113.0/24"),
		Reason:    "scanner",
		ExpiresAt: &expiredBlock,
	}))
	require.NoError(t, blocklist.Add(ctx, &security.BlockEntry{
		ID:     uuid.New(),
		CIDR:   netip.MustParsePrefix("198.51.100.0/24"),
		Reason: "abuse",
	}))

	svc, err := New(users, codes, trail, blocklist, WithCleanupInterval(10*time.Second))
	require.NoError(t, err)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.DeletedResetTokens)
	require.Equal(t, 1, res.DeletedVerificationCodes)
	require.Equal(t, 1, res.DeletedAuditRecords)
	require.Equal(t, 1, res.DeletedBlockEntries)

	// The stale token is gone but the fresh one survives.
	cleared, err := users.FindByID(ctx, staleUser.ID)
	require.NoError(t, err)
	require.Empty(t, cleared.ResetTokenHash)

	kept, err := users.FindByResetTokenHash(ctx, "cafef00d")
	require.NoError(t, err)
	require.Equal(t, freshUser.ID, kept.ID)

	ok, err := codes.Consume(ctx, "fresh@example.com", "bbbb")
	require.NoError(t, err)
	require.True(t, ok)

	entries, err := blocklist.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "abuse", entries[0].Reason)
}

func TestCleanupService_OptionalStores(t *testing.T) {
	svc, err := New(userStore.NewInMemoryStore(), otpStore.NewInMemoryStore(), nil, nil)
	require.NoError(t, err)

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.DeletedAuditRecords)
	require.Zero(t, res.DeletedBlockEntries)
}

func TestCleanupService_RequiresStores(t *testing.T) {
	_, err := New(nil, otpStore.NewInMemoryStore(), nil, nil)
	require.Error(t, err)
}
