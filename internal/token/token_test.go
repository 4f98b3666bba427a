package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "masthead/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", 48*time.Hour, 30*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	raw, err := svc.GenerateAccessToken(userID, "editor@example.com", "Editor")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "editor@example.com", claims.Email)
	assert.Equal(t, "Editor", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessTokenRejectsWrongKey(t *testing.T) {
	svc := newTestService()
	other := NewService("different-key", time.Hour, time.Hour)

	raw, err := svc.GenerateAccessToken(uuid.New(), "a@b.c", "Editor")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", -time.Minute, time.Hour)

	raw, err := svc.GenerateAccessToken(uuid.New(), "a@b.c", "Editor")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.EqualError(t, err, "token expired")
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	raw, hash, expiresAt, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	assert.Equal(t, Hash(raw), hash)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), expiresAt, time.Minute)

	claims, err := svc.VerifyRefreshToken(raw)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	svc := newTestService()

	raw, err := svc.GenerateAccessToken(uuid.New(), "a@b.c", "Editor")
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestMatches(t *testing.T) {
	svc := newTestService()

	raw, hash, _, err := svc.GenerateRefreshToken(uuid.New())
	require.NoError(t, err)

	assert.True(t, Matches(raw, hash))
	assert.False(t, Matches(raw+"x", hash))
	assert.False(t, Matches(raw, ""))
}

func TestEmptyTokens(t *testing.T) {
	svc := newTestService()
	_, err := svc.VerifyAccessToken("")
	assert.Error(t, err)
	_, err = svc.VerifyRefreshToken("")
	assert.Error(t, err)
}
