package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/user"
	"masthead/internal/token"
	dErrors "masthead/pkg/domain-errors"
)

// errRefreshInvalid deliberately covers forged, expired, and revoked
// tokens with one message so callers get no oracle.
func errRefreshInvalid() error {
	return dErrors.New(dErrors.CodeUnauthorized, "refresh token expired or invalid")
}

// Refresh verifies the presented refresh token against the stored
// hash and rotates it: the caller gets a fresh pair and the old token
// is dead. A token that verifies but no longer matches the stored
// hash was already spent, which means it leaked; every session for
// the account is revoked on the spot.
func (s *Service) Refresh(ctx context.Context, raw string) (*models.TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(raw)
	if err != nil {
		return nil, errRefreshInvalid()
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errRefreshInvalid()
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, errRefreshInvalid()
		}
		return nil, err
	}
	now := s.now()
	if !u.Active || u.RefreshTokenHash == "" ||
		(u.RefreshTokenExpiresAt != nil && now.After(*u.RefreshTokenExpiresAt)) {
		return nil, errRefreshInvalid()
	}

	if !token.Matches(raw, u.RefreshTokenHash) {
		return nil, s.handleRefreshReuse(ctx, u)
	}

	newRaw, newHash, refreshExpiry, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	// The swap re-checks the hash so two concurrent rotations cannot
	// both win.
	if err := s.users.SwapRefreshHash(ctx, u.ID, token.Hash(raw), newHash, &refreshExpiry); err != nil {
		if errors.Is(err, user.ErrRefreshMismatch) {
			return nil, s.handleRefreshReuse(ctx, u)
		}
		return nil, err
	}

	r, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, r.Name)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTokenRefreshes()
	}
	s.audit(ctx, audit.ActionTokenRefreshed, audit.SeverityInfo, u.ID.String(), u.ID.String(), nil)

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: newRaw,
		ExpiresAt:    now.Add(s.tokens.AccessTTL()),
	}, nil
}

// handleRefreshReuse revokes the live session after a stale token was
// presented: the legitimate holder re-authenticates, the thief holds
// nothing.
func (s *Service) handleRefreshReuse(ctx context.Context, u *models.User) error {
	if err := s.users.SwapRefreshHash(ctx, u.ID, u.RefreshTokenHash, "", nil); err != nil &&
		!errors.Is(err, user.ErrRefreshMismatch) {
		s.logger.Error("could not revoke session after refresh reuse", "user_id", u.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementRefreshReuse()
	}
	s.audit(ctx, audit.ActionTokenReuse, audit.SeverityCritical, u.ID.String(), u.ID.String(), nil)
	s.logger.Warn("refresh token reuse detected, sessions revoked", "user_id", u.ID)
	return errRefreshInvalid()
}

// Logout revokes the stored refresh hash so the refresh token dies
// server-side along with the client cookies.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.RefreshTokenHash != "" {
		if err := s.users.SwapRefreshHash(ctx, u.ID, u.RefreshTokenHash, "", nil); err != nil &&
			!errors.Is(err, user.ErrRefreshMismatch) {
			return err
		}
	}
	s.audit(ctx, audit.ActionLogout, audit.SeverityInfo, userID.String(), userID.String(), nil)
	return nil
}
