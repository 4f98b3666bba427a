package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/user"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
	"masthead/pkg/validation"
)

const resetTokenBytes = 32

// ForgotPassword answers identically whether or not the address is
// registered. When it is, a high-entropy reset token is stored as a
// hash with a short expiry and the raw value goes out of band.
func (s *Service) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, client string) (string, error) {
	const message = "if an account with that email exists, a reset link has been sent"

	if err := s.allowAction(ctx, "forgot_password", client); err != nil {
		return "", err
	}
	if err := validation.Validate(req); err != nil {
		return "", err
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return message, nil
		}
		return "", err
	}

	raw, err := secrets.GenerateToken(resetTokenBytes)
	if err != nil {
		return "", err
	}
	expiry := s.now().Add(s.policy.ResetTokenTTL)
	u.ResetTokenHash = secrets.HashSHA256(raw)
	u.ResetTokenExpiresAt = &expiry
	if err := s.users.Update(ctx, u); err != nil {
		return "", err
	}
	if err := s.sender.SendPasswordReset(ctx, u.Email, raw); err != nil {
		return "", err
	}

	s.audit(ctx, audit.ActionPasswordForgot, audit.SeverityInfo, u.ID.String(), u.ID.String(), map[string]string{
		"client": client,
	})
	return message, nil
}

// ResetPassword spends the single-use token, sets the new password and
// revokes every live session for the account.
func (s *Service) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := validation.Validate(req); err != nil {
		return err
	}

	u, err := s.users.FindByResetTokenHash(ctx, secrets.HashSHA256(req.Token))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "reset token is invalid or expired")
		}
		return err
	}
	if u.ResetTokenExpiresAt == nil || s.now().After(*u.ResetTokenExpiresAt) {
		return dErrors.New(dErrors.CodeUnauthorized, "reset token is invalid or expired")
	}

	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	s.revokeSessionFields(u)
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementPasswordResets()
	}
	s.audit(ctx, audit.ActionPasswordReset, audit.SeverityWarning, u.ID.String(), u.ID.String(), nil)
	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}

// ChangePassword re-verifies the current password before replacing it
// and forces re-login everywhere.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req models.ChangePasswordRequest) error {
	if err := validation.Validate(req); err != nil {
		return err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := secrets.VerifyPassword(req.CurrentPassword, u.PasswordHash); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := secrets.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	s.revokeSessionFields(u)
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.audit(ctx, audit.ActionPasswordChanged, audit.SeverityInfo, userID.String(), userID.String(), nil)
	return nil
}

func (s *Service) revokeSessionFields(u *models.User) {
	u.RefreshTokenHash = ""
	u.RefreshTokenExpiresAt = nil
}

// PurgeExpiredResetTokens clears reset tokens past their expiry. The
// cleanup worker calls this on a schedule.
func (s *Service) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	return s.users.DeleteExpiredResetTokens(ctx, now)
}
