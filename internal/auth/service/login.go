package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/user"
	"masthead/internal/mfa"
	"masthead/internal/ratelimit"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
	"masthead/pkg/validation"
)

// Login runs the credential checks in a fixed order, each one
// short-circuiting: rate limit, account exists, not locked, email
// verified, account active, password, then the MFA step. Everything up
// to and including the password check answers with the same
// "invalid credentials" error so callers cannot probe which one failed.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, client string) (*models.LoginResult, error) {
	if err := s.allowAction(ctx, "login", client); err != nil {
		return nil, err
	}
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, s.failAuth(ctx, nil, client, "unknown_email")
		}
		return nil, err
	}
	now := s.now()

	if u.Locked(now) {
		s.audit(ctx, audit.ActionLoginFailed, audit.SeverityWarning, u.ID.String(), u.ID.String(), map[string]string{
			"reason": "locked", "client": client,
		})
		return nil, dErrors.NewRetryable(dErrors.CodeAccountLocked,
			"account temporarily locked after repeated failures", u.LockedUntil.Sub(now))
	}
	if !u.EmailVerified {
		return nil, s.failAuth(ctx, u, client, "email_not_verified")
	}
	if !u.Active {
		return nil, s.failAuth(ctx, u, client, "inactive")
	}

	if err := secrets.VerifyPassword(req.Password, u.PasswordHash); err != nil {
		return nil, s.recordFailedPassword(ctx, u, client)
	}

	if u.MFASetupRequired && !u.MFAEnabled {
		return &models.LoginResult{
			Message:          "multi-factor enrollment required before login",
			RequiresMFASetup: true,
		}, nil
	}

	if u.MFAEnabled {
		switch {
		case req.MFACode != "":
			counter, err := s.mfa.Verify(u.MFASecret, req.MFACode, u.MFALastUsedCounter, now)
			if err != nil {
				return nil, s.failMFA(ctx, u, client)
			}
			u.MFALastUsedCounter = counter
		case req.BackupCode != "":
			remaining, ok := mfa.ConsumeBackupCode(u.BackupCodeHashes, req.BackupCode)
			if !ok {
				return nil, s.failMFA(ctx, u, client)
			}
			u.BackupCodeHashes = remaining
		default:
			return &models.LoginResult{
				Message:     "multi-factor code required",
				RequiresMFA: true,
			}, nil
		}
		if s.metrics != nil {
			s.metrics.IncrementMFAChallenges("success")
		}
	}

	tokens, err := s.issueSession(ctx, u, client)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, ratelimit.Key{Scope: "login", Client: client}); err != nil {
			s.logger.Error("could not reset login quota", "client", client, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementLoginSuccess()
	}
	s.audit(ctx, audit.ActionLoginSucceeded, audit.SeverityInfo, u.ID.String(), u.ID.String(), map[string]string{
		"client": client,
	})
	s.logger.Info("login succeeded", "user_id", u.ID)

	return &models.LoginResult{
		Message: "login successful",
		User:    s.summarize(ctx, u),
		Tokens:  tokens,
	}, nil
}

// issueSession mints the token pair, stores the refresh hash, resets
// the failure counter and stamps the login on the account in a single
// write.
func (s *Service) issueSession(ctx context.Context, u *models.User, client string) (*models.TokenPair, error) {
	r, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, r.Name)
	if err != nil {
		return nil, err
	}
	raw, hash, refreshExpiry, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiresAt = &refreshExpiry
	u.LastLoginAt = &now
	u.LastLoginIP = client
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    now.Add(s.tokens.AccessTTL()),
	}, nil
}

// failAuth records a rejected attempt without touching the failure
// counter and returns the uniform credentials error.
func (s *Service) failAuth(ctx context.Context, u *models.User, client, reason string) error {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures(reason)
	}
	actor := ""
	if u != nil {
		actor = u.ID.String()
	}
	s.audit(ctx, audit.ActionLoginFailed, audit.SeverityWarning, actor, actor, map[string]string{
		"reason": reason, "client": client,
	})
	return errInvalidCredentials()
}

// recordFailedAttempt bumps the atomic failure counter and, at the
// threshold, transitions the account into the lockout window. Both the
// password check and the MFA step feed into the same counter.
func (s *Service) recordFailedAttempt(ctx context.Context, u *models.User, client, reason string) {
	attempts, lockedUntil, err := s.users.RecordLoginFailure(ctx, u.ID, s.policy.LockoutThreshold, s.now().Add(s.policy.LockoutDuration))
	if err != nil {
		s.logger.Error("could not record login failure", "user_id", u.ID, "error", err)
	}
	s.audit(ctx, audit.ActionLoginFailed, audit.SeverityWarning, u.ID.String(), u.ID.String(), map[string]string{
		"reason": reason, "client": client, "attempts": fmt.Sprintf("%d", attempts),
	})
	if lockedUntil != nil {
		if s.metrics != nil {
			s.metrics.IncrementAccountLockouts()
		}
		s.audit(ctx, audit.ActionAccountLocked, audit.SeverityCritical, u.ID.String(), u.ID.String(), map[string]string{
			"until": lockedUntil.Format(time.RFC3339),
		})
		s.logger.Warn("account locked", "user_id", u.ID, "until", lockedUntil)
	}
}

func (s *Service) recordFailedPassword(ctx context.Context, u *models.User, client string) error {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures("bad_password")
	}
	s.recordFailedAttempt(ctx, u, client, "bad_password")
	return errInvalidCredentials()
}

func (s *Service) failMFA(ctx context.Context, u *models.User, client string) error {
	if s.metrics != nil {
		s.metrics.IncrementMFAChallenges("failure")
	}
	s.audit(ctx, audit.ActionMFAFailed, audit.SeverityWarning, u.ID.String(), u.ID.String(), map[string]string{
		"client": client,
	})
	s.recordFailedAttempt(ctx, u, client, "bad_mfa_code")
	return dErrors.New(dErrors.CodeUnauthorized, "invalid multi-factor code")
}
