package service

import (
	"context"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/mfa"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
	"masthead/pkg/validation"
)

// SetupMFA generates a pending secret for the account and returns the
// enrollment payload. The account stays in the setup-pending state
// until a code verifies against the secret.
func (s *Service) SetupMFA(ctx context.Context, userID uuid.UUID) (*models.MFAEnrollmentResult, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.MFAEnabled {
		return nil, dErrors.New(dErrors.CodeConflict, "multi-factor authentication is already enabled")
	}

	enrollment, err := s.mfa.BeginEnrollment(u.Email)
	if err != nil {
		return nil, err
	}

	// Persisting the pending secret is the one step that must not fail;
	// without it the user's authenticator and the server disagree.
	u.MFAPendingSecret = enrollment.EncryptedSecret
	if err := s.users.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not persist enrollment secret")
	}

	s.audit(ctx, audit.ActionMFAEnrollStarted, audit.SeverityInfo, userID.String(), userID.String(), nil)

	return &models.MFAEnrollmentResult{
		Secret:       enrollment.SecretBase32,
		ProvisionURI: enrollment.ProvisionURI,
	}, nil
}

// VerifyMFA confirms the pending secret with a live code, enables MFA
// and hands out the single batch of backup codes.
func (s *Service) VerifyMFA(ctx context.Context, userID uuid.UUID, req models.MFAVerifyRequest) (*models.MFAEnrollmentResult, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.MFAPendingSecret == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no enrollment in progress")
	}

	counter, err := s.mfa.Verify(u.MFAPendingSecret, req.Code, u.MFALastUsedCounter, s.now())
	if err != nil {
		return nil, s.failMFA(ctx, u, "")
	}

	codes, hashes, err := mfa.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}

	u.MFAEnabled = true
	u.MFASetupRequired = false
	u.MFASecret = u.MFAPendingSecret
	u.MFAPendingSecret = ""
	u.MFALastUsedCounter = counter
	u.BackupCodeHashes = hashes
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementMFAEnrollments()
	}
	s.audit(ctx, audit.ActionMFAEnabled, audit.SeverityInfo, userID.String(), userID.String(), nil)
	s.logger.Info("mfa enabled", "user_id", u.ID)

	return &models.MFAEnrollmentResult{BackupCodes: codes}, nil
}

// DisableMFA requires both the password and a live code, then clears
// the secret and every remaining backup code.
func (s *Service) DisableMFA(ctx context.Context, userID uuid.UUID, req models.MFADisableRequest) error {
	if err := validation.Validate(req); err != nil {
		return err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.MFAEnabled {
		return dErrors.New(dErrors.CodeBadRequest, "multi-factor authentication is not enabled")
	}
	if err := secrets.VerifyPassword(req.Password, u.PasswordHash); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "password is incorrect")
	}
	if _, err := s.mfa.Verify(u.MFASecret, req.Code, u.MFALastUsedCounter, s.now()); err != nil {
		return s.failMFA(ctx, u, "")
	}

	u.MFAEnabled = false
	u.MFASetupRequired = false
	u.MFASecret = ""
	u.MFAPendingSecret = ""
	u.MFALastUsedCounter = 0
	u.BackupCodeHashes = nil
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.audit(ctx, audit.ActionMFADisabled, audit.SeverityWarning, userID.String(), userID.String(), nil)
	s.logger.Info("mfa disabled", "user_id", u.ID)
	return nil
}
