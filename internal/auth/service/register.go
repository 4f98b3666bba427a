package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/user"
	"masthead/internal/rbac"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
	"masthead/pkg/validation"
)

const verificationCodeDigits = 6

// Register creates an unverified account and issues a one-time email
// verification code. No session is returned until the address is
// confirmed.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, client string) (*models.RegisterResult, error) {
	if err := s.allowAction(ctx, "register", client); err != nil {
		return nil, err
	}
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if !req.AcceptedTerms {
		return nil, dErrors.New(dErrors.CodeValidation, "terms of service must be accepted")
	}

	defaultRole, err := s.roles.FindByName(ctx, rbac.RegistrationRole)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registration role is not configured")
	}

	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       defaultRole.ID,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email or username already registered")
		}
		return nil, err
	}

	if err := s.issueVerificationCode(ctx, u.Email); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersRegistered()
	}
	s.audit(ctx, audit.ActionUserRegistered, audit.SeverityInfo, u.ID.String(), u.ID.String(), map[string]string{
		"email": u.Email,
	})
	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)

	return &models.RegisterResult{
		Message: "registration accepted, check your email for the verification code",
		User:    s.summarize(ctx, u),
	}, nil
}

// VerifyEmail consumes the one-time code and, on success, issues the
// first session for the account.
func (s *Service) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest, client string) (*models.LoginResult, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	ok, err := s.otps.Consume(ctx, req.Email, secrets.HashSHA256(req.Code))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "verification code is invalid or expired")
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "verification code is invalid or expired")
		}
		return nil, err
	}

	u.EmailVerified = true
	tokens, err := s.issueSession(ctx, u, client)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.ActionEmailVerified, audit.SeverityInfo, u.ID.String(), u.ID.String(), nil)
	s.logger.Info("email verified", "user_id", u.ID)

	return &models.LoginResult{
		Message: "email verified",
		User:    s.summarize(ctx, u),
		Tokens:  tokens,
	}, nil
}

// ResendCode re-issues the verification code. The response does not
// reveal whether the address is registered.
func (s *Service) ResendCode(ctx context.Context, req models.ResendCodeRequest, client string) (string, error) {
	const message = "if the address is registered and unverified, a new code has been sent"

	if err := s.allowAction(ctx, "register", client); err != nil {
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
	if u.EmailVerified {
		return message, nil
	}
	if err := s.issueVerificationCode(ctx, u.Email); err != nil {
		return "", err
	}
	return message, nil
}

func (s *Service) issueVerificationCode(ctx context.Context, email string) error {
	code, err := secrets.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return err
	}
	if err := s.otps.Put(ctx, email, secrets.HashSHA256(code), s.policy.VerificationCodeTTL); err != nil {
		return err
	}
	return s.sender.SendVerificationCode(ctx, email, code)
}
