package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/user"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/validation"
)

// Profile returns the sanitized account view for the caller.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, u), nil
}

// UpdateProfile applies the provided fields to the caller's account.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.UserSummary, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, err
	}

	s.audit(ctx, audit.ActionUserUpdated, audit.SeverityInfo, userID.String(), userID.String(), nil)
	return s.summarize(ctx, u), nil
}
