package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/role"
	"masthead/internal/auth/store/user"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
	"masthead/pkg/validation"
)

// AdminCreateUser provisions an account directly: pre-verified, active,
// with the assigned role.
func (s *Service) AdminCreateUser(ctx context.Context, actor *models.Principal, req models.AdminCreateUserRequest) (*models.UserSummary, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	r, err := s.roles.FindByID(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, role.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "role does not exist")
		}
		return nil, err
	}

	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:            uuid.New(),
		Email:         req.Email,
		Username:      req.Username,
		PasswordHash:  hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		RoleID:        r.ID,
		Active:        true,
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email or username already registered")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersRegistered()
	}
	s.audit(ctx, audit.ActionUserRegistered, audit.SeverityInfo, actor.ID.String(), u.ID.String(), map[string]string{
		"provisioned_by": actor.Email,
		"role":           r.Name,
	})
	s.logger.Info("user provisioned", "user_id", u.ID, "actor", actor.ID)

	return s.summarize(ctx, u), nil
}

// ListUsers returns the sanitized view of every account.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, *s.summarize(ctx, u))
	}
	return summaries, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.UserSummary, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, u), nil
}

// UpdateUser applies administrative changes: profile fields, role
// reassignment, activation toggle, and lockout release. Demoting or
// deactivating the last active holder of the wildcard role is refused.
func (s *Service) UpdateUser(ctx context.Context, actor *models.Principal, id uuid.UUID, req models.AdminUpdateUserRequest) (*models.UserSummary, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	currentRole, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}

	if req.RoleID != nil && *req.RoleID != u.RoleID {
		newRole, err := s.roles.FindByID(ctx, *req.RoleID)
		if err != nil {
			if errors.Is(err, role.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeBadRequest, "role does not exist")
			}
			return nil, err
		}
		if err := s.guardLastWildcardHolder(ctx, u, currentRole); err != nil {
			return nil, err
		}
		u.RoleID = newRole.ID
		metadata["from_role"] = currentRole.Name
		metadata["to_role"] = newRole.Name
	}

	if req.Active != nil && *req.Active != u.Active {
		if !*req.Active {
			if err := s.guardLastWildcardHolder(ctx, u, currentRole); err != nil {
				return nil, err
			}
		}
		u.Active = *req.Active
		// Deactivation kills the live session as well.
		if !u.Active {
			s.revokeSessionFields(u)
		}
	}

	if req.Unlock {
		// Cleared through the store so a concurrent failure cannot
		// resurrect the lockout through the Update below.
		if err := s.users.ResetLoginFailures(ctx, u.ID); err != nil {
			return nil, err
		}
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		s.audit(ctx, audit.ActionAccountUnlocked, audit.SeverityInfo, actor.ID.String(), u.ID.String(), nil)
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	if metadata["to_role"] != "" {
		s.audit(ctx, audit.ActionRoleChanged, audit.SeverityWarning, actor.ID.String(), u.ID.String(), metadata)
	} else {
		s.audit(ctx, audit.ActionUserUpdated, audit.SeverityInfo, actor.ID.String(), u.ID.String(), nil)
	}
	return s.summarize(ctx, u), nil
}

// DeleteUser removes the account unless it is the last active holder
// of the wildcard role.
func (s *Service) DeleteUser(ctx context.Context, actor *models.Principal, id uuid.UUID) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	currentRole, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		return err
	}
	if err := s.guardLastWildcardHolder(ctx, u, currentRole); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, audit.ActionUserDeleted, audit.SeverityCritical, actor.ID.String(), id.String(), map[string]string{
		"email": u.Email,
	})
	s.logger.Info("user deleted", "user_id", id, "actor", actor.ID)
	return nil
}

// BulkUpdateRoles moves every listed user to the role. The whole batch
// is validated before any write so a guard violation changes nothing.
func (s *Service) BulkUpdateRoles(ctx context.Context, actor *models.Principal, req models.BulkRoleUpdateRequest) ([]models.UserSummary, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	newRole, err := s.roles.FindByID(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, role.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "role does not exist")
		}
		return nil, err
	}

	targets := make([]*models.User, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u.RoleID == newRole.ID {
			continue
		}
		currentRole, err := s.roles.FindByID(ctx, u.RoleID)
		if err != nil {
			return nil, err
		}
		if err := s.guardLastWildcardHolder(ctx, u, currentRole); err != nil {
			return nil, err
		}
		targets = append(targets, u)
	}

	summaries := make([]models.UserSummary, 0, len(targets))
	for _, u := range targets {
		fromRole, err := s.roles.FindByID(ctx, u.RoleID)
		if err != nil {
			return nil, err
		}
		u.RoleID = newRole.ID
		if err := s.users.Update(ctx, u); err != nil {
			return nil, err
		}
		s.audit(ctx, audit.ActionRoleChanged, audit.SeverityWarning, actor.ID.String(), u.ID.String(), map[string]string{
			"from_role": fromRole.Name,
			"to_role":   newRole.Name,
			"bulk":      "true",
		})
		summaries = append(summaries, *s.summarize(ctx, u))
	}
	return summaries, nil
}

// RoleHistory reconstructs a user's role changes from the audit trail.
func (s *Service) RoleHistory(ctx context.Context, userID uuid.UUID) ([]models.RoleChange, error) {
	if s.audits == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit trail is not configured")
	}
	records, err := s.audits.List(ctx, audit.Filter{
		TargetID: userID.String(),
		Action:   audit.ActionRoleChanged,
	})
	if err != nil {
		return nil, err
	}
	changes := make([]models.RoleChange, 0, len(records))
	for _, rec := range records {
		changes = append(changes, models.RoleChange{
			Timestamp: rec.Timestamp,
			Actor:     rec.ActorID,
			FromRole:  rec.Metadata["from_role"],
			ToRole:    rec.Metadata["to_role"],
		})
	}
	return changes, nil
}

// SecurityLogs exposes the audit trail to permission-gated admins.
func (s *Service) SecurityLogs(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if s.audits == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit trail is not configured")
	}
	return s.audits.List(ctx, filter)
}

// ListRoles returns the role catalog for admin tooling.
func (s *Service) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return s.roles.List(ctx)
}

// guardLastWildcardHolder refuses any change that would leave the
// platform without an active holder of the wildcard role.
func (s *Service) guardLastWildcardHolder(ctx context.Context, u *models.User, currentRole *models.Role) error {
	if !currentRole.Wildcard || !u.Active {
		return nil
	}
	count, err := s.users.CountActiveByRole(ctx, currentRole.ID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return dErrors.New(dErrors.CodeForbidden, "cannot remove the last active "+currentRole.Name)
	}
	return nil
}
