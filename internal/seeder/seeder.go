// Package seeder provisions the built-in role catalog and, when
// configured, a bootstrap administrator account on first startup.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
	"masthead/internal/rbac"
	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
)

// RoleStore is the subset of the role store the seeder needs.
type RoleStore interface {
	Create(ctx context.Context, r *models.Role) error
	FindByName(ctx context.Context, name string) (*models.Role, error)
}

// UserStore is the subset of the user store the seeder needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminBootstrap describes the initial administrator created when no
// account exists under its email. Empty Email disables the bootstrap.
type AdminBootstrap struct {
	Email    string
	Username string
	Password string
}

// Seeder ensures the role catalog and bootstrap admin exist. Runs are
// idempotent; existing rows are left untouched.
type Seeder struct {
	roles  RoleStore
	users  UserStore
	logger *slog.Logger
}

func New(roles RoleStore, users UserStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{roles: roles, users: users, logger: logger}
}

// Run seeds the role catalog and the bootstrap admin account.
func (s *Seeder) Run(ctx context.Context, admin AdminBootstrap) error {
	created, err := s.seedRoles(ctx)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if created > 0 {
		s.logger.InfoContext(ctx, "seeded role catalog", "created", created)
	}

	if admin.Email == "" {
		return nil
	}
	if err := s.seedAdmin(ctx, admin); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}

func (s *Seeder) seedRoles(ctx context.Context) (int, error) {
	created := 0
	for _, role := range rbac.DefaultRoles() {
		_, err := s.roles.FindByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return created, err
		}

		role.ID = uuid.New()
		now := time.Now().UTC()
		role.CreatedAt = now
		role.UpdatedAt = now
		if err := s.roles.Create(ctx, &role); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, admin AdminBootstrap) error {
	_, err := s.users.FindByEmail(ctx, admin.Email)
	if err == nil {
		return nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}

	role, err := s.roles.FindByName(ctx, rbac.MasterAdminRole)
	if err != nil {
		return err
	}

	hash, err := secrets.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	username := admin.Username
	if username == "" {
		username = "admin"
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:            uuid.New(),
		Email:         admin.Email,
		Username:      username,
		PasswordHash:  hash,
		RoleID:        role.ID,
		Active:        true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "created bootstrap admin account",
		"email", admin.Email, "role", role.Name)
	return nil
}
