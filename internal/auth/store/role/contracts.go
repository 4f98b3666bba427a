package role

import (
	"context"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
	dErrors "masthead/pkg/domain-errors"
)

var (
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "role not found")
	ErrConflict = dErrors.New(dErrors.CodeConflict, "role name already exists")
)

// Store persists the role catalog.
type Store interface {
	Create(ctx context.Context, r *models.Role) error
	Update(ctx context.Context, r *models.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
}
