package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
	dErrors "masthead/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "user not found")
	// ErrConflict is returned when the email or username is already taken.
	ErrConflict = dErrors.New(dErrors.CodeConflict, "email or username already in use")
	// ErrRefreshMismatch is returned by SwapRefreshHash when the stored hash
	// does not match the expected one. The service treats this as token reuse.
	ErrRefreshMismatch = dErrors.New(dErrors.CodeTokenReuse, "refresh token mismatch")
)

// Store is the persistence contract for accounts. All Find methods return
// ErrNotFound when the entity doesn't exist.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// RecordLoginFailure atomically increments the failure counter and, when
	// the threshold is reached, stamps lockUntil on the account. The expiry is
	// computed by the caller so it follows the service clock. It returns the
	// new counter and the lockout expiry if one was set.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error)

	// ResetLoginFailures clears the counter and any lockout.
	ResetLoginFailures(ctx context.Context, id uuid.UUID) error

	// SwapRefreshHash replaces the stored refresh hash only if it currently
	// equals expected (compare-and-swap). Pass expected "" to require no
	// stored token, and newHash "" to revoke. Returns ErrRefreshMismatch on
	// a stale expected value.
	SwapRefreshHash(ctx context.Context, id uuid.UUID, expected, newHash string, expiresAt *time.Time) error

	// CountActiveByRole counts active accounts holding the role; the admin
	// service uses it to protect the last wildcard-role account.
	CountActiveByRole(ctx context.Context, roleID uuid.UUID) (int, error)

	// DeleteExpiredResetTokens clears reset tokens past their expiry.
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}
