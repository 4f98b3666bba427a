package role

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"masthead/internal/auth/models"
	dErrors "masthead/pkg/domain-errors"
)

// PostgresStore implements Store on the roles table. Grants are kept
// as a jsonb column so the permission list stays one row per role.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const roleColumns = `id, name, description, access_level, wildcard, grants, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.Role) error {
	grants, err := json.Marshal(r.Grants)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode role grants")
	}

	const q = `
		INSERT INTO roles (id, name, description, access_level, wildcard, grants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`
	err = s.db.QueryRowContext(ctx, q,
		r.ID, r.Name, r.Description, r.AccessLevel, r.Wildcard, grants,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not create role")
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.Role) error {
	grants, err := json.Marshal(r.Grants)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode role grants")
	}

	const q = `
		UPDATE roles SET name = $2, description = $3, access_level = $4, wildcard = $5, grants = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err = s.db.QueryRowContext(ctx, q, r.ID, r.Name, r.Description, r.AccessLevel, r.Wildcard, grants).Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update role")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return s.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY access_level DESC`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list roles")
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not iterate roles")
	}
	return roles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) findOne(ctx context.Context, q string, arg any) (*models.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func scanRole(row rowScanner) (*models.Role, error) {
	var (
		r      models.Role
		grants []byte
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.AccessLevel, &r.Wildcard, &grants, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not scan role")
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &r.Grants); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not decode role grants")
		}
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
