package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"masthead/internal/auth/models"
	dErrors "masthead/pkg/domain-errors"
)

// PostgresStore implements Store on the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `
	id, email, username, password_hash, first_name, last_name, role_id,
	active, email_verified, failed_login_attempts, locked_until,
	refresh_token_hash, refresh_token_expires_at,
	reset_token_hash, reset_token_expires_at,
	mfa_enabled, mfa_setup_required, mfa_secret, mfa_pending_secret,
	mfa_last_used_counter, backup_code_hashes,
	last_login_at, last_login_ip, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	backupCodes, err := json.Marshal(u.BackupCodeHashes)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode backup codes")
	}

	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, lower($2), lower($3), $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, now(), now())
		RETURNING created_at, updated_at`
	err = s.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.RoleID,
		u.Active, u.EmailVerified, u.FailedLoginAttempts, u.LockedUntil,
		nullable(u.RefreshTokenHash), u.RefreshTokenExpiresAt,
		nullable(u.ResetTokenHash), u.ResetTokenExpiresAt,
		u.MFAEnabled, u.MFASetupRequired, nullable(u.MFASecret), nullable(u.MFAPendingSecret),
		u.MFALastUsedCounter, backupCodes,
		u.LastLoginAt, nullable(u.LastLoginIP),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not create user")
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	backupCodes, err := json.Marshal(u.BackupCodeHashes)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode backup codes")
	}

	const q = `
		UPDATE users SET
			email = lower($2), username = lower($3), password_hash = $4,
			first_name = $5, last_name = $6, role_id = $7,
			active = $8, email_verified = $9,
			failed_login_attempts = $10, locked_until = $11,
			refresh_token_hash = $12, refresh_token_expires_at = $13,
			reset_token_hash = $14, reset_token_expires_at = $15,
			mfa_enabled = $16, mfa_setup_required = $17,
			mfa_secret = $18, mfa_pending_secret = $19,
			mfa_last_used_counter = $20, backup_code_hashes = $21,
			last_login_at = $22, last_login_ip = $23,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err = s.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.RoleID,
		u.Active, u.EmailVerified, u.FailedLoginAttempts, u.LockedUntil,
		nullable(u.RefreshTokenHash), u.RefreshTokenExpiresAt,
		nullable(u.ResetTokenHash), u.ResetTokenExpiresAt,
		u.MFAEnabled, u.MFASetupRequired, nullable(u.MFASecret), nullable(u.MFAPendingSecret),
		u.MFALastUsedCounter, backupCodes,
		u.LastLoginAt, nullable(u.LastLoginIP),
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update user")
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (s *PostgresStore) FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, hash)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not iterate users")
	}
	return users, nil
}

func (s *PostgresStore) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	// Single statement so concurrent failures cannot race past the threshold.
	const q = `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until`
	var (
		attempts    int
		lockedUntil sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, id, threshold, lockUntil).Scan(&attempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record login failure")
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		return attempts, &t, nil
	}
	return attempts, nil, nil
}

func (s *PostgresStore) ResetLoginFailures(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not reset login failures")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SwapRefreshHash(ctx context.Context, id uuid.UUID, expected, newHash string, expiresAt *time.Time) error {
	const q = `
		UPDATE users SET
			refresh_token_hash = $3, refresh_token_expires_at = $4, updated_at = now()
		WHERE id = $1 AND coalesce(refresh_token_hash, '') = $2`
	res, err := s.db.ExecContext(ctx, q, id, expected, nullable(newHash), expiresAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not rotate refresh token")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Distinguish a missing account from a stale hash.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not rotate refresh token")
	}
	if !exists {
		return ErrNotFound
	}
	return ErrRefreshMismatch
}

func (s *PostgresStore) CountActiveByRole(ctx context.Context, roleID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE role_id = $1 AND active`, roleID).Scan(&count)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not count users by role")
	}
	return count, nil
}

func (s *PostgresStore) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE reset_token_hash IS NOT NULL AND reset_token_expires_at < $1`, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not clear expired reset tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) findOne(ctx context.Context, q string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		refreshHash sql.NullString
		resetHash   sql.NullString
		mfaSecret   sql.NullString
		mfaPending  sql.NullString
		lastLoginIP sql.NullString
		backupCodes []byte
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.RoleID,
		&u.Active, &u.EmailVerified, &u.FailedLoginAttempts, &u.LockedUntil,
		&refreshHash, &u.RefreshTokenExpiresAt,
		&resetHash, &u.ResetTokenExpiresAt,
		&u.MFAEnabled, &u.MFASetupRequired, &mfaSecret, &mfaPending,
		&u.MFALastUsedCounter, &backupCodes,
		&u.LastLoginAt, &lastLoginIP, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not scan user")
	}
	u.RefreshTokenHash = refreshHash.String
	u.ResetTokenHash = resetHash.String
	u.MFASecret = mfaSecret.String
	u.MFAPendingSecret = mfaPending.String
	u.LastLoginIP = lastLoginIP.String
	if len(backupCodes) > 0 {
		if err := json.Unmarshal(backupCodes, &u.BackupCodeHashes); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not decode backup codes")
		}
	}
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
