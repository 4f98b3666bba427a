package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
)

// InMemoryStore implements Store with maps. Used in tests and single-node
// development setups; all methods are safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	byName  map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
		byName:  make(map[string]uuid.UUID),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalize(u.Email)
	name := normalize(u.Username)
	if _, ok := s.byEmail[email]; ok {
		return ErrConflict
	}
	if _, ok := s.byName[name]; ok {
		return ErrConflict
	}

	clone := cloneUser(u)
	now := time.Now()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	s.byID[clone.ID] = clone
	s.byEmail[email] = clone.ID
	s.byName[name] = clone.ID
	*u = *cloneUser(clone)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[u.ID]
	if !ok {
		return ErrNotFound
	}

	email := normalize(u.Email)
	name := normalize(u.Username)
	if id, taken := s.byEmail[email]; taken && id != u.ID {
		return ErrConflict
	}
	if id, taken := s.byName[name]; taken && id != u.ID {
		return ErrConflict
	}

	delete(s.byEmail, normalize(existing.Email))
	delete(s.byName, normalize(existing.Username))

	clone := cloneUser(u)
	clone.UpdatedAt = time.Now()
	s.byID[clone.ID] = clone
	s.byEmail[email] = clone.ID
	s.byName[name] = clone.ID
	*u = *cloneUser(clone)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, normalize(existing.Email))
	delete(s.byName, normalize(existing.Username))
	delete(s.byID, id)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalize(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *InMemoryStore) FindByResetTokenHash(_ context.Context, hash string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if hash == "" {
		return nil, ErrNotFound
	}
	for _, u := range s.byID {
		if u.ResetTokenHash == hash {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *InMemoryStore) RecordLoginFailure(_ context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return 0, nil, ErrNotFound
	}

	u.FailedLoginAttempts++
	u.UpdatedAt = time.Now()
	if u.FailedLoginAttempts >= threshold {
		until := lockUntil
		u.LockedUntil = &until
		return u.FailedLoginAttempts, &lockUntil, nil
	}
	return u.FailedLoginAttempts, nil, nil
}

func (s *InMemoryStore) ResetLoginFailures(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) SwapRefreshHash(_ context.Context, id uuid.UUID, expected, newHash string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if u.RefreshTokenHash != expected {
		return ErrRefreshMismatch
	}
	u.RefreshTokenHash = newHash
	u.RefreshTokenExpiresAt = copyTime(expiresAt)
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) CountActiveByRole(_ context.Context, roleID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, u := range s.byID {
		if u.Active && u.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeleteExpiredResetTokens(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for _, u := range s.byID {
		if u.ResetTokenHash != "" && u.ResetTokenExpiresAt != nil && now.After(*u.ResetTokenExpiresAt) {
			u.ResetTokenHash = ""
			u.ResetTokenExpiresAt = nil
			cleared++
		}
	}
	return cleared, nil
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.LockedUntil = copyTime(u.LockedUntil)
	clone.RefreshTokenExpiresAt = copyTime(u.RefreshTokenExpiresAt)
	clone.ResetTokenExpiresAt = copyTime(u.ResetTokenExpiresAt)
	clone.LastLoginAt = copyTime(u.LastLoginAt)
	clone.BackupCodeHashes = append([]string(nil), u.BackupCodeHashes...)
	return &clone
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
