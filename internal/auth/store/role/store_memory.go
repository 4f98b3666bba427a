package role

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"masthead/internal/auth/models"
)

// InMemoryStore keeps the role catalog in process memory. Suited to
// development setups and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Role
	byName map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[uuid.UUID]*models.Role),
		byName: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[r.Name]; ok {
		return ErrConflict
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.byID[r.ID] = cloneRole(r)
	s.byName[r.Name] = r.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, r *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[r.ID]
	if !ok {
		return ErrNotFound
	}
	if other, ok := s.byName[r.Name]; ok && other != r.ID {
		return ErrConflict
	}
	delete(s.byName, existing.Name)
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	s.byID[r.ID] = cloneRole(r)
	s.byName[r.Name] = r.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRole(r), nil
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRole(s.byID[id]), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]*models.Role, 0, len(s.byID))
	for _, r := range s.byID {
		roles = append(roles, cloneRole(r))
	}
	sort.Slice(roles, func(i, j int) bool {
		return roles[i].AccessLevel > roles[j].AccessLevel
	})
	return roles, nil
}

func cloneRole(r *models.Role) *models.Role {
	c := *r
	c.Grants = make([]models.Permission, len(r.Grants))
	copy(c.Grants, r.Grants)
	return &c
}
