package otp

import (
	"context"
	"strings"
	"sync"
	"time"

	"masthead/pkg/secrets"
)

type memoryEntry struct {
	codeHash  string
	expiresAt time.Time
}

// InMemoryStore keeps verification codes in process memory.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Put(_ context.Context, email, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[normalize(email)] = memoryEntry{
		codeHash:  codeHash,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, email, codeHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(email)
	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return false, nil
	}
	if !secrets.ConstantTimeEqual(entry.codeHash, codeHash) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *InMemoryStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
