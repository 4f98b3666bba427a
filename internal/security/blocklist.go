package security

import (
	"context"
	"database/sql"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "masthead/pkg/domain-errors"
)

// BlockEntry is one blocked address range, sourced from manual blocks
// or an external threat-intel feed.
type BlockEntry struct {
	ID        uuid.UUID    `json:"id"`
	CIDR      netip.Prefix `json:"cidr"`
	Reason    string       `json:"reason"`
	Source    string       `json:"source"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (e *BlockEntry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Blocklist answers whether a source address is currently blocked.
type Blocklist interface {
	Add(ctx context.Context, entry *BlockEntry) error
	Remove(ctx context.Context, id uuid.UUID) error
	// Match reports the first live entry covering the address, nil if none.
	Match(ctx context.Context, addr netip.Addr) (*BlockEntry, error)
	List(ctx context.Context) ([]*BlockEntry, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// InMemoryBlocklist keeps entries in process memory.
type InMemoryBlocklist struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*BlockEntry
}

func NewInMemoryBlocklist() *InMemoryBlocklist {
	return &InMemoryBlocklist{entries: make(map[uuid.UUID]*BlockEntry)}
}

func (s *InMemoryBlocklist) Add(_ context.Context, entry *BlockEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c := *entry
	s.entries[entry.ID] = &c
	return nil
}

func (s *InMemoryBlocklist) Remove(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *InMemoryBlocklist) Match(_ context.Context, addr netip.Addr) (*BlockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	for _, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		if entry.CIDR.Contains(addr.Unmap()) {
			c := *entry
			return &c, nil
		}
	}
	return nil, nil
}

func (s *InMemoryBlocklist) List(_ context.Context) ([]*BlockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*BlockEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		c := *entry
		entries = append(entries, &c)
	}
	return entries, nil
}

func (s *InMemoryBlocklist) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// PostgresBlocklist persists entries in the threat_intel table.
type PostgresBlocklist struct {
	db *sql.DB
}

func NewPostgresBlocklist(db *sql.DB) *PostgresBlocklist {
	return &PostgresBlocklist{db: db}
}

func (s *PostgresBlocklist) Add(ctx context.Context, entry *BlockEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	const q = `
		INSERT INTO threat_intel (id, cidr, reason, source, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	err := s.db.QueryRowContext(ctx, q,
		entry.ID, entry.CIDR.String(), entry.Reason, entry.Source, entry.ExpiresAt,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not store block entry")
	}
	return nil
}

func (s *PostgresBlocklist) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threat_intel WHERE id = $1`, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not remove block entry")
	}
	return nil
}

func (s *PostgresBlocklist) Match(ctx context.Context, addr netip.Addr) (*BlockEntry, error) {
	const q = `
		SELECT id, cidr, reason, source, expires_at, created_at
		FROM threat_intel
		WHERE cidr >>= $1::inet AND (expires_at IS NULL OR expires_at > now())
		LIMIT 1`
	entry, err := scanBlockEntry(s.db.QueryRowContext(ctx, q, addr.Unmap().String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (s *PostgresBlocklist) List(ctx context.Context) ([]*BlockEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cidr, reason, source, expires_at, created_at FROM threat_intel ORDER BY created_at DESC`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list block entries")
	}
	defer rows.Close()

	var entries []*BlockEntry
	for rows.Next() {
		entry, err := scanBlockEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not iterate block entries")
	}
	return entries, nil
}

func (s *PostgresBlocklist) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM threat_intel WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not purge block entries")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanBlockEntry(row interface{ Scan(...any) error }) (*BlockEntry, error) {
	var (
		entry BlockEntry
		cidr  string
	)
	err := row.Scan(&entry.ID, &cidr, &entry.Reason, &entry.Source, &entry.ExpiresAt, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not scan block entry")
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		// Single addresses come back from inet without a mask.
		addr, addrErr := netip.ParseAddr(cidr)
		if addrErr != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not parse block entry cidr")
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	}
	entry.CIDR = prefix
	return &entry, nil
}
