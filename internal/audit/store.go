package audit

import (
	"context"
	"time"

	dErrors "masthead/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "audit record not found")

// Filter narrows List queries. Zero values mean "any".
type Filter struct {
	ActorID  string
	TargetID string
	Action   Action
	Severity Severity
	Since    time.Time
	Limit    int
}

// Store is the append-only persistence interface for audit records.
type Store interface {
	Append(ctx context.Context, record Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
	// DeleteOlderThan enforces retention; it is the only deletion path.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
