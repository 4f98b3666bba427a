package otp

import (
	"context"
	"time"

	dErrors "masthead/pkg/domain-errors"
)

var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "verification code not found or expired")

// Store holds short-lived email verification codes. Only the SHA-256
// hash of a code is ever written.
type Store interface {
	// Put stores the code hash for the address, replacing any earlier one.
	Put(ctx context.Context, email, codeHash string, ttl time.Duration) error
	// Consume compares the presented hash against the stored one and
	// deletes the entry on a match. A miss or an expired entry reports
	// false with no error.
	Consume(ctx context.Context, email, codeHash string) (bool, error)
	// Purge drops expired entries and reports how many were removed.
	Purge(ctx context.Context) (int, error)
}
