package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Key identifies one rate-limited subject: a scope ("login", "request") and
// a client identifier (IP, email, or IP+path).
type Key struct {
	Scope  string
	Client string
}

func (k Key) String() string {
	return fmt.Sprintf("ratelimit:%s:%s", k.Scope, k.Client)
}

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter is the single interface both backends implement. The memory
// limiter serves single-node deployments and tests; the Redis limiter shares
// counters across replicas.
type Limiter interface {
	// Allow records an attempt and reports whether it fits in the quota.
	Allow(ctx context.Context, key Key) (Result, error)
	// Reset clears the counter for a key (successful login, admin unlock).
	Reset(ctx context.Context, key Key) error
}

func retryAfter(allowed bool, resetAt, now time.Time) time.Duration {
	if allowed {
		return 0
	}
	d := resetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
