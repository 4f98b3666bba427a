package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ResetTokenStore exposes cleanup for expired password reset tokens.
type ResetTokenStore interface {
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}

// VerificationCodeStore exposes cleanup for expired verification codes.
type VerificationCodeStore interface {
	Purge(ctx context.Context) (int, error)
}

// AuditStore exposes retention enforcement for audit records.
type AuditStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Blocklist exposes cleanup for expired threat intel entries.
type Blocklist interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	DeletedResetTokens       int
	DeletedVerificationCodes int
	DeletedAuditRecords      int
	DeletedBlockEntries      int
}

// CleanupService periodically removes expired auth artifacts.
type CleanupService struct {
	resetTokens ResetTokenStore
	codes       VerificationCodeStore
	auditTrail  AuditStore
	blocklist   Blocklist
	interval    time.Duration
	retention   time.Duration
	logger      *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithAuditRetention overrides how long audit records are kept.
func WithAuditRetention(retention time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a CleanupService with required stores and options applied.
// The audit store and blocklist are optional; cleanup skips them when nil.
func New(
	resetTokens ResetTokenStore,
	codes VerificationCodeStore,
	auditTrail AuditStore,
	blocklist Blocklist,
	opts ...CleanupOption,
) (*CleanupService, error) {
	if resetTokens == nil || codes == nil {
		return nil, fmt.Errorf("resetTokens and codes are required")
	}
	svc := &CleanupService{
		resetTokens: resetTokens,
		codes:       codes,
		auditTrail:  auditTrail,
		blocklist:   blocklist,
		interval:    15 * time.Minute,
		retention:   90 * 24 * time.Hour,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "auth cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single cleanup operation.
// It removes expired reset tokens and verification codes, enforces audit
// retention, and drops expired blocklist entries.
// If any errors occur during cleanup, they are aggregated and returned.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	now := time.Now()
	var res CleanupResult
	var errs []error

	deletedTokens, err := s.resetTokens.DeleteExpiredResetTokens(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired reset tokens: %w", err))
	} else {
		res.DeletedResetTokens = deletedTokens
	}

	deletedCodes, err := s.codes.Purge(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge verification codes: %w", err))
	} else {
		res.DeletedVerificationCodes = deletedCodes
	}

	if s.auditTrail != nil {
		deletedRecords, err := s.auditTrail.DeleteOlderThan(ctx, now.Add(-s.retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("enforce audit retention: %w", err))
		} else {
			res.DeletedAuditRecords = deletedRecords
		}
	}

	if s.blocklist != nil {
		deletedEntries, err := s.blocklist.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete expired block entries: %w", err))
		} else {
			res.DeletedBlockEntries = deletedEntries
		}
	}

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}
