package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"masthead/internal/audit"
	"masthead/internal/auth/models"
	"masthead/internal/auth/store/otp"
	"masthead/internal/auth/store/role"
	"masthead/internal/auth/store/user"
	"masthead/internal/mfa"
	"masthead/internal/platform/metrics"
	"masthead/internal/ratelimit"
	"masthead/internal/rbac"
	"masthead/internal/token"
	dErrors "masthead/pkg/domain-errors"
)

// Sender delivers one-time codes and reset links out of band. The
// platform's mail subsystem satisfies it in production.
type Sender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, rawToken string) error
}

// logSender is the development fallback: codes go to the log instead
// of a mailbox.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) SendVerificationCode(_ context.Context, email, code string) error {
	s.logger.Info("verification code issued", "email", email, "code", code)
	return nil
}

func (s logSender) SendPasswordReset(_ context.Context, email, rawToken string) error {
	s.logger.Info("password reset token issued", "email", email, "token", rawToken)
	return nil
}

// Policy holds the tunable authentication thresholds.
type Policy struct {
	LockoutThreshold    int
	LockoutDuration     time.Duration
	VerificationCodeTTL time.Duration
	ResetTokenTTL       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		LockoutThreshold:    5,
		LockoutDuration:     15 * time.Minute,
		VerificationCodeTTL: 10 * time.Minute,
		ResetTokenTTL:       10 * time.Minute,
	}
}

// Service orchestrates the authentication, session, and account
// management use-cases over the stores.
type Service struct {
	users     user.Store
	roles     role.Store
	otps      otp.Store
	tokens    *token.Service
	mfa       *mfa.Engine
	evaluator *rbac.Evaluator

	policy   Policy
	limiter  ratelimit.Limiter
	sender   Sender
	recorder *audit.Recorder
	audits   audit.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit wires the append-only audit trail. The store is also read
// back for the admin role-history and security-log surfaces.
func WithAudit(store audit.Store, rec *audit.Recorder) Option {
	return func(s *Service) {
		s.audits = store
		s.recorder = rec
	}
}

// WithLoginLimiter throttles the credential endpoints (login, register,
// forgot-password) per calling client.
func WithLoginLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithSender(sender Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(users user.Store, roles role.Store, otps otp.Store, tokens *token.Service, engine *mfa.Engine, opts ...Option) *Service {
	s := &Service{
		users:     users,
		roles:     roles,
		otps:      otps,
		tokens:    tokens,
		mfa:       engine,
		evaluator: rbac.NewEvaluator(),
		policy:    DefaultPolicy(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = logSender{logger: s.logger}
	}
	return s
}

// Evaluator exposes the permission evaluator so other subsystems gate
// their behavior through one implementation.
func (s *Service) Evaluator() *rbac.Evaluator {
	return s.evaluator
}

// Authorize answers a point permission query for downstream callers.
func (s *Service) Authorize(p *models.Principal, resource, action string) bool {
	return s.evaluator.Has(p, resource, action)
}

// MenuItems derives the navigable sections for the principal.
func (s *Service) MenuItems(p *models.Principal) []rbac.MenuItem {
	return s.evaluator.MenuFor(p)
}

// LoadPrincipal resolves a user id to the principal the authentication
// middleware attaches to the request context.
func (s *Service) LoadPrincipal(ctx context.Context, id uuid.UUID) (*models.Principal, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	return &models.Principal{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Active:      u.Active,
		RoleID:      r.ID,
		RoleName:    r.Name,
		AccessLevel: r.AccessLevel,
		Wildcard:    r.Wildcard,
		Grants:      r.Grants,
	}, nil
}

// allowAction applies the per-client quota for a credential endpoint.
func (s *Service) allowAction(ctx context.Context, action, client string) error {
	if s.limiter == nil {
		return nil
	}
	result, err := s.limiter.Allow(ctx, ratelimit.Key{Scope: action, Client: client})
	if err != nil {
		s.logger.Error("rate limit check failed", "action", action, "error", err)
		return nil
	}
	if result.Allowed {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncrementRateLimitHits(action)
	}
	s.audit(ctx, audit.ActionRateLimited, audit.SeverityWarning, "", "", map[string]string{
		"action": action, "client": client,
	})
	return dErrors.NewRetryable(dErrors.CodeRateLimited, "too many attempts, slow down", result.RetryAfter)
}

func (s *Service) audit(ctx context.Context, action audit.Action, severity audit.Severity, actorID, targetID string, metadata map[string]string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordEvent(ctx, action, severity, actorID, targetID, metadata)
}

func (s *Service) summarize(ctx context.Context, u *models.User) *models.UserSummary {
	r, err := s.roles.FindByID(ctx, u.RoleID)
	if err != nil {
		s.logger.Warn("role lookup failed for summary", "user_id", u.ID, "error", err)
		r = nil
	}
	summary := models.Summarize(u, r)
	return &summary
}

// errInvalidCredentials is the uniform response for every failure mode
// that must not reveal which check rejected the attempt.
func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
