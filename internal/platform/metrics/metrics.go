package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersRegistered    prometheus.Counter
	LoginSuccess       prometheus.Counter
	AuthFailures       *prometheus.CounterVec
	AccountLockouts    prometheus.Counter
	TokenRefreshes     prometheus.Counter
	RefreshReuse       prometheus.Counter
	PasswordResets     prometheus.Counter
	MFAEnrollments     prometheus.Counter
	MFAChallenges      *prometheus.CounterVec
	RateLimitHits      *prometheus.CounterVec
	SecurityViolations *prometheus.CounterVec
	EndpointLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_users_registered_total",
			Help: "Total number of accounts registered",
		}),
		LoginSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_logins_total",
			Help: "Total number of successful logins",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "masthead_auth_failures_total",
			Help: "Total number of authentication failures, labeled by reason",
		}, []string{"reason"}),
		AccountLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_account_lockouts_total",
			Help: "Total number of accounts locked after repeated failures",
		}),
		TokenRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_token_refreshes_total",
			Help: "Total number of refresh token rotations",
		}),
		RefreshReuse: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_refresh_reuse_detected_total",
			Help: "Total number of detected refresh token reuse attempts",
		}),
		PasswordResets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_password_resets_total",
			Help: "Total number of completed password resets",
		}),
		MFAEnrollments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "masthead_mfa_enrollments_total",
			Help: "Total number of completed MFA enrollments",
		}),
		MFAChallenges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "masthead_mfa_challenges_total",
			Help: "Total number of MFA challenges, labeled by outcome",
		}, []string{"outcome"}),
		RateLimitHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "masthead_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiting, labeled by scope",
		}, []string{"scope"}),
		SecurityViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "masthead_security_violations_total",
			Help: "Total number of requests rejected by the security pipeline, labeled by kind",
		}, []string{"kind"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "masthead_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncrementUsersRegistered() {
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncrementLoginSuccess() {
	m.LoginSuccess.Inc()
}

func (m *Metrics) IncrementAuthFailures(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementAccountLockouts() {
	m.AccountLockouts.Inc()
}

func (m *Metrics) IncrementTokenRefreshes() {
	m.TokenRefreshes.Inc()
}

func (m *Metrics) IncrementRefreshReuse() {
	m.RefreshReuse.Inc()
}

func (m *Metrics) IncrementPasswordResets() {
	m.PasswordResets.Inc()
}

func (m *Metrics) IncrementMFAEnrollments() {
	m.MFAEnrollments.Inc()
}

func (m *Metrics) IncrementMFAChallenges(outcome string) {
	m.MFAChallenges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRateLimitHits(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementSecurityViolations(kind string) {
	m.SecurityViolations.WithLabelValues(kind).Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
