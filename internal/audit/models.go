package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks audit records for triage.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Record is one append-only entry of the security audit trail. Records are
// never updated or deleted inside the retention window.
type Record struct {
	ID        uuid.UUID
	Timestamp time.Time
	Action    Action
	Severity  Severity

	// ActorID is empty for unauthenticated events (failed logins, blocked
	// requests); TargetID is set when the action concerns another account.
	ActorID  string
	TargetID string

	IP        string
	UserAgent string
	Browser   string
	OS        string
	Device    string

	RequestID string
	Path      string
	Metadata  map[string]string
}

// Action names what happened. Stable strings: dashboards and the role
// history endpoint filter on them.
type Action string

const (
	ActionUserRegistered   Action = "user_registered"
	ActionEmailVerified    Action = "email_verified"
	ActionLoginSucceeded   Action = "login_succeeded"
	ActionLoginFailed      Action = "login_failed"
	ActionAccountLocked    Action = "account_locked"
	ActionAccountUnlocked  Action = "account_unlocked"
	ActionTokenRefreshed   Action = "token_refreshed"
	ActionTokenReuse       Action = "token_reuse_detected"
	ActionLogout           Action = "logout"
	ActionPasswordForgot   Action = "password_reset_requested"
	ActionPasswordReset    Action = "password_reset_completed"
	ActionPasswordChanged  Action = "password_changed"
	ActionMFAEnrollStarted Action = "mfa_enroll_started"
	ActionMFAEnabled       Action = "mfa_enabled"
	ActionMFADisabled      Action = "mfa_disabled"
	ActionMFAFailed        Action = "mfa_failed"
	ActionRoleChanged      Action = "role_changed"
	ActionUserUpdated      Action = "user_updated"
	ActionUserDeleted      Action = "user_deleted"
	ActionSecurityBlocked  Action = "security_blocked"
	ActionRateLimited      Action = "rate_limited"
	ActionRequestServed    Action = "request_served"
	ActionRequestFailed    Action = "request_failed"
)
