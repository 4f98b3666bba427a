package models

import (
	"time"

	"github.com/google/uuid"
)

// UserSummary is the sanitized account view returned to clients. It never
// carries hashes, secrets, or lockout internals.
type UserSummary struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Role          string     `json:"role"`
	AccessLevel   int        `json:"access_level"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"email_verified"`
	MFAEnabled    bool       `json:"mfa_enabled"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Summarize builds the client-safe view of a user with its resolved role.
func Summarize(u *User, role *Role) UserSummary {
	s := UserSummary{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Active:        u.Active,
		EmailVerified: u.EmailVerified,
		MFAEnabled:    u.MFAEnabled,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
	if role != nil {
		s.Role = role.Name
		s.AccessLevel = role.AccessLevel
	}
	return s
}

// TokenPair carries the issued tokens. The same values ride in HTTP-only
// cookies for browser clients.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResult is the outcome of a credential check. When the MFA flags are
// set, Tokens is nil and the client must complete the second step.
type LoginResult struct {
	Message          string       `json:"message"`
	User             *UserSummary `json:"user,omitempty"`
	Tokens           *TokenPair   `json:"tokens,omitempty"`
	RequiresMFA      bool         `json:"requires_mfa,omitempty"`
	RequiresMFASetup bool         `json:"requires_mfa_setup,omitempty"`
}

// MFAEnrollmentResult is returned when MFA setup begins. The secret appears
// exactly once; backup codes follow only after the enrollment is confirmed.
type MFAEnrollmentResult struct {
	Secret       string   `json:"secret"`
	ProvisionURI string   `json:"provision_uri,omitempty"`
	BackupCodes  []string `json:"backup_codes,omitempty"`
}

// RegisterResult acknowledges a registration without leaking whether the
// address was already taken.
type RegisterResult struct {
	Message string       `json:"message"`
	User    *UserSummary `json:"user,omitempty"`
}

// RoleChange is one entry of a user's role history, reconstructed from the
// audit trail.
type RoleChange struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	FromRole  string    `json:"from_role,omitempty"`
	ToRole    string    `json:"to_role"`
}
