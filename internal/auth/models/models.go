package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission is an explicit grant to perform an action on a resource.
// Action "*" grants every action on the resource.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Role is a named bundle of permissions with a numeric access level used for
// tie-breaks in administrative operations. A wildcard role holds every
// permission without enumerating them.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	AccessLevel int          `json:"access_level"`
	Wildcard    bool         `json:"wildcard"`
	Grants      []Permission `json:"grants,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// User is an account row. Secret material is stored only in derived form:
// bcrypt for passwords, SHA-256 for refresh/reset tokens and backup codes,
// AES-GCM ciphertext for the TOTP secret.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       uuid.UUID

	Active        bool
	EmailVerified bool

	FailedLoginAttempts int
	LockedUntil         *time.Time

	RefreshTokenHash      string
	RefreshTokenExpiresAt *time.Time

	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	MFAEnabled         bool
	MFASetupRequired   bool
	MFASecret          string // AES-GCM ciphertext of the confirmed secret
	MFAPendingSecret   string // ciphertext of a secret awaiting confirmation
	MFALastUsedCounter int64
	BackupCodeHashes   []string

	LastLoginAt *time.Time
	LastLoginIP string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is inside a lockout window.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Principal is the authenticated identity attached to a request context,
// carrying the resolved role so permission checks need no further lookups.
type Principal struct {
	ID          uuid.UUID
	Email       string
	Username    string
	Active      bool
	RoleID      uuid.UUID
	RoleName    string
	AccessLevel int
	Wildcard    bool
	Grants      []Permission
}
