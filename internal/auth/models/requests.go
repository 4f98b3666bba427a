package models

import "github.com/google/uuid"

type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Username      string `json:"username" validate:"required,notblank,min=3,max=30"`
	Password      string `json:"password" validate:"required,password"`
	FirstName     string `json:"first_name" validate:"required,notblank,max=50"`
	LastName      string `json:"last_name" validate:"required,notblank,max=50"`
	AcceptedTerms bool   `json:"accepted_terms" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	// Exactly one of these satisfies the MFA step when it is required.
	MFACode    string `json:"mfa_code,omitempty" validate:"omitempty,len=6"`
	BackupCode string `json:"backup_code,omitempty" validate:"omitempty,len=10"`
}

type RefreshRequest struct {
	// Optional in the body; the handler falls back to the refresh cookie.
	RefreshToken string `json:"refresh_token,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required,notblank"`
	Password string `json:"password" validate:"required,password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,notblank,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,notblank,max=50"`
	Username  *string `json:"username,omitempty" validate:"omitempty,notblank,min=3,max=30"`
}

type MFAVerifyRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

type MFADisableRequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6"`
}

type AdminCreateUserRequest struct {
	Email     string    `json:"email" validate:"required,email"`
	Username  string    `json:"username" validate:"required,notblank,min=3,max=30"`
	Password  string    `json:"password" validate:"required,password"`
	FirstName string    `json:"first_name" validate:"required,notblank,max=50"`
	LastName  string    `json:"last_name" validate:"required,notblank,max=50"`
	RoleID    uuid.UUID `json:"role_id" validate:"required"`
}

type AdminUpdateUserRequest struct {
	FirstName *string    `json:"first_name,omitempty" validate:"omitempty,notblank,max=50"`
	LastName  *string    `json:"last_name,omitempty" validate:"omitempty,notblank,max=50"`
	RoleID    *uuid.UUID `json:"role_id,omitempty"`
	Active    *bool      `json:"active,omitempty"`
	Unlock    bool       `json:"unlock,omitempty"`
}

type BulkRoleUpdateRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1,max=100"`
	RoleID  uuid.UUID   `json:"role_id" validate:"required"`
}
