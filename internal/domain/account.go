package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what an account is allowed to do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Status tracks the administrative state of an account.
type Status string

const (
	StatusActive  Status = "Active"
	StatusBlocked Status = "Blocked"
	StatusPending Status = "Pending"
)

// Account represents a storefront user, customer or admin.
//
// Token fields hold SHA-256 digests of the raw opaque tokens; the raw values
// only ever leave the system inside emailed links.
type Account struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         *string
	PasswordHash  string
	EmailVerified bool
	Role          Role
	Status        Status

	// Set while email verification is pending, cleared on first use.
	VerificationTokenHash *string

	// Both set during a pending password reset, both cleared on success.
	ResetTokenHash *string
	ResetExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasActiveReset reports whether a reset token is set and not yet expired.
func (a *Account) HasActiveReset(now time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetExpiresAt != nil && now.Before(*a.ResetExpiresAt)
}

// PublicAccount is the client-facing projection of an account. It never
// carries the password hash or any token material.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Public returns the client-facing projection.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:    a.ID.String(),
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
	}
}
