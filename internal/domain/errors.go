package domain

import "errors"

// Account lifecycle errors. All of these surface to HTTP callers as 4xx with
// a human-readable message; anything else is a 500.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountNotFound    = errors.New("account not found")

	// ErrInvalidVerificationToken covers never-issued and already-consumed
	// verification tokens alike; the two are indistinguishable because the
	// token is cleared on first successful use.
	ErrInvalidVerificationToken = errors.New("invalid or already used verification token")

	// ErrInvalidResetToken covers wrong, already-used and expired reset
	// tokens alike.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	ErrInvalidSession = errors.New("invalid session")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
)
