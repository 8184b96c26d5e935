package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elegantmart/auth-service/internal/domain"
	"github.com/elegantmart/auth-service/internal/notification"
)

// DefaultResetTokenTTL is how long a password reset token stays usable.
const DefaultResetTokenTTL = 15 * time.Minute

// AccountStore persists accounts. The account service exclusively owns
// lifecycle transitions; the store only persists and queries.
type AccountStore interface {
	// Create inserts a new account. Returns domain.ErrDuplicateEmail if the
	// email is already taken (the store's unique index is the race-breaker
	// for concurrent signups).
	Create(ctx context.Context, account *domain.Account) error

	// GetByID returns domain.ErrAccountNotFound if no account matches.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByEmail returns domain.ErrAccountNotFound if no account matches.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetByVerificationTokenHash looks up the account holding this
	// verification token digest.
	GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	// GetByActiveResetTokenHash looks up the account holding this reset token
	// digest with an expiry strictly after now.
	GetByActiveResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)

	// MarkVerified atomically flips email_verified to true, clears the
	// verification token and activates the account, but only if the account
	// is not yet verified. Returns false when another caller won the race.
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)

	// ClearVerificationToken removes a stale verification token from an
	// already-verified account.
	ClearVerificationToken(ctx context.Context, id uuid.UUID) error

	// SetResetToken stores the reset token digest and its expiry.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error

	// UpdatePassword replaces the password hash and clears both reset fields.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateLastLogin stamps the last successful login time.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AccountConfig holds account service configuration.
type AccountConfig struct {
	// AppBaseURL is the front-end origin used to build emailed links.
	AppBaseURL    string
	ResetTokenTTL time.Duration
}

// AccountService orchestrates the account lifecycle: signup, email
// verification, login, forgot/reset password and profile retrieval.
type AccountService struct {
	config   AccountConfig
	logger   *slog.Logger
	accounts AccountStore
	mailer   notification.Mailer
}

// NewAccountService creates a new account service. The mailer may be nil when
// no mail transport is configured; dispatches are then skipped.
func NewAccountService(config AccountConfig, logger *slog.Logger, accounts AccountStore, mailer notification.Mailer) *AccountService {
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &AccountService{
		config:   config,
		logger:   logger,
		accounts: accounts,
		mailer:   mailer,
	}
}

// SignupParams are the caller-supplied fields for a new account.
type SignupParams struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Signup creates an unverified account and attempts to dispatch a
// verification email. Dispatch failure is logged but never fails the signup:
// account creation must not depend on mail infrastructure availability.
func (s *AccountService) Signup(ctx context.Context, params SignupParams) (*domain.Account, error) {
	email, err := NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}

	// Pre-check for a friendlier error; the unique index on email breaks the
	// tie between concurrent signups and surfaces the same ErrDuplicateEmail.
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	rawToken, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	tokenHash := HashToken(rawToken)

	var phone *string
	if p := strings.TrimSpace(params.Phone); p != "" {
		phone = &p
	}

	now := time.Now()
	account := &domain.Account{
		ID:                    uuid.New(),
		Name:                  strings.TrimSpace(params.Name),
		Email:                 email,
		Phone:                 phone,
		PasswordHash:          passwordHash,
		EmailVerified:         false,
		Role:                  domain.RoleCustomer,
		Status:                domain.StatusPending,
		VerificationTokenHash: &tokenHash,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.dispatchVerificationEmail(account, rawToken)

	return account, nil
}

func (s *AccountService) dispatchVerificationEmail(account *domain.Account, rawToken string) {
	if s.mailer == nil {
		return
	}
	verifyURL := fmt.Sprintf("%s/verify-email/%s", s.config.AppBaseURL, rawToken)
	if err := s.mailer.SendVerificationEmail(account.Email, account.Name, verifyURL); err != nil {
		s.logger.Error("failed to send verification email", "error", err, "account_id", account.ID)
		return
	}
	s.logger.Info("verification email sent", "account_id", account.ID)
}

// Login authenticates an account by email and password. Unknown email and
// wrong password report the identical ErrInvalidCredentials so callers cannot
// probe which emails are registered. The verification check runs strictly
// after password verification for the same reason.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if !account.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID, time.Now()); err != nil {
		s.logger.Error("failed to update last login", "error", err, "account_id", account.ID)
	}

	return account, nil
}

// VerifyEmail consumes a verification token. The first successful call
// transitions the account to verified and clears the token; a repeat call
// with the same token fails with ErrInvalidVerificationToken because the
// token no longer matches anything. An account that is somehow already
// verified while still holding the token gets the stale token cleared and an
// already-verified success.
func (s *AccountService) VerifyEmail(ctx context.Context, rawToken string) (alreadyVerified bool, err error) {
	tokenHash := HashToken(rawToken)

	account, err := s.accounts.GetByVerificationTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, domain.ErrInvalidVerificationToken
		}
		return false, err
	}

	if account.EmailVerified {
		if err := s.accounts.ClearVerificationToken(ctx, account.ID); err != nil {
			return false, err
		}
		s.logger.Info("cleared stale verification token", "account_id", account.ID)
		return true, nil
	}

	transitioned, err := s.accounts.MarkVerified(ctx, account.ID)
	if err != nil {
		return false, err
	}
	if !transitioned {
		// A concurrent call won the conditional update; converge on the
		// already-verified outcome.
		return true, nil
	}

	s.logger.Info("email verified", "account_id", account.ID)
	return false, nil
}

// ForgotPassword issues a time-limited reset token and attempts to dispatch
// the reset email. Like signup, dispatch failure is logged and swallowed; the
// caller gets the same generic outcome either way.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		return err
	}

	rawToken, err := GenerateToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.config.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, HashToken(rawToken), expiresAt); err != nil {
		return err
	}

	if s.mailer != nil {
		resetURL := fmt.Sprintf("%s/reset-password/%s", s.config.AppBaseURL, rawToken)
		if err := s.mailer.SendPasswordResetEmail(account.Email, resetURL); err != nil {
			s.logger.Error("failed to send password reset email", "error", err, "account_id", account.ID)
		} else {
			s.logger.Info("password reset email sent", "account_id", account.ID)
		}
	}

	return nil
}

// ResetPassword replaces the password of the account holding this reset
// token, provided the token has not expired. Clearing the reset fields on
// success makes the token single-use.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	tokenHash := HashToken(rawToken)

	account, err := s.accounts.GetByActiveResetTokenHash(ctx, tokenHash, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidResetToken
		}
		return err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
		return err
	}

	s.logger.Info("password reset successful", "account_id", account.ID)
	return nil
}

// Profile returns the account behind an authenticated session's subject.
func (s *AccountService) Profile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// NormalizeEmail lowercases and trims an email address and rejects anything
// that does not parse as one.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return normalized, nil
}
