package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/elegantmart/auth-service/internal/domain"
)

// uniqueViolation is the Postgres error code for unique index violations.
const uniqueViolation = "23505"

const accountColumns = `
	id, name, email, phone, password_hash, email_verified, role, status,
	verification_token_hash, reset_token_hash, reset_expires_at,
	last_login_at, created_at, updated_at
`

// AccountsRepository handles account persistence.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// Create inserts a new account. A unique violation on the email index is
// mapped to domain.ErrDuplicateEmail so concurrent signups that race past the
// service's pre-check surface the same error.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, phone, password_hash, email_verified,
		                      role, status, verification_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Email, account.Phone, account.PasswordHash,
		account.EmailVerified, account.Role, account.Status,
		account.VerificationTokenHash, account.CreatedAt, account.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an account by email. Emails are stored normalized
// (lowercase), so lookups are effectively case-insensitive.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByVerificationTokenHash retrieves the account holding this verification
// token digest.
func (r *AccountsRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE verification_token_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// GetByActiveResetTokenHash retrieves the account holding this reset token
// digest with an expiry strictly after now.
func (r *AccountsRepository) GetByActiveResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE reset_token_hash = $1 AND reset_expires_at > $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash, now))
}

// MarkVerified flips an unverified account to verified, clears the
// verification token and activates it in a single conditional update. The
// row count tells the caller whether this call won the transition.
func (r *AccountsRepository) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE accounts
		SET email_verified = true,
		    verification_token_hash = NULL,
		    status = $2,
		    updated_at = NOW()
		WHERE id = $1 AND email_verified = false
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.StatusActive)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ClearVerificationToken removes a stale verification token.
func (r *AccountsRepository) ClearVerificationToken(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET verification_token_hash = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id)
}

// SetResetToken stores the reset token digest and its expiry.
func (r *AccountsRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id, tokenHash, expiresAt)
}

// UpdatePassword replaces the password hash and clears both reset fields,
// making the reset token single-use.
func (r *AccountsRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2,
		    reset_token_hash = NULL,
		    reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id, passwordHash)
}

// UpdateLastLogin stamps the last successful login time.
func (r *AccountsRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_login_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id, at)
}

func (r *AccountsRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountsRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID, &account.Name, &account.Email, &account.Phone,
		&account.PasswordHash, &account.EmailVerified, &account.Role, &account.Status,
		&account.VerificationTokenHash, &account.ResetTokenHash, &account.ResetExpiresAt,
		&account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
