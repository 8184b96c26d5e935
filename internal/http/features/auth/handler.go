package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elegantmart/auth-service/internal/auth"
	"github.com/elegantmart/auth-service/internal/domain"
	"github.com/elegantmart/auth-service/internal/httputil"
)

// Handler handles the account lifecycle endpoints.
type Handler struct {
	logger         *slog.Logger
	accountService *auth.AccountService
	sessionService *auth.SessionService
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new auth handler.
func NewHandler(
	logger *slog.Logger,
	accountService *auth.AccountService,
	sessionService *auth.SessionService,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:         logger,
		accountService: accountService,
		sessionService: sessionService,
		cookieConfig:   cookieConfig,
	}
}

// SignupRequest represents a signup request.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// SignupResponse tells the caller to go check their inbox. It never carries
// the verification token or any credential material.
type SignupResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the public account fields; the session itself rides
// in the Set-Cookie header.
type LoginResponse struct {
	Message string               `json:"message"`
	User    domain.PublicAccount `json:"user"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// VerifyEmailResponse represents the verification outcome.
type VerifyEmailResponse struct {
	Message         string `json:"message"`
	AlreadyVerified bool   `json:"alreadyVerified,omitempty"`
}

// Signup handles account creation.
// POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	account, err := h.accountService.Signup(r.Context(), auth.SignupParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			httputil.Error(w, http.StatusBadRequest, "email already registered")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		default:
			h.logger.Error("signup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, SignupResponse{
		Message: "Account created successfully! Please check your email to verify your account.",
		Email:   account.Email,
	})
}

// Login handles authentication and issues the session cookie.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	account, err := h.accountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusBadRequest, "invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			httputil.Error(w, http.StatusForbidden, "email not verified")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	token, err := h.sessionService.IssueSession(account.ID, account.Email, account.Role)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "account_id", account.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputil.SetSessionCookie(w, token, h.sessionService.TTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		User:    account.Public(),
	})
}

// Logout clears the session cookie. It always succeeds; there is no
// precondition on being logged in.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Profile returns the public fields of the authenticated account.
// GET /api/auth/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.GetSessionFromCookie(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	claims, err := h.sessionService.VerifySession(token)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid token")
		return
	}

	accountID, err := auth.AccountIDFromClaims(claims)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid token")
		return
	}

	account, err := h.accountService.Profile(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httputil.Error(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("failed to load profile", "error", err, "account_id", accountID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	httputil.JSON(w, http.StatusOK, account.Public())
}

// ForgotPasswordRequest represents a forgot-password request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token and dispatches the reset email.
// POST /api/auth/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.accountService.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httputil.Error(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("forgot password failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// ResetPasswordRequest represents a reset-password request.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword consumes a reset token and replaces the password.
// POST /api/auth/reset-password/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.accountService.ResetPassword(r.Context(), token, req.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			httputil.Error(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		h.logger.Error("reset password failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

// VerifyEmail consumes an email verification token.
// GET /api/auth/verify-email/{token}
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	alreadyVerified, err := h.accountService.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidVerificationToken) {
			httputil.Error(w, http.StatusBadRequest,
				"This verification link has already been used or has expired. If you already verified your email, please try logging in.")
			return
		}
		h.logger.Error("email verification failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "verification failed")
		return
	}

	if alreadyVerified {
		httputil.JSON(w, http.StatusOK, VerifyEmailResponse{
			Message:         "Your email is already verified! You can now login to your account.",
			AlreadyVerified: true,
		})
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyEmailResponse{
		Message: "Email verified successfully! You can now login to your account.",
	})
}
