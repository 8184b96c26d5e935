package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elegantmart/auth-service/internal/auth"
	"github.com/elegantmart/auth-service/internal/domain"
	"github.com/elegantmart/auth-service/internal/httputil"
)

// fakeStore is a minimal in-memory AccountStore backing the handler tests.
type fakeStore struct {
	accounts map[uuid.UUID]*domain.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (s *fakeStore) Create(_ context.Context, account *domain.Account) error {
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrDuplicateEmail
		}
	}
	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *fakeStore) GetByVerificationTokenHash(_ context.Context, tokenHash string) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.VerificationTokenHash != nil && *a.VerificationTokenHash == tokenHash {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *fakeStore) GetByActiveResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash && a.HasActiveReset(now) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *fakeStore) MarkVerified(_ context.Context, id uuid.UUID) (bool, error) {
	a, ok := s.accounts[id]
	if !ok {
		return false, domain.ErrAccountNotFound
	}
	if a.EmailVerified {
		return false, nil
	}
	a.EmailVerified = true
	a.VerificationTokenHash = nil
	a.Status = domain.StatusActive
	return true, nil
}

func (s *fakeStore) ClearVerificationToken(_ context.Context, id uuid.UUID) error {
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.VerificationTokenHash = nil
	return nil
}

func (s *fakeStore) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ResetTokenHash = &tokenHash
	a.ResetExpiresAt = &expiresAt
	return nil
}

func (s *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	a.ResetTokenHash = nil
	a.ResetExpiresAt = nil
	return nil
}

func (s *fakeStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.LastLoginAt = &at
	return nil
}

// fakeMailer records emailed links so tests can fish out raw tokens.
type fakeMailer struct {
	verifyURLs []string
	resetURLs  []string
}

func (m *fakeMailer) SendVerificationEmail(_, _, verifyURL string) error {
	m.verifyURLs = append(m.verifyURLs, verifyURL)
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_, resetURL string) error {
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func lastToken(t *testing.T, urls []string) string {
	t.Helper()
	if len(urls) == 0 {
		t.Fatal("no emails dispatched")
	}
	parts := strings.Split(urls[len(urls)-1], "/")
	return parts[len(parts)-1]
}

func newTestRouter(t *testing.T) (http.Handler, *fakeMailer) {
	t.Helper()

	store := newFakeStore()
	mailer := &fakeMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accountService := auth.NewAccountService(auth.AccountConfig{
		AppBaseURL: "http://localhost:5173",
	}, logger, store, mailer)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		Secret: []byte("test-secret-key-at-least-32-chars!!"),
		Issuer: "elegant-mart",
	})

	handler := NewHandler(logger, accountService, sessionService, httputil.NewCookieConfig(false))

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", handler.Signup)
		r.Post("/login", handler.Login)
		r.Post("/logout", handler.Logout)
		r.Get("/profile", handler.Profile)
		r.Post("/forgot-password", handler.ForgotPassword)
		r.Post("/reset-password/{token}", handler.ResetPassword)
		r.Get("/verify-email/{token}", handler.VerifyEmail)
	})
	return r, mailer
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func signup(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Ali","email":"ali@x.com","password":"Secret1!"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body)
	}
}

func verify(t *testing.T, router http.Handler, mailer *fakeMailer) {
	t.Helper()
	token := lastToken(t, mailer.verifyURLs)
	rec := doJSON(t, router, http.MethodGet, "/api/auth/verify-email/"+token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == httputil.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSignup(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Ali","email":"ali@x.com","password":"Secret1!","phone":"0300-1234567"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	body := decodeBody(t, rec)
	if body["email"] != "ali@x.com" {
		t.Errorf("email = %v, want %q", body["email"], "ali@x.com")
	}
	if body["message"] == "" {
		t.Error("missing message")
	}
	// The response must never leak credential material.
	raw := rec.Body.String()
	for _, field := range []string{"password", "token", "hash"} {
		if strings.Contains(raw, field) {
			t.Errorf("response contains %q: %s", field, raw)
		}
	}
}

func TestSignup_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid}`},
		{"missing name", `{"email":"ali@x.com","password":"Secret1!"}`},
		{"missing email", `{"name":"Ali","password":"Secret1!"}`},
		{"missing password", `{"name":"Ali","email":"ali@x.com"}`},
		{"malformed email", `{"name":"Ali","email":"nope","password":"Secret1!"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/auth/signup", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)
	signup(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"name":"Impostor","email":"ali@x.com","password":"Other2@"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, rec)
	if body["error"] != "email already registered" {
		t.Errorf("error = %v, want %q", body["error"], "email already registered")
	}
}

func TestLogin(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)
	verify(t, router, mailer)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"Secret1!"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
	if cookie.MaxAge <= 0 {
		t.Errorf("session cookie MaxAge = %d, want > 0", cookie.MaxAge)
	}

	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user in response: %v", body)
	}
	if user["name"] != "Ali" || user["email"] != "ali@x.com" || user["role"] != "customer" {
		t.Errorf("unexpected user payload: %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Error("response leaks password field")
	}
}

func TestLogin_Failures(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)

	// Unverified account with correct credentials: 403, not 400.
	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"Secret1!"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unverified login status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	verify(t, router, mailer)

	// Wrong password and unknown email must be indistinguishable.
	wrongPw := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"WrongPw1!"}`)
	unknown := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@x.com","password":"Secret1!"}`)

	if wrongPw.Code != http.StatusBadRequest || unknown.Code != http.StatusBadRequest {
		t.Errorf("status = %d/%d, want %d for both", wrongPw.Code, unknown.Code, http.StatusBadRequest)
	}
	if wrongPw.Body.String() != unknown.Body.String() {
		t.Errorf("failure bodies differ: %q vs %q", wrongPw.Body, unknown.Body)
	}
}

func TestProfile(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)
	verify(t, router, mailer)

	// No cookie: unauthenticated.
	rec := doJSON(t, router, http.MethodGet, "/api/auth/profile", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Garbage cookie: unauthenticated.
	rec = doJSON(t, router, http.MethodGet, "/api/auth/profile", "",
		&http.Cookie{Name: httputil.SessionCookieName, Value: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Valid session: exact public fields.
	login := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"Secret1!"}`)
	rec = doJSON(t, router, http.MethodGet, "/api/auth/profile", "", sessionCookie(t, login))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	body := decodeBody(t, rec)
	if body["name"] != "Ali" || body["email"] != "ali@x.com" || body["role"] != "customer" {
		t.Errorf("unexpected profile payload: %v", body)
	}
	if len(body) != 4 {
		t.Errorf("profile has %d fields, want exactly id/name/email/role: %v", len(body), body)
	}
}

func TestLogout(t *testing.T) {
	router, _ := newTestRouter(t)

	// No precondition on being logged in.
	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	cookie := sessionCookie(t, rec)
	if cookie.Value != "" {
		t.Errorf("cookie value = %q, want empty", cookie.Value)
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want < 0", cookie.MaxAge)
	}
}

func TestVerifyEmail(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)
	token := lastToken(t, mailer.verifyURLs)

	rec := doJSON(t, router, http.MethodGet, "/api/auth/verify-email/"+token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}
	if body := decodeBody(t, rec); body["alreadyVerified"] != nil {
		t.Errorf("first verification should not report alreadyVerified: %v", body)
	}

	// Replaying the consumed token fails.
	rec = doJSON(t, router, http.MethodGet, "/api/auth/verify-email/"+token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replay status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/auth/verify-email/"+strings.Repeat("ab", 32), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestForgotPassword(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", `{"email":"ali@x.com"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(mailer.resetURLs) != 1 {
		t.Errorf("reset emails dispatched = %d, want 1", len(mailer.resetURLs))
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown email status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResetPassword(t *testing.T) {
	router, mailer := newTestRouter(t)
	signup(t, router)
	verify(t, router, mailer)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", `{"email":"ali@x.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot status = %d, want %d", rec.Code, http.StatusOK)
	}
	token := lastToken(t, mailer.resetURLs)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"NewSecret2@"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	// New password authenticates, old one no longer does.
	rec = doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"NewSecret2@"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"ali@x.com","password":"Secret1!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("login with old password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// The token is single-use.
	rec = doJSON(t, router, http.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"Another3#"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replay status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/auth/reset-password/%s", strings.Repeat("cd", 32)),
		`{"password":"NewSecret2@"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
