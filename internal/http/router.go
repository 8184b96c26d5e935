package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/elegantmart/auth-service/internal/auth"
	"github.com/elegantmart/auth-service/internal/config"
	authfeature "github.com/elegantmart/auth-service/internal/http/features/auth"
	"github.com/elegantmart/auth-service/internal/http/middleware"
	"github.com/elegantmart/auth-service/internal/httputil"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	AccountService  *auth.AccountService
	SessionService  *auth.SessionService
	CookieConfig    httputil.CookieConfig
	AllowedOrigins  []string
	RateLimitConfig config.RateLimitConfig
	DB              *sql.DB
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(middleware.DefaultMaxRequestBodySize))

	// The storefront SPA is a cross-origin client using cookie auth, so
	// credentials must be allowed and origins listed explicitly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.PingContext(r.Context()); err != nil {
				httputil.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	authHandler := authfeature.NewHandler(
		cfg.Logger,
		cfg.AccountService,
		cfg.SessionService,
		cfg.CookieConfig,
	)

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["auth"])
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["reset"])
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password/{token}", authHandler.ResetPassword)
			r.Get("/verify-email/{token}", authHandler.VerifyEmail)
		})

		r.Post("/logout", authHandler.Logout)
		r.Get("/profile", authHandler.Profile)
	})

	return r
}
