// Command seed-admin creates a pre-verified admin account, for bootstrapping
// a fresh deployment's back office.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/elegantmart/auth-service/internal/auth"
	"github.com/elegantmart/auth-service/internal/config"
	"github.com/elegantmart/auth-service/internal/domain"
	"github.com/elegantmart/auth-service/internal/repository"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	name := flag.String("name", "Admin", "admin display name")
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		logger.Error("both -email and -password are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.ApplyMigrations(db); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	normalized, err := auth.NormalizeEmail(*email)
	if err != nil {
		logger.Error("invalid email", "email", *email)
		os.Exit(2)
	}

	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		Name:          *name,
		Email:         normalized,
		PasswordHash:  passwordHash,
		EmailVerified: true,
		Role:          domain.RoleAdmin,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	repo := repository.NewAccountsRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			logger.Info("admin account already exists", "email", normalized)
			return
		}
		logger.Error("failed to create admin account", "error", err)
		os.Exit(1)
	}

	logger.Info("admin account created", "email", normalized, "id", account.ID)
}
