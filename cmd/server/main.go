// Command server runs the BudgetBee API.
//
// Configuration is environment-only. Required:
//
//	SESSION_SECRET — JWT signing key, at least 16 characters
//
// Optional (with defaults):
//
//	PORT                 (8080)
//	DB_PATH              (data/budgetbee.db)
//	SECURE_COOKIES       (false; set to "true" behind HTTPS)
//	GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_DISCOVERY_URL,
//	OAUTH_CALLBACK_URL   — enable login with Google
//	BREVO_API_KEY, MAIL_SENDER_NAME, MAIL_SENDER_EMAIL
//	                     — enable OTP and feedback email
//	ADMIN_NAME, ADMIN_EMAIL, ADMIN_PASSWORD
//	                     — bootstrap the first admin account
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/TAPV-Techworks/BudgetBee/internal/notify"
	"github.com/TAPV-Techworks/BudgetBee/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := configFromEnv()

	if cfg.SessionSecret == "" {
		logger.Error("SESSION_SECRET is required")
		os.Exit(1)
	}

	// The SQLite file needs its parent directory to exist.
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func configFromEnv() server.Config {
	return server.Config{
		Port:          envOr("PORT", "8080"),
		DBPath:        envOr("DB_PATH", "data/budgetbee.db"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleDiscoveryURL: envOr("GOOGLE_DISCOVERY_URL", "https://accounts.google.com/.well-known/openid-configuration"),
		OAuthCallbackURL:   os.Getenv("OAUTH_CALLBACK_URL"),

		Brevo: notify.Config{
			APIKey:      os.Getenv("BREVO_API_KEY"),
			SenderName:  envOr("MAIL_SENDER_NAME", "BudgetBee"),
			SenderEmail: os.Getenv("MAIL_SENDER_EMAIL"),
		},

		AdminName:     os.Getenv("ADMIN_NAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
