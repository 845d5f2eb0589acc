// Package server wires the application together: storage, services,
// handlers, routes, and the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/handler"
	"github.com/TAPV-Techworks/BudgetBee/internal/middleware"
	"github.com/TAPV-Techworks/BudgetBee/internal/notify"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository/sqlite"
	"github.com/TAPV-Techworks/BudgetBee/internal/service"
)

// Config holds everything the server needs to run. Populated from the
// environment in cmd/server.
type Config struct {
	Port          string
	DBPath        string
	SessionSecret string
	SecureCookies bool

	// Google OAuth; login-with-Google stays disabled when unset.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleDiscoveryURL string
	OAuthCallbackURL   string

	// Brevo transactional email.
	Brevo notify.Config

	// Optional first-admin bootstrap.
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Server is the assembled application.
type Server struct {
	cfg    Config
	logger *slog.Logger
	db     *sqlite.DB
	router chi.Router
	http   *http.Server
}

// New builds the full dependency graph. OAuth misconfiguration (partial
// credentials) is an error; fully absent credentials just disable the
// Google login routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, err
	}
	passwords := auth.NewPasswordService()
	mailer := notify.NewMailer(cfg.Brevo)
	if !cfg.Brevo.Configured() {
		logger.Warn("email delivery not configured; OTP and feedback emails will fail")
	}

	var google *auth.GoogleProvider
	if cfg.GoogleClientID != "" || cfg.GoogleClientSecret != "" {
		google, err = auth.NewGoogleProvider(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleDiscoveryURL,
			cfg.OAuthCallbackURL,
		)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	authSvc := service.NewAuthService(db, tokens, passwords, mailer, logger)
	ledgerSvc := service.NewLedgerService(db, db, db, mailer, logger)

	// A failed bootstrap shouldn't keep the server down; an existing
	// deployment already has its admin.
	if err := authSvc.BootstrapAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("admin bootstrap failed", slog.String("error", err.Error()))
	}

	s := &Server{cfg: cfg, logger: logger, db: db}
	s.router = s.routes(
		handler.NewAuthHandler(authSvc, google, cfg.SecureCookies),
		handler.NewLedgerHandler(ledgerSvc, authSvc, cfg.SecureCookies),
		handler.NewExportHandler(ledgerSvc, authSvc),
		tokens,
		db,
		google != nil,
	)
	s.http = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(
	authH *handler.AuthHandler,
	ledgerH *handler.LedgerHandler,
	exportH *handler.ExportHandler,
	tokens *auth.TokenService,
	users auth.UserLoader,
	googleEnabled bool,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)

	// Public.
	r.Post("/signup", authH.Signup)
	r.Get("/login", authH.LoginPage)
	r.Post("/login", authH.Login)
	r.Get("/logout", authH.Logout)
	r.Post("/forgot_password", authH.ForgotPassword)
	r.Post("/verify_otp", authH.VerifyOTP)
	r.Post("/reset_password", authH.ResetPassword)
	if googleEnabled {
		r.Get("/login/google", authH.GoogleLogin)
		r.Get("/login/google/callback", authH.GoogleCallback)
	}

	// Session required.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/user_profile", authH.Profile)

		r.Route("/expense-tracker", func(r chi.Router) {
			r.Post("/income", ledgerH.AddIncome)
			r.Get("/monthly-income", ledgerH.MonthlyIncome)
			r.Put("/income/{id}", ledgerH.UpdateIncome)
			r.Delete("/income/{id}", ledgerH.DeleteIncome)

			r.Post("/expense", ledgerH.AddExpense)
			r.Get("/monthly-expenses", ledgerH.MonthlyExpenses)
			r.Put("/expense/{id}", ledgerH.UpdateExpense)
			r.Delete("/expense/{id}", ledgerH.DeleteExpense)

			r.Get("/balance", ledgerH.Balance)
			r.Post("/reset_income", ledgerH.ResetIncome)
			r.Post("/reset_expenses", ledgerH.ResetExpenses)

			r.Get("/export-monthly", exportH.Monthly)
			r.Get("/export-yearly", exportH.Yearly)

			r.Post("/feedback", ledgerH.Feedback)
			r.Delete("/delete_account", ledgerH.DeleteAccount)
		})

		// Admin only.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(users))
			r.Get("/admin/users", authH.ListUsers)
		})
	})

	return r
}

// Start runs the HTTP server until ctx is cancelled, then drains
// in-flight requests for up to 30 seconds before closing the database.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.db.Close()
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return s.db.Close()
}
