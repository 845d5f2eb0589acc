// Package service contains the business logic layer of the application.
//
// The three layers:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces rules, orchestrates
//	Repository (data)  → reads/writes the database
//
// Services take repository interfaces, not concrete types, so tests can
// substitute in-memory fakes and the sqlite package stays swappable.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository"
)

// emailPattern is deliberately loose: something, an @, something, a dot,
// something. Real validation happens when mail actually gets delivered
// (signup confirmation is out of scope); this only rejects obvious typos.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// passwordSymbols is the allowed symbol set for the password policy.
const passwordSymbols = "@$!%*#?&"

// OTPMailer delivers a freshly issued reset code to its owner. Satisfied
// by notify.Mailer; declared here so the service layer doesn't import the
// notify package.
type OTPMailer interface {
	SendOTP(ctx context.Context, toEmail, toName, code string) error
}

// AuthService handles signup, login (password and Google), the OTP
// password-reset flow, and account administration.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    OTPMailer
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer OTPMailer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		logger:    logger,
	}
}

// AuthResult bundles the principal and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// validatePassword enforces the signup/reset password policy: at least 6
// characters, at least one letter, one digit, and one symbol from the
// allowed set, and nothing outside letters/digits/that set.
func validatePassword(password string) error {
	if len(password) < 6 {
		return apperror.ValidationFailed("password", "password must be at least 6 characters long")
	}

	var hasLetter, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		default:
			return apperror.ValidationFailed("password", "password must contain letters, numbers, and symbols")
		}
	}
	if !hasLetter || !hasDigit || !hasSymbol {
		return apperror.ValidationFailed("password", "password must contain letters, numbers, and symbols")
	}
	return nil
}

// Signup registers a new password account.
//
// All validation happens before any store mutation; a duplicate email
// surfaces as apperror.ErrDuplicate from the repository.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "please fill out all fields")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "invalid email address")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing signup password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("new user signed up", slog.String("userID", user.ID))
	return user, nil
}

// errBadCredentials is the single message for every password-login
// failure — unknown email, wrong password, or a password-less OAuth
// account. One message, no oracle.
func errBadCredentials() error {
	return apperror.ValidationFailed("credentials", "please check your login details and try again")
}

// Login verifies email+password credentials and issues a session token.
// remember extends the session from 24 hours to 30 days.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "please fill out all fields")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errBadCredentials()
	}

	// OAuth-only accounts (no stored hash) never pass password login.
	if !user.HasPassword() {
		return nil, errBadCredentials()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt", slog.String("userID", user.ID))
		return nil, errBadCredentials()
	}

	duration := auth.SessionDuration
	if remember {
		duration = auth.RememberDuration
	}
	token, err := s.tokens.Generate(user.ID, auth.ScopeSession, duration)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGoogle handles the Google OAuth callback.
//
// Requires the provider to assert email_verified — an unverified address
// is not an identity. First-time identities get a local account with an
// EMPTY password hash: password login stays disabled for them until they
// set one through the OTP reset flow (which proves email ownership).
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}
	if !gUser.EmailVerified || gUser.Email == "" {
		return nil, apperror.Forbidden("user email not available or not verified by Google")
	}

	user, err := s.users.GetByEmail(ctx, gUser.Email)
	if err != nil {
		if !apperror.IsNotFound(err) {
			return nil, fmt.Errorf("service/auth: looking up Google user: %w", err)
		}
		user = &model.User{
			Name:  gUser.Name(),
			Email: gUser.Email,
			// No PasswordHash: this account is OAuth-only.
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating Google user: %w", err)
		}
		s.logger.Info("new user registered via Google", slog.String("userID", user.ID))
	}

	token, err := s.tokens.Generate(user.ID, auth.ScopeSession, auth.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token: %w", err)
	}

	s.logger.Info("user authenticated via Google", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// profile handler after the middleware validates the session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// ListUsers returns every account. Admin-only; the handler gates it.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// ForgotPassword issues a fresh OTP for the account behind email and
// sends it there.
//
// The plaintext code exists only in the email; the store holds its
// bcrypt hash and issuance time. Issuing overwrites any pending code, so
// at most one code is ever verifiable per account. Email delivery is
// best-effort: a provider failure is logged and the request still
// succeeds (the client can retry).
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	hash, err := s.passwords.Hash(code)
	if err != nil {
		return fmt.Errorf("service/auth: hashing OTP: %w", err)
	}
	if err := s.users.SetOTP(ctx, user.ID, hash, time.Now()); err != nil {
		return fmt.Errorf("service/auth: storing OTP: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, user.Name, code); err != nil {
		s.logger.Error("failed to send OTP email",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("password-reset OTP issued", slog.String("userID", user.ID))
	return nil
}

// VerifyOTP checks a submitted reset code and, on success, returns a
// short-lived password-reset grant token.
//
// FAIL CLOSED, ONE MESSAGE:
// A missing code, a wrong code, and an expired code all produce the same
// error — distinguishing them would hand an attacker an oracle.
//
// The stored hash is cleared on success, so each issued code verifies at
// most once; a new reset attempt needs a new code.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if email == "" || code == "" {
		return "", apperror.ValidationFailed("", "email and OTP are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	invalid := apperror.ValidationFailed("otp", "invalid or expired OTP")
	if user.OTPHash == "" {
		return "", invalid
	}
	if err := s.passwords.Verify(user.OTPHash, code); err != nil {
		return "", invalid
	}
	if time.Since(user.OTPCreatedAt) > auth.OTPValidity {
		return "", invalid
	}

	// Single use: the hash goes away the moment it verifies.
	if err := s.users.ClearOTP(ctx, user.ID); err != nil {
		return "", fmt.Errorf("service/auth: clearing verified OTP: %w", err)
	}

	grant, err := s.tokens.Generate(user.ID, auth.ScopePasswordReset, auth.ResetDuration)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating reset grant: %w", err)
	}

	s.logger.Info("OTP verified", slog.String("userID", user.ID))
	return grant, nil
}

// ValidateResetGrant validates a password-reset grant token and returns
// the userID it authorizes. Used by the reset handler; a session token
// does not pass (wrong scope).
func (s *AuthService) ValidateResetGrant(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr, auth.ScopePasswordReset)
	if err != nil {
		return "", apperror.Forbidden("OTP not verified; cannot reset password")
	}
	return userID, nil
}

// ResetPassword sets a new password for the user behind a verified reset
// grant. The grant is consumed by the handler clearing its cookie;
// re-verification is required for any further reset.
func (s *AuthService) ResetPassword(ctx context.Context, userID, newPassword, confirmPassword string) error {
	if newPassword == "" || confirmPassword == "" || newPassword != confirmPassword {
		return apperror.ValidationFailed("password", "passwords do not match or fields are empty")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	// Same-password check only applies to accounts that have one.
	if user.HasPassword() {
		if err := s.passwords.Verify(user.PasswordHash, newPassword); err == nil {
			return apperror.ValidationFailed("password", "new password cannot be the same as the current password")
		}
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}
	// Belt and braces: drop any OTP state left over from a parallel flow.
	if err := s.users.ClearOTP(ctx, user.ID); err != nil {
		return fmt.Errorf("service/auth: clearing OTP state: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))
	return nil
}

// DeleteAccount removes the user and every row they own, atomically.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: deleting account %s: %w", userID, err)
	}
	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

// BootstrapAdmin ensures an admin account exists at startup. Idempotent:
// if the email is taken, nothing happens. Mirrors the usual "first admin
// from config" pattern so a fresh deployment isn't admin-less.
func (s *AuthService) BootstrapAdmin(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return nil // bootstrap not configured
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil // already exists
	}
	if !apperror.IsNotFound(err) {
		return fmt.Errorf("service/auth: checking for admin account: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing admin password: %w", err)
	}
	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("service/auth: creating admin account: %w", err)
	}

	s.logger.Info("admin account bootstrapped", slog.String("userID", admin.ID))
	return nil
}
