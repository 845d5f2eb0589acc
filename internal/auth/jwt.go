// Package auth provides token generation and validation for the API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User signs up or logs in (password form or Google OAuth callback)
// 2. Server issues a JWT session token, stored in an HttpOnly cookie
// 3. On subsequent requests, middleware reads the cookie, validates the
//    JWT, and sets the userID in the request context
//
// WHY JWT?
// JWT is stateless — the server doesn't store session data. Everything
// needed (userID, scope, expiry) is inside the signed token, and the
// signature ensures nobody can tamper with it without the secret key.
//
// SCOPES:
// The same TokenService signs two kinds of tokens, distinguished by a
// custom "scope" claim:
//
//   - "session"        — the logged-in principal (24h, 30 days with remember-me)
//   - "password_reset" — a short-lived grant issued only after a successful
//     OTP verification, authorizing a single password reset
//
// Validation requires the expected scope, so a session cookie can never
// be replayed as a reset grant or vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "budgetbee"

// Token scopes. Scope is checked on every validation — a token is only
// good for the purpose it was minted for.
const (
	ScopeSession       = "session"
	ScopePasswordReset = "password_reset"
)

// Token lifetimes.
const (
	SessionDuration  = 24 * time.Hour
	RememberDuration = 30 * 24 * time.Hour
	ResetDuration    = OTPValidity // a reset grant lives as long as the code would have
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — keep it safe and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims (Issuer,
// Subject, ExpiresAt, IssuedAt) and adds the scope claim.
//
// "sub" (Subject) carries the internal user ID — the standard claim for
// identifying who the token belongs to.
type claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Generate creates and signs a token for the given userID and scope.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and right
// for a single-service deployment where one process signs and verifies.
func (s *TokenService) Generate(userID, scope string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, requiring the given scope.
// Returns the userID (the "sub" claim) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks —
//     without jwt.WithValidMethods an attacker could submit a token
//     signed with "none" and some parsers would accept it)
func (s *TokenService) Validate(tokenStr, scope string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Scope != scope {
		return "", fmt.Errorf("auth: token scope %q does not grant %q", c.Scope, scope)
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
