package auth

import (
	"context"
	"net/http"
)

// Cookie names used by the middleware and the auth handlers.
//
// Both cookies are HttpOnly — JavaScript cannot read them, which keeps
// XSS from stealing tokens.
const (
	SessionCookie = "token"
	ResetCookie   = "reset_token"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type prevents other packages from reading or
// shadowing the userID value in the request context.
type contextKey string

const userIDKey contextKey = "userID"

// UserLoader looks up a user's admin capability by ID. Implemented by the
// user repository; declared here so the middleware doesn't depend on the
// repository package.
type UserLoader interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAuth is a middleware that enforces authentication on protected
// routes.
//
// It reads the JWT from the session cookie, validates it with the
// "session" scope, and stores the userID in the request context. If the
// token is missing, expired, or carries the wrong scope, it returns
// 401 Unauthorized and stops the request chain.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the admin capability on top of RequireAuth.
//
// The is_admin flag is read from the store on every request rather than
// baked into the token — revoking admin takes effect immediately instead
// of whenever the session token happens to expire.
//
// Must be mounted inside a RequireAuth chain; a request with no principal
// gets 401 here too.
func RequireAdmin(users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			isAdmin, err := users.IsAdmin(r.Context(), userID)
			if err != nil || !isAdmin {
				http.Error(w, `{"error":"forbidden","message":"admin access required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the
// request context.
//
// Returns ("", false) if the request carries no valid principal.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session JWT cookie and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return "", err
	}

	return tokens.Validate(cookie.Value, ScopeSession)
}
