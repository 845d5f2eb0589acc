package handler

import (
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/service"
)

// stateCookie holds the OAuth CSRF state between the redirect to Google
// and its callback.
const stateCookie = "oauth_state"

// AuthHandler serves the authentication and account endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	google *auth.GoogleProvider // nil when OAuth is not configured
	secure bool                 // Secure flag on all cookies; on outside local dev
}

// NewAuthHandler creates an AuthHandler. google may be nil; the OAuth
// endpoints then respond with a configuration error.
func NewAuthHandler(authSvc *service.AuthService, google *auth.GoogleProvider, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authSvc, google: google, secure: secureCookies}
}

// userResponse is the public view of an account. The model already
// hides credential fields from JSON; this narrows further to what the
// frontend needs.
type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, remember bool) {
	maxAge := int(auth.SessionDuration.Seconds())
	if remember {
		maxAge = int(auth.RememberDuration.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "account created successfully",
		"user":    toUserResponse(user),
	})
}

// LoginPage handles GET /login. There is no server-rendered form; the
// endpoint exists so the logout redirect lands somewhere sensible.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "POST credentials to /login to authenticate",
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token, req.Remember)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in successfully",
		"user":    toUserResponse(res.User),
	})
}

// GoogleLogin handles GET /login/google: generates the CSRF state,
// stashes it in a short-lived cookie, and redirects to Google.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.NotConfigured("Google login"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	url, err := h.google.AuthURL(r.Context(), state)
	if err != nil {
		writeError(w, apperror.Upstream("google", err))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback handles GET /login/google/callback.
//
// The state query parameter must match the cookie set by GoogleLogin —
// a mismatch means the callback wasn't started by us and gets rejected
// before any token exchange.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.NotConfigured("Google login"))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, apperror.Forbidden("OAuth state mismatch"))
		return
	}
	h.clearCookie(w, stateCookie)

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing authorization code"))
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, apperror.Upstream("google", err))
		return
	}

	res, err := h.auth.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token, false)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles GET /logout: drops the session cookie and sends the
// client back to the login page. Stateless tokens can't be revoked
// server-side; clearing the cookie is the logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.SessionCookie)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Profile handles GET /user_profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ForgotPassword handles POST /forgot_password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "an OTP has been sent to your email address",
	})
}

// VerifyOTP handles POST /verify_otp. Success sets the reset-grant
// cookie that authorizes the subsequent /reset_password call.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.ResetCookie,
		Value:    grant,
		Path:     "/",
		MaxAge:   int(auth.ResetDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTP verified; you may now reset your password",
	})
}

// ResetPassword handles POST /reset_password. Authorization comes from
// the reset-grant cookie, not the session — a logged-out user resetting
// a forgotten password has no session.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.ResetCookie)
	if err != nil {
		writeError(w, apperror.Forbidden("OTP not verified; cannot reset password"))
		return
	}
	userID, err := h.auth.ValidateResetGrant(cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), userID, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}

	// The grant is single-use: gone the moment the reset lands.
	h.clearCookie(w, auth.ResetCookie)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password reset successfully",
	})
}

// ListUsers handles GET /admin/users. RequireAdmin gates the route.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}
