package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository/sqlite"
	"github.com/TAPV-Techworks/BudgetBee/internal/service"
)

// captureMailer records outgoing mail instead of calling Brevo.
type captureMailer struct {
	mu       sync.Mutex
	otpCodes []string
	feedback []string
}

func (m *captureMailer) SendOTP(_ context.Context, _, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *captureMailer) SendFeedback(_ context.Context, admin *model.User, _ *model.User, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, admin.Email)
	return nil
}

func (m *captureMailer) lastOTP(t *testing.T) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.otpCodes) == 0 {
		t.Fatal("no OTP was sent")
	}
	return m.otpCodes[len(m.otpCodes)-1]
}

// testApp is the full stack over an in-memory database, served by
// httptest with a cookie-jar client so sessions behave like a browser.
type testApp struct {
	server *httptest.Server
	client *http.Client
	mailer *captureMailer
	auth   *service.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-key-for-handlers")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)
	mailer := &captureMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := service.NewAuthService(db, tokens, passwords, mailer, logger)
	ledgerSvc := service.NewLedgerService(db, db, db, mailer, logger)

	authH := NewAuthHandler(authSvc, nil, false)
	ledgerH := NewLedgerHandler(ledgerSvc, authSvc, false)
	exportH := NewExportHandler(ledgerSvc, authSvc)

	r := chi.NewRouter()
	r.Post("/signup", authH.Signup)
	r.Get("/login", authH.LoginPage)
	r.Post("/login", authH.Login)
	r.Get("/logout", authH.Logout)
	r.Post("/forgot_password", authH.ForgotPassword)
	r.Post("/verify_otp", authH.VerifyOTP)
	r.Post("/reset_password", authH.ResetPassword)
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
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(db))
			r.Get("/admin/users", authH.ListUsers)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar
	// Redirects (logout, OAuth) are asserted on directly.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testApp{server: srv, client: client, mailer: mailer, auth: authSvc}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (a *testApp) signupAndLogin(t *testing.T, name, email, password string) {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/signup", map[string]any{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/login", map[string]any{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupAndLogin(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/signup", map[string]any{
		"name": "Aisha", "email": "aisha@example.com", "password": "secret1!",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	user := body["user"].(map[string]any)
	assert.Equal(t, "aisha@example.com", user["email"])
	assert.NotEmpty(t, user["id"])

	// Credential fields must never appear in any response.
	raw, err := json.Marshal(body)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	resp = app.do(t, http.MethodPost, "/login", map[string]any{
		"email": "aisha@example.com", "password": "secret1!",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionCookie bool
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			sessionCookie = true
			assert.True(t, c.HttpOnly, "session cookie must be HttpOnly")
		}
	}
	assert.True(t, sessionCookie, "login must set the session cookie")
}

func TestSignupDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/signup", map[string]any{
		"name": "Clone", "email": "aisha@example.com", "password": "other2$!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/login", map[string]any{
		"email": "aisha@example.com", "password": "wrong99!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{
		"/user_profile",
		"/expense-tracker/monthly-income?month=March&year=2024",
		"/expense-tracker/balance?month=March&year=2024",
	} {
		resp := app.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestIncomeCRUD(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": "1500.50", "category": "Salary", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)["income"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "March", created["month"])
	assert.Equal(t, float64(2024), created["year"])

	// Amount arrives as a JSON number too.
	resp = app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": 200, "category": "Bonus", "date": "2024-03-20",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/expense-tracker/monthly-income?month=March&year=2024", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody(t, resp)["income"].([]any)
	assert.Len(t, list, 2)

	resp = app.do(t, http.MethodPut, "/expense-tracker/income/"+id, map[string]any{
		"amount": "1600", "category": "Salary", "date": "2024-04-05",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody(t, resp)["income"].(map[string]any)
	assert.Equal(t, "April", updated["month"])

	resp = app.do(t, http.MethodDelete, "/expense-tracker/income/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, http.MethodDelete, "/expense-tracker/income/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBalanceEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	for _, amount := range []string{"100.25", "49.75"} {
		resp := app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
			"amount": amount, "category": "Salary", "date": "2024-03-05",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp := app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "30", "category": "Food", "date": "2024-03-10", "description": "groceries",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/expense-tracker/balance?month=March&year=2024", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "150", body["total_income"])
	assert.Equal(t, "30", body["total_expense"])
	assert.Equal(t, "120", body["balance"])

	resp = app.do(t, http.MethodGet, "/expense-tracker/balance?month=March", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpenseValidation(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	// Missing description.
	resp := app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "30", "category": "Food", "date": "2024-03-10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Negative amount.
	resp = app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "-5", "category": "Food", "date": "2024-03-10", "description": "oops",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown field.
	resp = app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "5", "category": "Food", "date": "2024-03-10", "description": "ok", "typo_field": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": "100", "category": "Salary", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "30", "category": "Food", "date": "2024-03-10", "description": "groceries",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/expense-tracker/reset_income", map[string]any{
		"month": "March", "year": 2024,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = app.do(t, http.MethodPost, "/expense-tracker/reset_expenses", map[string]any{
		"month": "March", "year": 2024,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Nothing left to reset.
	resp = app.do(t, http.MethodPost, "/expense-tracker/reset_expenses", map[string]any{
		"month": "March", "year": 2024,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Income rows survive zeroed; expenses are gone.
	resp = app.do(t, http.MethodGet, "/expense-tracker/balance?month=March&year=2024", nil)
	body := decodeBody(t, resp)
	assert.Equal(t, "0", body["total_income"])
	assert.Equal(t, "0", body["total_expense"])
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/forgot_password", map[string]any{
		"email": "aisha@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := app.mailer.lastOTP(t)

	// Resetting without a verified OTP is refused.
	resp = app.do(t, http.MethodPost, "/reset_password", map[string]any{
		"new_password": "newpass2$", "confirm_password": "newpass2$",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/verify_otp", map[string]any{
		"email": "aisha@example.com", "otp": code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/reset_password", map[string]any{
		"new_password": "newpass2$", "confirm_password": "newpass2$",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/login", map[string]any{
		"email": "aisha@example.com", "password": "newpass2$",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/forgot_password", map[string]any{
		"email": "aisha@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code := app.mailer.lastOTP(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	resp = app.do(t, http.MethodPost, "/verify_otp", map[string]any{
		"email": "aisha@example.com", "otp": wrong,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = app.do(t, http.MethodGet, "/user_profile", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodGet, "/user_profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Aisha", body["name"])
	assert.Equal(t, "aisha@example.com", body["email"])
	assert.Equal(t, false, body["is_admin"])
}

func TestAdminUsers(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.auth.BootstrapAdmin(context.Background(), "Admin", "admin@example.com", "admin99!"))

	// Non-admin is refused.
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")
	resp := app.do(t, http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin sees everybody.
	loginResp := app.do(t, http.MethodPost, "/login", map[string]any{
		"email": "admin@example.com", "password": "admin99!",
	})
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	resp = app.do(t, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decodeBody(t, resp)["users"].([]any)
	assert.Len(t, users, 2)
}

func TestFeedback(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.auth.BootstrapAdmin(context.Background(), "Admin", "admin@example.com", "admin99!"))
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	resp := app.do(t, http.MethodPost, "/expense-tracker/feedback", map[string]any{
		"message": "export to xlsx is handy",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{"admin@example.com"}, app.mailer.feedback)

	resp = app.do(t, http.MethodPost, "/expense-tracker/feedback", map[string]any{
		"message": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportMonthly(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha Rahman", "aisha@example.com", "secret1!")

	// Empty period → 404.
	resp := app.do(t, http.MethodGet, "/expense-tracker/export-monthly?month=March&year=2024", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	r := app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": "100", "category": "Salary", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, r.StatusCode)

	resp = app.do(t, http.MethodGet, "/expense-tracker/export-monthly?month=March&year=2024", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t,
		fmt.Sprintf("attachment; filename=%q", "Aisha_Rahman_monthly_March_2024.xlsx"),
		resp.Header.Get("Content-Disposition"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// XLSX is a zip container; check the magic bytes.
	require.True(t, len(data) > 4)
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestExportYearly(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	r := app.do(t, http.MethodPost, "/expense-tracker/expense", map[string]any{
		"amount": "50", "category": "Transport", "date": "2024-06-01", "description": "fuel",
	})
	require.Equal(t, http.StatusCreated, r.StatusCode)

	resp := app.do(t, http.MethodGet, "/expense-tracker/export-yearly?year=2024", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		fmt.Sprintf("attachment; filename=%q", "Aisha_yearly_2024.xlsx"),
		resp.Header.Get("Content-Disposition"))

	resp = app.do(t, http.MethodGet, "/expense-tracker/export-yearly?year=1999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteAccount(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin(t, "Aisha", "aisha@example.com", "secret1!")

	r := app.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": "100", "category": "Salary", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, r.StatusCode)

	resp := app.do(t, http.MethodDelete, "/expense-tracker/delete_account", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The account is gone; the old credentials no longer work.
	resp = app.do(t, http.MethodPost, "/login", map[string]any{
		"email": "aisha@example.com", "password": "secret1!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	appA := newTestApp(t)
	appA.signupAndLogin(t, "Owner", "owner@example.com", "secret1!")
	r := appA.do(t, http.MethodPost, "/expense-tracker/income", map[string]any{
		"amount": "100", "category": "Salary", "date": "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, r.StatusCode)
	id := decodeBody(t, r)["income"].(map[string]any)["id"].(string)

	// Second user on the same server.
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	appA.client.Jar = jar
	appA.signupAndLogin(t, "Other", "other@example.com", "secret1!")

	resp := appA.do(t, http.MethodDelete, "/expense-tracker/income/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
