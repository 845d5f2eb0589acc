package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/service"
)

// LedgerHandler serves the income/expense, balance, reset, feedback,
// and account-deletion endpoints under /expense-tracker.
type LedgerHandler struct {
	ledger *service.LedgerService
	auth   *service.AuthService
	secure bool
}

// NewLedgerHandler creates a LedgerHandler. The auth service is needed
// for account deletion, which lives under the ledger prefix.
func NewLedgerHandler(ledger *service.LedgerService, authSvc *service.AuthService, secureCookies bool) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, auth: authSvc, secure: secureCookies}
}

// entryRequest is the write payload for income and expense endpoints.
// Amount accepts both a JSON number and a quoted string — decimal
// parses either, and strings keep exact cents exact.
type entryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
}

func (req entryRequest) toEntry() service.LedgerEntry {
	return service.LedgerEntry{
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
		Description: req.Description,
	}
}

type incomeResponse struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
	Month    string          `json:"month"`
	Year     int             `json:"year"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
}

func toIncomeResponse(inc *model.Income) incomeResponse {
	return incomeResponse{
		ID:       inc.ID,
		Amount:   inc.Amount,
		Category: inc.Category,
		Date:     inc.Date.Format(model.DateFormat),
		Month:    inc.Month,
		Year:     inc.Year,
	}
}

func toExpenseResponse(exp *model.Expense) expenseResponse {
	return expenseResponse{
		ID:          exp.ID,
		Amount:      exp.Amount,
		Category:    exp.Category,
		Description: exp.Description,
		Date:        exp.Date.Format(model.DateFormat),
		Month:       exp.Month,
		Year:        exp.Year,
	}
}

// requireUser pulls the authenticated userID out of the context. The
// middleware guarantees it's there on protected routes; the fallback
// covers a misconfigured route table.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return userID, true
}

// periodParams reads the ?month=&year= query parameters.
func periodParams(r *http.Request) (string, int, error) {
	month := r.URL.Query().Get("month")
	yearStr := r.URL.Query().Get("year")
	if month == "" || yearStr == "" {
		return "", 0, apperror.ValidationFailed("", "please provide both month and year")
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", 0, apperror.ValidationFailed("year", "year must be a number")
	}
	return month, year, nil
}

// AddIncome handles POST /expense-tracker/income.
func (h *LedgerHandler) AddIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inc, err := h.ledger.AddIncome(r.Context(), userID, req.toEntry())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "income added successfully",
		"income":  toIncomeResponse(inc),
	})
}

// MonthlyIncome handles GET /expense-tracker/monthly-income.
func (h *LedgerHandler) MonthlyIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	month, year, err := periodParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	incomes, err := h.ledger.ListIncome(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]incomeResponse, 0, len(incomes))
	for i := range incomes {
		out = append(out, toIncomeResponse(&incomes[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"income": out})
}

// UpdateIncome handles PUT /expense-tracker/income/{id}.
func (h *LedgerHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inc, err := h.ledger.UpdateIncome(r.Context(), userID, chi.URLParam(r, "id"), req.toEntry())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "income updated successfully",
		"income":  toIncomeResponse(inc),
	})
}

// DeleteIncome handles DELETE /expense-tracker/income/{id}.
func (h *LedgerHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteIncome(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "income deleted successfully"})
}

// AddExpense handles POST /expense-tracker/expense.
func (h *LedgerHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	exp, err := h.ledger.AddExpense(r.Context(), userID, req.toEntry())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "expense added successfully",
		"expense": toExpenseResponse(exp),
	})
}

// MonthlyExpenses handles GET /expense-tracker/monthly-expenses.
func (h *LedgerHandler) MonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	month, year, err := periodParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	expenses, err := h.ledger.ListExpenses(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

// UpdateExpense handles PUT /expense-tracker/expense/{id}.
func (h *LedgerHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	exp, err := h.ledger.UpdateExpense(r.Context(), userID, chi.URLParam(r, "id"), req.toEntry())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "expense updated successfully",
		"expense": toExpenseResponse(exp),
	})
}

// DeleteExpense handles DELETE /expense-tracker/expense/{id}.
func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteExpense(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "expense deleted successfully"})
}

// Balance handles GET /expense-tracker/balance.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	month, year, err := periodParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sum, err := h.ledger.Balance(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":         month,
		"year":          year,
		"total_income":  sum.TotalIncome,
		"total_expense": sum.TotalExpense,
		"balance":       sum.Balance,
	})
}

// resetRequest is the body of both reset endpoints.
type resetRequest struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
}

// ResetIncome handles POST /expense-tracker/reset_income.
func (h *LedgerHandler) ResetIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ledger.ResetIncome(r.Context(), userID, req.Month, req.Year); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "income reset successfully"})
}

// ResetExpenses handles POST /expense-tracker/reset_expenses.
func (h *LedgerHandler) ResetExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ledger.ResetExpenses(r.Context(), userID, req.Month, req.Year); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "expenses reset successfully"})
}

// Feedback handles POST /expense-tracker/feedback.
func (h *LedgerHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.ledger.SubmitFeedback(r.Context(), userID, req.Message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "thank you for your feedback"})
}

// DeleteAccount handles DELETE /expense-tracker/delete_account. The
// session cookie is cleared too — the account behind it no longer
// exists.
func (h *LedgerHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.auth.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted successfully"})
}
