package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/auth"
	"github.com/TAPV-Techworks/BudgetBee/internal/export"
	"github.com/TAPV-Techworks/BudgetBee/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves the XLSX download endpoints.
type ExportHandler struct {
	ledger *service.LedgerService
	auth   *service.AuthService
}

// NewExportHandler creates an ExportHandler. The auth service supplies
// the user's name for the download filename.
func NewExportHandler(ledger *service.LedgerService, authSvc *service.AuthService) *ExportHandler {
	return &ExportHandler{ledger: ledger, auth: authSvc}
}

// Monthly handles GET /expense-tracker/export-monthly?month=&year=.
func (h *ExportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	month, year, err := periodParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	incomes, expenses, err := h.ledger.PeriodRecords(r.Context(), userID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := export.Workbook(incomes, expenses)
	if err != nil {
		writeError(w, err)
		return
	}

	name, err := h.userName(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.serve(w, data, fmt.Sprintf("%s_monthly_%s_%d.xlsx", name, month, year))
}

// Yearly handles GET /expense-tracker/export-yearly?year=. Year
// defaults to the current one when omitted.
func (h *ExportHandler) Yearly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, apperror.ValidationFailed("year", "year must be a number"))
			return
		}
		year = parsed
	}

	incomes, expenses, err := h.ledger.YearRecords(r.Context(), userID, year)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := export.Workbook(incomes, expenses)
	if err != nil {
		writeError(w, err)
		return
	}

	name, err := h.userName(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.serve(w, data, fmt.Sprintf("%s_yearly_%d.xlsx", name, year))
}

// userName returns the caller's display name, flattened for use in a
// filename.
func (h *ExportHandler) userName(r *http.Request) (string, error) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(user.Name, " ", "_"), nil
}

func (h *ExportHandler) serve(w http.ResponseWriter, data []byte, filename string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
