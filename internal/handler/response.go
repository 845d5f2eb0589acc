// Package handler implements the HTTP layer: request parsing, cookie
// management, and response writing. All business rules live in the
// service layer; handlers translate between HTTP and services.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps an application error onto an HTTP status.
//
// The mapping is the ONLY place error kinds become status codes:
//
//	validation  → 400
//	duplicate   → 400 (a taken email is a form problem, not a conflict)
//	unauthorized→ 401
//	forbidden   → 403
//	not found   → 404
//	everything else → 500 with a generic body; the detail goes to the
//	log, never to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrDuplicate):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrForbidden):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: appErr.Message})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: appErr.Message})
			return
		}
	}

	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// decodeJSON parses the request body into dst, rejecting unknown fields
// so client typos surface as 400s rather than silently ignored input.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("", "invalid request body")
	}
	return nil
}
