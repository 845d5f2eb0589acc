package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrDuplicate     = errors.New("duplicate")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrUpstream      = errors.New("upstream provider error")
	ErrNotConfigured = errors.New("not configured")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-supplied message, for
// lookups that aren't keyed by a single id (e.g. a (month, year) period).
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a unique-constraint conflict. The HTTP layer maps
// this to 400, matching the public API contract for duplicate signups.
func Duplicate(field, message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for requests with no valid principal.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Upstream wraps a failure from an external provider (identity, email).
// The cause stays in the chain for logging; the message shown to clients
// names only the provider, never the underlying error detail.
func Upstream(provider string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, err),
		Message: fmt.Sprintf("%s provider request failed", provider),
	}
}

// NotConfigured reports that a required external integration has no
// configuration. Surfaced before any network call is attempted.
func NotConfigured(what string) *AppError {
	return &AppError{
		Err:     ErrNotConfigured,
		Message: fmt.Sprintf("%s is not configured", what),
	}
}

// IsNotFound reports whether err is (or wraps) a not-found error.
// Shorthand for the most common errors.Is check in the service layer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
