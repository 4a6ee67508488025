package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrInvalidAction     = errors.New("invalid action")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Kinds are the machine-checkable labels written next to every error message.
const (
	KindValidation        = "validation_error"
	KindUnauthenticated   = "unauthenticated"
	KindInvalidCredential = "invalid_credential"
	KindForbidden         = "forbidden"
	KindConflict          = "conflict"
	KindNotFound          = "not_found"
	KindInvalidAction     = "invalid_action"
	KindRateLimited       = "rate_limited"
	KindUpstream          = "upstream_failure"
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindFor(err),
		Message: message,
		Err:     err,
	}
}

// WithKind creates an AppError carrying a domain-specific kind such as
// "already_checked_in" while still unwrapping to the given sentinel.
func WithKind(kind, message string, err error) *AppError {
	return &AppError{
		Code:    MapErrorToStatus(err),
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidAction) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// MapErrorToKind returns the kind label for err.
func MapErrorToKind(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return kindFor(err)
}

func kindFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidAction):
		return KindInvalidAction
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimited
	default:
		return KindUpstream
	}
}
