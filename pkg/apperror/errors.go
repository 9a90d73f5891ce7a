package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Callers branch on these, never on messages.
const (
	CodeNotFound          = "WLT_001"
	CodeBlocked           = "WLT_002"
	CodeInvalidAmount     = "WLT_003"
	CodeInvalidSecret     = "WLT_004"
	CodeInsufficientFunds = "WLT_005"
	CodeInvalidRequest    = "WLT_006"
	CodeRateUnavailable   = "WLT_007"

	CodeInvalidToken = "AUTH_001"
	CodeRateLimited  = "RATE_001"

	CodeInternal = "SYS_001"
	CodeConflict = "SYS_002"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// ---- Wallet & Ledger (WLT) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrBlocked(address string) *AppError {
	return New(CodeBlocked, fmt.Sprintf("wallet %s is blocked", address), http.StatusForbidden)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be a positive decimal with at most 8 fractional digits", http.StatusBadRequest)
}

func ErrInvalidSecret() *AppError {
	return New(CodeInvalidSecret, "Invalid private key", http.StatusUnauthorized)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusUnprocessableEntity)
}

func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

func ErrRateUnavailable(err error) *AppError {
	return Wrap(CodeRateUnavailable, "Exchange rate unavailable", http.StatusServiceUnavailable, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

// ErrConflict is returned when a concurrent update still conflicts after the retry budget.
func ErrConflict(err error) *AppError {
	return Wrap(CodeConflict, "Concurrent update conflict, retry the request", http.StatusConflict, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns an invalid-request error for malformed input.
func Validation(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}
