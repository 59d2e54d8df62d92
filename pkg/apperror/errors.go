package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"tag-wallet/internal/core/domain"
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

// ---- Tag (TAG) ----

// ErrInvalidTag is the single code for every codec or integrity failure.
func ErrInvalidTag() *AppError {
	return New("TAG_001", "Invalid tag", http.StatusUnprocessableEntity)
}

func ErrTagNotBlank() *AppError {
	return New("TAG_002", "Tag is not blank", http.StatusConflict)
}

func ErrNoOperationArmed() *AppError {
	return New("TAG_003", "No operation armed", http.StatusConflict)
}

// ---- Balance & Cart (BAL) ----

func ErrInsufficientBalance() *AppError {
	return New("BAL_001", "Insufficient balance on tag", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("BAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("BAL_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrBalanceOverflow() *AppError {
	return New("BAL_004", "Balance would overflow", http.StatusUnprocessableEntity)
}

// ---- Hardware (HW) ----

func ErrHardware() *AppError {
	return New("HW_001", "Tag read/write failed", http.StatusServiceUnavailable)
}

func ErrSessionBusy() *AppError {
	return New("HW_002", "Another tag session is in progress", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrOperatorDisabled() *AppError {
	return New("AUTH_004", "Operator account is disabled", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTH_005", "Supervisor role required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a BAL_002-style validation error.
func Validation(message string) *AppError {
	return New("BAL_002", message, http.StatusBadRequest)
}

// FromDomain maps a domain error to its coded HTTP form. Codec and
// integrity failures all collapse to TAG_001. Unknown errors become SYS_001.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var mapped *AppError
	switch {
	case errors.Is(err, domain.ErrSessionBusy):
		mapped = ErrSessionBusy()
	case errors.Is(err, domain.ErrHardwareIO):
		mapped = ErrHardware()
	case errors.Is(err, domain.ErrNoOperationArmed):
		mapped = ErrNoOperationArmed()
	case errors.Is(err, domain.ErrTagNotBlank):
		mapped = ErrTagNotBlank()
	case errors.Is(err, domain.ErrInsufficientBalance):
		mapped = ErrInsufficientBalance()
	case errors.Is(err, domain.ErrBalanceOverflow):
		mapped = ErrBalanceOverflow()
	case errors.Is(err, domain.ErrUnknownProduct):
		mapped = ErrNotFound("Product")
	case errors.Is(err, domain.ErrInvalidQuantity):
		mapped = Validation("Invalid quantity")
	case errors.Is(err, domain.ErrUnauthorized):
		mapped = ErrForbidden()
	case errors.Is(err, domain.ErrMalformedRecord),
		errors.Is(err, domain.ErrAuthenticationFailed),
		errors.Is(err, domain.ErrStaleGeneration),
		errors.Is(err, domain.ErrUnsupportedVersion),
		errors.Is(err, domain.ErrGenerationExhausted),
		errors.Is(err, domain.ErrCapacityExceeded):
		mapped = ErrInvalidTag()
	default:
		return InternalError(err)
	}
	mapped.Err = err
	return mapped
}
