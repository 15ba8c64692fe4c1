package apperror

import (
	"errors"
	"fmt"
	"net/http"
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

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrPaymentAlreadyCompleted()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
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

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Authorization (AUTH) ----

func ErrNotAuthorized() *AppError {
	return New("AUTH_001", "Caller is not authorized for this operation", http.StatusForbidden)
}

func ErrConsentRequired() *AppError {
	return New("AUTH_002", "Missing or invalid consent for address", http.StatusUnauthorized)
}

func ErrConsentReplayed() *AppError {
	return New("AUTH_003", "Consent token has already been used", http.StatusUnauthorized)
}

// ---- Payment requests (PAY) ----

func ErrPaymentNotFound() *AppError {
	return New("PAY_001", "Payment request not found", http.StatusNotFound)
}

// ErrPaymentNotActionable shares PAY_001: a request outside Pending/Completed
// is reported as not found.
func ErrPaymentNotActionable() *AppError {
	return New("PAY_001", "Payment request is no longer actionable", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrInvalidFeePercentage() *AppError {
	return New("PAY_003", "Fee must be between 0 and 10000 basis points", http.StatusBadRequest)
}

func ErrPaymentAlreadyCompleted() *AppError {
	return New("PAY_004", "Payment request already completed", http.StatusConflict)
}

func ErrInsufficientBalance() *AppError {
	return New("PAY_005", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrAmountOutOfRange() *AppError {
	return New("PAY_007", "Amount outside the business range", http.StatusUnprocessableEntity)
}

func ErrInvalidAddress() *AppError {
	return New("PAY_006", "Invalid address", http.StatusBadRequest)
}

// ---- Businesses (BIZ) ----

func ErrBusinessNotActive() *AppError {
	return New("BIZ_001", "Business is not active", http.StatusUnprocessableEntity)
}

func ErrBusinessNotFound() *AppError {
	return New("BIZ_002", "Business not found", http.StatusNotFound)
}

// ---- Contract administration (ADM) ----

func ErrContractNotInitialized() *AppError {
	return New("ADM_001", "Contract is not initialized", http.StatusServiceUnavailable)
}

func ErrAlreadyInitialized() *AppError {
	return New("ADM_002", "Contract is already initialized", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLedgerFailure(err error) *AppError {
	return Wrap("SYS_002", "Ledger transfer failed", http.StatusBadGateway, err)
}

// Validation returns a VAL_001 error for malformed input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
