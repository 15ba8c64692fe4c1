package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := ErrPaymentAlreadyCompleted()
	assert.Equal(t, "[PAY_004] Payment request already completed", err.Error())

	wrapped := InternalError(errors.New("conn reset"))
	assert.Equal(t, "[SYS_001] Internal server error: conn reset", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("ledger offline")
	err := ErrLedgerFailure(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("execute: %w", ErrPaymentAlreadyCompleted())

	assert.True(t, errors.Is(err, ErrPaymentAlreadyCompleted()))
	assert.False(t, errors.Is(err, ErrPaymentNotFound()))
	// Not actionable is reported in the not-found class.
	assert.True(t, errors.Is(ErrPaymentNotActionable(), ErrPaymentNotFound()))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "BIZ_001", CodeOf(fmt.Errorf("x: %w", ErrBusinessNotActive())))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not authorized", ErrNotAuthorized(), "AUTH_001", http.StatusForbidden},
		{"consent required", ErrConsentRequired(), "AUTH_002", http.StatusUnauthorized},
		{"consent replayed", ErrConsentReplayed(), "AUTH_003", http.StatusUnauthorized},
		{"payment not found", ErrPaymentNotFound(), "PAY_001", http.StatusNotFound},
		{"invalid amount", ErrInvalidAmount(), "PAY_002", http.StatusBadRequest},
		{"invalid fee", ErrInvalidFeePercentage(), "PAY_003", http.StatusBadRequest},
		{"already completed", ErrPaymentAlreadyCompleted(), "PAY_004", http.StatusConflict},
		{"insufficient balance", ErrInsufficientBalance(), "PAY_005", http.StatusPaymentRequired},
		{"invalid address", ErrInvalidAddress(), "PAY_006", http.StatusBadRequest},
		{"business not active", ErrBusinessNotActive(), "BIZ_001", http.StatusUnprocessableEntity},
		{"business not found", ErrBusinessNotFound(), "BIZ_002", http.StatusNotFound},
		{"not initialized", ErrContractNotInitialized(), "ADM_001", http.StatusServiceUnavailable},
		{"already initialized", ErrAlreadyInitialized(), "ADM_002", http.StatusConflict},
		{"rate limit", ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
		{"validation", Validation("bad"), "VAL_001", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}
