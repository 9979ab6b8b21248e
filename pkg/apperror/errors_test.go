package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[LED_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("LED_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "LED_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "LED_002", 400},
		{"DuplicateTransaction", ErrDuplicateTransaction(), "LED_003", 409},
		{"NotFound", ErrNotFound("Wallet"), "LED_004", 404},
		{"InvalidReversal", ErrInvalidReversal(), "LED_005", 400},
		{"WalletInactive", ErrWalletInactive(), "LED_007", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestProviderErrors(t *testing.T) {
	inner := fmt.Errorf("dial tcp: i/o timeout")

	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"VerificationMismatch", ErrProviderVerificationMismatch(), "PRV_001", 409},
		{"Dispatch", ErrProviderDispatch(inner), "PRV_002", 502},
		{"Timeout", ErrProviderTimeout(inner), "PRV_003", 504},
		{"UnknownProvider", ErrUnknownProvider("stripe"), "PRV_004", 400},
		{"InvalidSignature", ErrInvalidWebhookSignature(), "PRV_005", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestLedgerInvariantError(t *testing.T) {
	inner := fmt.Errorf("balance_after 90.00 != balance_before 100.00 - amount 20.00")
	err := ErrLedgerInvariant(inner)

	assert.Equal(t, "LED_006", err.Code)
	assert.Equal(t, 500, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Withdrawal request")
	assert.Contains(t, err.Message, "Withdrawal request")
	assert.Equal(t, "LED_004", err.Code)
}
