package apperror

import (
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

// ---- Ledger (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

// Validation returns a LED_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}

func ErrDuplicateTransaction() *AppError {
	return New("LED_003", "Duplicate transaction", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidReversal() *AppError {
	return New("LED_005", "Original transaction not eligible for reversal", http.StatusBadRequest)
}

// ErrLedgerInvariant signals a balance-arithmetic violation. Fatal for the
// operation: logged with full context, surfaced, never silently corrected.
func ErrLedgerInvariant(err error) *AppError {
	return Wrap("LED_006", "Ledger invariant violation", http.StatusInternalServerError, err)
}

func ErrWalletInactive() *AppError {
	return New("LED_007", "Wallet is not active", http.StatusForbidden)
}

// ---- Provider (PRV) ----

// ErrProviderVerificationMismatch means the webhook's claimed status disagreed
// with the provider's status-check endpoint. The event is dropped, not retried.
func ErrProviderVerificationMismatch() *AppError {
	return New("PRV_001", "Provider verification does not match webhook status", http.StatusConflict)
}

func ErrProviderDispatch(err error) *AppError {
	return Wrap("PRV_002", "Provider dispatch failed", http.StatusBadGateway, err)
}

func ErrProviderTimeout(err error) *AppError {
	return Wrap("PRV_003", "Provider call timed out", http.StatusGatewayTimeout, err)
}

func ErrUnknownProvider(name string) *AppError {
	return New("PRV_004", fmt.Sprintf("Unknown payment provider: %s", name), http.StatusBadRequest)
}

func ErrInvalidWebhookSignature() *AppError {
	return New("PRV_005", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
