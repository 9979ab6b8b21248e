package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of an outbound payout intent.
// A row only becomes SUCCESSFUL, FAILED or REVERSED after the provider's
// status-check endpoint confirms it, never from webhook content alone.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusSuccessful WithdrawalStatus = "SUCCESSFUL"
	WithdrawalStatusFailed     WithdrawalStatus = "FAILED"
	WithdrawalStatusReversed   WithdrawalStatus = "REVERSED"
)

// BankDestination is where a payout is sent.
type BankDestination struct {
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// WithdrawalRequest tracks one outbound payment intent. Funds are not held at
// initiation; the ledger debit happens only on confirmed success.
type WithdrawalRequest struct {
	Reference          string           `json:"reference"` // Internal, generated before provider dispatch
	BusinessID         uuid.UUID        `json:"business_id"`
	WalletID           uuid.UUID        `json:"wallet_id"`
	Amount             decimal.Decimal  `json:"amount"`
	Currency           string           `json:"currency"`
	Destination        BankDestination  `json:"destination"`
	Processor          string           `json:"processor"`
	ProcessorReference string           `json:"processor_reference,omitempty"` // Set once the provider acknowledges
	Status             WithdrawalStatus `json:"status"`
	TransactionID      *uuid.UUID       `json:"transaction_id,omitempty"` // Linked ledger entry, set on confirmed success
	VerifyAttempts     int              `json:"verify_attempts"`
	NeedsReview        bool             `json:"needs_review"` // Flagged after the retry cap; cleared manually
	Metadata           Metadata         `json:"metadata,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// IsTerminal returns true if the withdrawal reached a final state.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusSuccessful ||
		w.Status == WithdrawalStatusFailed ||
		w.Status == WithdrawalStatusReversed
}
