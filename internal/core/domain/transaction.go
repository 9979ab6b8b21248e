package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the direction of a balance mutation.
type Category string

const (
	CategoryCredit Category = "CREDIT"
	CategoryDebit  Category = "DEBIT"
)

// TransactionType represents the business meaning of a ledger entry.
type TransactionType string

const (
	TxTypeDeposit          TransactionType = "DEPOSIT"
	TxTypeWithdrawal       TransactionType = "WITHDRAWAL"
	TxTypeLoanDisbursement TransactionType = "LOAN_DISBURSEMENT"
	TxTypeLoanRepayment    TransactionType = "LOAN_REPAYMENT"
	TxTypeOrderPayment     TransactionType = "ORDER_PAYMENT"
	TxTypeCommission       TransactionType = "COMMISSION"
	TxTypeTransfer         TransactionType = "TRANSFER"
	TxTypeReversal         TransactionType = "REVERSAL"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusSuccessful TransactionStatus = "SUCCESSFUL"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusReversed   TransactionStatus = "REVERSED"
)

// Metadata is free-form structured context stored alongside a transaction,
// typically raw provider payloads kept for audit.
type Metadata map[string]any

// Transaction is an immutable record of one balance mutation. Once SUCCESSFUL
// it is never mutated except to be marked REVERSED and linked to its
// compensating entry.
//
// Invariant: BalanceAfter == BalanceBefore + Amount for a credit,
// BalanceAfter == BalanceBefore - Amount for a debit; Amount > 0.
type Transaction struct {
	ID                 uuid.UUID         `json:"id"`
	BusinessID         uuid.UUID         `json:"business_id"`
	WalletID           uuid.UUID         `json:"wallet_id"`
	Currency           string            `json:"currency"`
	Category           Category          `json:"category"`
	Type               TransactionType   `json:"type"`
	Amount             decimal.Decimal   `json:"amount"`
	BalanceBefore      decimal.Decimal   `json:"balance_before"`
	BalanceAfter       decimal.Decimal   `json:"balance_after"`
	Reference          string            `json:"reference"` // Caller-supplied idempotency key
	Processor          string            `json:"processor,omitempty"`
	ProcessorReference string            `json:"processor_reference,omitempty"`
	Status             TransactionStatus `json:"status"`
	ReversalOfID       *uuid.UUID        `json:"reversal_of_id,omitempty"`
	Metadata           Metadata          `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccessful ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusReversed
}

// IsReversible reports whether a compensating entry may be written against
// this transaction.
func (t *Transaction) IsReversible() bool {
	return t.Status == TransactionStatusSuccessful
}

// CheckBalanceArithmetic verifies the before/after chain against the category.
func (t *Transaction) CheckBalanceArithmetic() bool {
	switch t.Category {
	case CategoryCredit:
		return t.BalanceAfter.Equal(t.BalanceBefore.Add(t.Amount))
	case CategoryDebit:
		return t.BalanceAfter.Equal(t.BalanceBefore.Sub(t.Amount))
	default:
		return false
	}
}

// Opposite returns the category a compensating entry must carry.
func (c Category) Opposite() Category {
	if c == CategoryCredit {
		return CategoryDebit
	}
	return CategoryCredit
}

// BuildReversalReference derives the idempotency reference for the
// compensating entry of an original transaction. It is keyed by the original
// transaction id, not its reference: references may legally repeat across
// transaction types (uniqueness is per business, reference and type), so a
// reference-derived key could collide with a sibling's reversal.
func BuildReversalReference(originalTxID uuid.UUID) string {
	return "RVS-" + originalTxID.String()
}
