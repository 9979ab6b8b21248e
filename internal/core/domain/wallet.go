package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletType distinguishes the role a wallet plays for its business.
type WalletType string

const (
	WalletTypeVendorPayout WalletType = "VENDOR_PAYOUT"
	WalletTypeLender       WalletType = "LENDER"
	WalletTypeAdmin        WalletType = "ADMIN"
)

// WalletStatus is the lifecycle state of a wallet. Wallets are never
// hard-deleted; a closed wallet keeps its ledger history.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "ACTIVE"
	WalletStatusFrozen WalletStatus = "FROZEN"
	WalletStatusClosed WalletStatus = "CLOSED"
)

// Wallet holds the current balance for one (business, currency, type) triple.
// Balance is denormalized: it always equals the balance_after of the wallet's
// most recent successful transaction, and is mutated only by the ledger writer.
type Wallet struct {
	ID         uuid.UUID       `json:"id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Currency   string          `json:"currency"`
	Type       WalletType      `json:"wallet_type"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	Status     WalletStatus    `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsActive reports whether the wallet can accept ledger entries.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
