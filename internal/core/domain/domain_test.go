package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWallet_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status WalletStatus
		want   bool
	}{
		{"active", WalletStatusActive, true},
		{"frozen", WalletStatusFrozen, false},
		{"closed", WalletStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Status: tt.status}
			assert.Equal(t, tt.want, w.IsActive())
		})
	}
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"pending", TransactionStatusPending, false},
		{"successful", TransactionStatusSuccessful, true},
		{"failed", TransactionStatusFailed, true},
		{"reversed", TransactionStatusReversed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestTransaction_CheckBalanceArithmetic(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name     string
		category Category
		amount   string
		before   string
		after    string
		want     bool
	}{
		{"valid credit", CategoryCredit, "50.00", "100.00", "150.00", true},
		{"valid debit", CategoryDebit, "50.00", "100.00", "50.00", true},
		{"credit off by a cent", CategoryCredit, "50.00", "100.00", "150.01", false},
		{"debit with credit arithmetic", CategoryDebit, "50.00", "100.00", "150.00", false},
		{"unknown category", Category("TRANSFERENCE"), "50.00", "100.00", "150.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{
				Category:      tt.category,
				Amount:        d(tt.amount),
				BalanceBefore: d(tt.before),
				BalanceAfter:  d(tt.after),
			}
			assert.Equal(t, tt.want, tx.CheckBalanceArithmetic())
		})
	}
}

func TestCategory_Opposite(t *testing.T) {
	assert.Equal(t, CategoryDebit, CategoryCredit.Opposite())
	assert.Equal(t, CategoryCredit, CategoryDebit.Opposite())
}

func TestBuildReversalReference(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "RVS-"+id.String(), BuildReversalReference(id))
}

func TestCurrentActor_CanAccessWallet(t *testing.T) {
	businessID := uuid.New()
	walletID := uuid.New()
	otherWalletID := uuid.New()

	wallet := &Wallet{ID: walletID, BusinessID: businessID}

	tests := []struct {
		name  string
		actor CurrentActor
		want  bool
	}{
		{"same business, unrestricted", CurrentActor{BusinessID: businessID}, true},
		{"same business, wallet in scope", CurrentActor{BusinessID: businessID, WalletIDs: []uuid.UUID{walletID}}, true},
		{"same business, wallet out of scope", CurrentActor{BusinessID: businessID, WalletIDs: []uuid.UUID{otherWalletID}}, false},
		{"different business", CurrentActor{BusinessID: uuid.New()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.CanAccessWallet(wallet))
		})
	}

	t.Run("nil wallet", func(t *testing.T) {
		assert.False(t, CurrentActor{BusinessID: businessID}.CanAccessWallet(nil))
	})
}

func TestProviderEvent_OperationReference(t *testing.T) {
	e := ProviderEvent{Reference: "prov-ref-1"}
	assert.Equal(t, "prov-ref-1", e.OperationReference())

	e.CustomerReference = "WD-abc"
	assert.Equal(t, "WD-abc", e.OperationReference())
}

func TestProviderStatus_IsTerminal(t *testing.T) {
	assert.False(t, ProviderStatusPending.IsTerminal())
	assert.True(t, ProviderStatusSuccessful.IsTerminal())
	assert.True(t, ProviderStatusFailed.IsTerminal())
	assert.True(t, ProviderStatusReversed.IsTerminal())
}

func TestWithdrawalRequest_IsTerminal(t *testing.T) {
	w := &WithdrawalRequest{Status: WithdrawalStatusPending}
	assert.False(t, w.IsTerminal())

	for _, s := range []WithdrawalStatus{WithdrawalStatusSuccessful, WithdrawalStatusFailed, WithdrawalStatusReversed} {
		w.Status = s
		assert.True(t, w.IsTerminal())
	}
}
