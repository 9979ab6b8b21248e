package postgres

import (
	"context"
	"testing"
	"time"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWithdrawal() *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		Reference:  "WD-" + uuid.NewString(),
		BusinessID: uuid.New(),
		WalletID:   uuid.New(),
		Amount:     decimal.RequireFromString("500.00"),
		Currency:   "NGN",
		Destination: domain.BankDestination{
			BankCode:      "058",
			AccountNumber: "0123456789",
			AccountName:   "Acme Vendors Ltd",
		},
		Processor: domain.ProviderFincra,
		Status:    domain.WithdrawalStatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func withdrawalTestColumns() []string {
	return []string{"reference", "business_id", "wallet_id", "amount", "currency",
		"bank_code", "account_number", "account_name", "processor", "processor_reference",
		"status", "transaction_id", "verify_attempts", "needs_review", "metadata", "created_at", "updated_at"}
}

func withdrawalRow(w *domain.WithdrawalRequest) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalTestColumns()).AddRow(
		w.Reference, w.BusinessID, w.WalletID, w.Amount.String(), w.Currency,
		w.Destination.BankCode, w.Destination.AccountNumber, w.Destination.AccountName,
		w.Processor, w.ProcessorReference, w.Status, w.TransactionID,
		w.VerifyAttempts, w.NeedsReview, []byte(nil), w.CreatedAt, w.UpdatedAt,
	)
}

func TestWithdrawalRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	mock.ExpectExec("INSERT INTO withdrawal_requests").
		WithArgs(w.Reference, w.BusinessID, w.WalletID, w.Amount.String(), w.Currency,
			w.Destination.BankCode, w.Destination.AccountNumber, w.Destination.AccountName,
			w.Processor, w.ProcessorReference, w.Status, w.TransactionID,
			w.VerifyAttempts, w.NeedsReview, []byte(nil), w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_GetByReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests WHERE reference").
		WithArgs(w.Reference).
		WillReturnRows(withdrawalRow(w))

	result, err := repo.GetByReference(context.Background(), w.Reference)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.Reference, result.Reference)
	assert.True(t, w.Amount.Equal(result.Amount))
	assert.Equal(t, w.Destination, result.Destination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_GetByReference_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests WHERE reference").
		WithArgs("WD-missing").
		WillReturnRows(pgxmock.NewRows(withdrawalTestColumns()))

	result, err := repo.GetByReference(context.Background(), "WD-missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()
	txnID := uuid.New()

	mock.ExpectExec("UPDATE withdrawal_requests").
		WithArgs(domain.WithdrawalStatusSuccessful, "prov-ref-1", &txnID, w.Reference).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkTerminal(context.Background(), w.Reference, domain.WithdrawalStatusSuccessful, "prov-ref-1", &txnID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkTerminal_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	// Row already left PENDING; the guarded update affects nothing and the
	// replay is a no-op.
	mock.ExpectExec("UPDATE withdrawal_requests").
		WithArgs(domain.WithdrawalStatusFailed, "", (*uuid.UUID)(nil), w.Reference).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkTerminal(context.Background(), w.Reference, domain.WithdrawalStatusFailed, "", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_IncrementVerifyAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	mock.ExpectQuery("UPDATE withdrawal_requests SET verify_attempts").
		WithArgs(w.Reference).
		WillReturnRows(pgxmock.NewRows([]string{"verify_attempts"}).AddRow(3))

	attempts, err := repo.IncrementVerifyAttempts(context.Background(), w.Reference)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_FlagForReview(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	mock.ExpectExec("UPDATE withdrawal_requests SET needs_review").
		WithArgs(w.Reference).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.FlagForReview(context.Background(), w.Reference)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_ListStalePending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal()

	mock.ExpectQuery("SELECT .+ FROM withdrawal_requests").
		WithArgs(int64(900), 50).
		WillReturnRows(withdrawalRow(w))

	requests, err := repo.ListStalePending(context.Background(), 900, 50)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, w.Reference, requests[0].Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}
