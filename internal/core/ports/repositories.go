package ports

import (
	"context"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	// GetOrCreate converges concurrent callers on exactly one wallet row per
	// (business, currency, type) triple via a unique constraint insert-or-fetch.
	GetOrCreate(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	// SumSuccessfulEntries recomputes the balance from the ledger. Audit-only;
	// never used on the read path.
	SumSuccessfulEntries(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetSuccessfulByReference finds the successful entry for a
	// (business, reference, type) combination, if any. Drives idempotency.
	GetSuccessfulByReference(ctx context.Context, businessID uuid.UUID, reference string, txType domain.TransactionType) (*domain.Transaction, error)
	MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	CheckReversalExists(ctx context.Context, originalTxID uuid.UUID) (bool, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	BusinessID uuid.UUID
	WalletID   *uuid.UUID
	Status     *domain.TransactionStatus
	Type       *domain.TransactionType
	From       *int64 // Unix timestamp
	To         *int64 // Unix timestamp
	Page       int
	PageSize   int
}

// WithdrawalRepository defines persistence for outbound payout intents.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.WithdrawalRequest) error
	GetByReference(ctx context.Context, reference string) (*domain.WithdrawalRequest, error)
	// MarkTerminal sets the final status, processor reference and linked ledger
	// entry. It only transitions rows still PENDING.
	MarkTerminal(ctx context.Context, reference string, status domain.WithdrawalStatus, processorRef string, transactionID *uuid.UUID) error
	SetProcessorReference(ctx context.Context, reference string, processorRef string) error
	IncrementVerifyAttempts(ctx context.Context, reference string) (int, error)
	FlagForReview(ctx context.Context, reference string) error
	// ListStalePending returns PENDING rows older than the staleness window,
	// for the reconciliation sweep.
	ListStalePending(ctx context.Context, olderThanSeconds int64, limit int) ([]domain.WithdrawalRequest, error)
}

// WebhookEventRepository is the durable dedup store for provider events.
type WebhookEventRepository interface {
	// Insert stores the event if (provider, event_id) is unseen and returns
	// true; returns false without error when the event already exists.
	Insert(ctx context.Context, event *domain.WebhookEvent) (bool, error)
	Get(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WebhookEventStatus) error
	IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) (int, error)
}

// LoanScheduleRepository persists amortization snapshots.
type LoanScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.LoanSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanSchedule, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
