package ports

import (
	"context"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// LedgerService is the single gate through which every wallet balance
// mutation passes.
type LedgerService interface {
	Record(ctx context.Context, actor domain.CurrentActor, req RecordRequest) (*domain.RecordResult, error)
	// Reverse writes the compensating entry for a successful transaction and
	// marks the original REVERSED.
	Reverse(ctx context.Context, actor domain.CurrentActor, originalTxID uuid.UUID, reason string) (*domain.RecordResult, error)
}

// RecordRequest holds validated input for one ledger entry.
type RecordRequest struct {
	WalletID           uuid.UUID
	Category           domain.Category
	Type               domain.TransactionType
	Amount             decimal.Decimal
	Reference          string // Idempotency key; required
	Processor          string
	ProcessorReference string
	Metadata           domain.Metadata
	AllowNegative      bool // Never the default; set only by trusted internal flows
}

// WalletService creates wallets lazily and serves balance reads.
type WalletService interface {
	GetOrCreate(ctx context.Context, actor domain.CurrentActor, currency string, walletType domain.WalletType) (*domain.Wallet, error)
	Balance(ctx context.Context, actor domain.CurrentActor, walletID uuid.UUID) (decimal.Decimal, string, error) // balance, currency
	Transactions(ctx context.Context, actor domain.CurrentActor, params TransactionListParams) ([]domain.Transaction, int64, error)
	// AuditBalance recomputes the balance from the ledger and compares it to
	// the stored one. Offline reconciliation only.
	AuditBalance(ctx context.Context, walletID uuid.UUID) (stored, computed decimal.Decimal, err error)
}

// ReconciliationGate processes inbound provider events with
// verification-before-trust semantics.
type ReconciliationGate interface {
	Process(ctx context.Context, event domain.ProviderEvent) (domain.GateOutcome, error)
}

// PayoutService orchestrates outbound withdrawals.
type PayoutService interface {
	Initiate(ctx context.Context, actor domain.CurrentActor, req InitiatePayoutRequest) (*domain.WithdrawalRequest, error)
	Status(ctx context.Context, actor domain.CurrentActor, reference string) (*domain.WithdrawalRequest, error)
	// HandleTerminalStatus applies a provider-verified terminal status. Called
	// only by the reconciliation gate and the scheduled sweep.
	HandleTerminalStatus(ctx context.Context, reference string, verified domain.ProviderStatus, processorRef string) error
	// ReconcilePending re-polls the provider for stale PENDING withdrawals.
	ReconcilePending(ctx context.Context) error
}

// InitiatePayoutRequest holds validated input for a withdrawal.
type InitiatePayoutRequest struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Destination domain.BankDestination
	Processor   string
	Metadata    domain.Metadata
}

// LoanService computes and snapshots amortization schedules.
type LoanService interface {
	CreateSchedule(ctx context.Context, actor domain.CurrentActor, principal, annualRate decimal.Decimal, termMonths int) (*domain.LoanSchedule, error)
	GetSchedule(ctx context.Context, actor domain.CurrentActor, id uuid.UUID) (*domain.LoanSchedule, error)
}

// ProviderClient talks to one payment provider.
type ProviderClient interface {
	// Verify asks the provider's status-check endpoint for the authoritative
	// status of an operation. This, never the webhook payload, decides state
	// transitions.
	Verify(ctx context.Context, reference string) (domain.ProviderStatus, error)
	// DispatchPayout submits a payout request. Returns the processor's own
	// reference once acknowledged.
	DispatchPayout(ctx context.Context, w *domain.WithdrawalRequest) (string, error)
	Name() string
}

// ProviderRegistry resolves a client by provider name.
type ProviderRegistry interface {
	Get(name string) (ProviderClient, error)
}

// EventDedupStore is the fast-path (cache) dedup check in front of the
// durable webhook event store.
type EventDedupStore interface {
	// CheckAndSet returns true if the event key is new.
	CheckAndSet(ctx context.Context, provider, eventID string) (bool, error)
}

// WebhookQueue carries normalized provider events from the HTTP ingress to
// the consumer, with an explicit dead-letter path.
type WebhookQueue interface {
	Enqueue(ctx context.Context, event domain.ProviderEvent) error
	// Dequeue blocks up to the given timeout; returns nil when nothing arrived.
	Dequeue(ctx context.Context, timeoutSeconds int) (*domain.ProviderEvent, error)
	DeadLetter(ctx context.Context, event domain.ProviderEvent) error
}
