package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `reference, business_id, wallet_id, amount::text, currency,
	bank_code, account_number, account_name, processor, processor_reference,
	status, transaction_id, verify_attempts, needs_review, metadata, created_at, updated_at`

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

// Create inserts a new withdrawal request in PENDING state.
func (r *WithdrawalRepo) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (reference, business_id, wallet_id, amount, currency,
		bank_code, account_number, account_name, processor, processor_reference,
		status, transaction_id, verify_attempts, needs_review, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	metadata, err := marshalMetadata(w.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		w.Reference, w.BusinessID, w.WalletID, w.Amount.String(), w.Currency,
		w.Destination.BankCode, w.Destination.AccountNumber, w.Destination.AccountName,
		w.Processor, w.ProcessorReference, w.Status, w.TransactionID,
		w.VerifyAttempts, w.NeedsReview, metadata, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

// GetByReference fetches a withdrawal request by its internal reference.
func (r *WithdrawalRepo) GetByReference(ctx context.Context, reference string) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE reference = $1`
	return scanWithdrawal(r.pool.QueryRow(ctx, query, reference))
}

// MarkTerminal sets the final status, processor reference and linked ledger
// entry. Only rows still PENDING transition, except that a SUCCESSFUL payout
// may later become REVERSED; replays are no-ops.
func (r *WithdrawalRepo) MarkTerminal(ctx context.Context, reference string, status domain.WithdrawalStatus, processorRef string, transactionID *uuid.UUID) error {
	query := `UPDATE withdrawal_requests
		SET status = $1,
		    processor_reference = COALESCE(NULLIF($2, ''), processor_reference),
		    transaction_id = COALESCE($3, transaction_id),
		    updated_at = NOW()
		WHERE reference = $4
		  AND (status = 'PENDING' OR ($1 = 'REVERSED' AND status = 'SUCCESSFUL'))`

	_, err := r.pool.Exec(ctx, query, status, processorRef, transactionID, reference)
	if err != nil {
		return fmt.Errorf("mark withdrawal terminal: %w", err)
	}
	return nil
}

// SetProcessorReference stores the provider's own reference once acknowledged.
func (r *WithdrawalRepo) SetProcessorReference(ctx context.Context, reference string, processorRef string) error {
	query := `UPDATE withdrawal_requests SET processor_reference = $1, updated_at = NOW() WHERE reference = $2`

	tag, err := r.pool.Exec(ctx, query, processorRef, reference)
	if err != nil {
		return fmt.Errorf("set processor reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("withdrawal not found: %s", reference)
	}
	return nil
}

// IncrementVerifyAttempts bumps the verification counter and returns the new value.
func (r *WithdrawalRepo) IncrementVerifyAttempts(ctx context.Context, reference string) (int, error) {
	query := `UPDATE withdrawal_requests SET verify_attempts = verify_attempts + 1, updated_at = NOW()
		WHERE reference = $1 RETURNING verify_attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, reference).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment verify attempts: %w", err)
	}
	return attempts, nil
}

// FlagForReview marks a withdrawal for manual review after the retry cap.
func (r *WithdrawalRepo) FlagForReview(ctx context.Context, reference string) error {
	query := `UPDATE withdrawal_requests SET needs_review = TRUE, updated_at = NOW() WHERE reference = $1`

	_, err := r.pool.Exec(ctx, query, reference)
	if err != nil {
		return fmt.Errorf("flag withdrawal for review: %w", err)
	}
	return nil
}

// ListStalePending returns PENDING rows older than the staleness window that
// have not been flagged for review, for the reconciliation sweep.
func (r *WithdrawalRepo) ListStalePending(ctx context.Context, olderThanSeconds int64, limit int) ([]domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE status = 'PENDING' AND needs_review = FALSE
		AND updated_at < NOW() - make_interval(secs => $1)
		ORDER BY updated_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, olderThanSeconds, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending withdrawals: %w", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		requests = append(requests, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return requests, nil
}

// scanWithdrawal is a helper to scan a single row into a WithdrawalRequest.
func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	w := &domain.WithdrawalRequest{}
	var amount string
	var metadata []byte
	err := row.Scan(
		&w.Reference, &w.BusinessID, &w.WalletID, &amount, &w.Currency,
		&w.Destination.BankCode, &w.Destination.AccountNumber, &w.Destination.AccountName,
		&w.Processor, &w.ProcessorReference, &w.Status, &w.TransactionID,
		&w.VerifyAttempts, &w.NeedsReview, &metadata, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}

	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse withdrawal amount: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &w.Metadata); err != nil {
			return nil, fmt.Errorf("parse withdrawal metadata: %w", err)
		}
	}
	return w, nil
}
