package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, business_id, wallet_id, currency, category, tx_type,
	amount::text, balance_before::text, balance_after::text, reference,
	processor, processor_reference, status, reversal_of_id, metadata, created_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a ledger entry within a database transaction. The partial
// unique index on (business_id, reference, tx_type) for successful rows is
// the final backstop against concurrent duplicates; callers translate its
// violation into an idempotent replay.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, business_id, wallet_id, currency, category, tx_type,
		amount, balance_before, balance_after, reference, processor, processor_reference,
		status, reversal_of_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	metadata, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query,
		t.ID, t.BusinessID, t.WalletID, t.Currency, t.Category, t.Type,
		t.Amount.String(), t.BalanceBefore.String(), t.BalanceAfter.String(),
		t.Reference, t.Processor, t.ProcessorReference,
		t.Status, t.ReversalOfID, metadata, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetSuccessfulByReference finds the successful entry for a
// (business, reference, type) combination, if any.
func (r *TransactionRepo) GetSuccessfulByReference(ctx context.Context, businessID uuid.UUID, reference string, txType domain.TransactionType) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE business_id = $1 AND reference = $2 AND tx_type = $3 AND status = 'SUCCESSFUL'`
	return scanTransaction(r.pool.QueryRow(ctx, query, businessID, reference, txType))
}

// MarkReversed flips a successful transaction to REVERSED within a database
// transaction. The row is otherwise immutable.
func (r *TransactionRepo) MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE transactions SET status = 'REVERSED' WHERE id = $1 AND status = 'SUCCESSFUL'`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark transaction reversed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not reversible: %s", id)
	}
	return nil
}

// CheckReversalExists checks if a compensating entry already references the
// given original transaction.
func (r *TransactionRepo) CheckReversalExists(ctx context.Context, originalTxID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE reversal_of_id = $1 AND status != 'FAILED')`

	var exists bool
	err := r.pool.QueryRow(ctx, query, originalTxID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reversal exists: %w", err)
	}
	return exists, nil
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("business_id = $%d", argIdx))
	args = append(args, params.BusinessID)
	argIdx++

	if params.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
		args = append(args, *params.WalletID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("tx_type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+transactionColumns+` FROM transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var amount, balanceBefore, balanceAfter string
	var metadata []byte
	err := row.Scan(
		&t.ID, &t.BusinessID, &t.WalletID, &t.Currency, &t.Category, &t.Type,
		&amount, &balanceBefore, &balanceAfter, &t.Reference,
		&t.Processor, &t.ProcessorReference, &t.Status, &t.ReversalOfID,
		&metadata, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.BalanceBefore, err = decimal.NewFromString(balanceBefore); err != nil {
		return nil, fmt.Errorf("parse balance_before: %w", err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return t, nil
}

func marshalMetadata(m domain.Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}
