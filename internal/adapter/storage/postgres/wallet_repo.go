package postgres

import (
	"context"
	"errors"
	"fmt"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, business_id, currency, wallet_type, name, balance::text, status, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetOrCreate inserts the wallet if its (business, currency, type) triple is
// unseen, then fetches whichever row won. Concurrent callers converge on one
// wallet: the unique constraint, not application locking, decides the winner.
func (r *WalletRepo) GetOrCreate(ctx context.Context, w *domain.Wallet) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (id, business_id, currency, wallet_type, name, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (business_id, currency, wallet_type) DO NOTHING`

	_, err := r.pool.Exec(ctx, insert,
		w.ID, w.BusinessID, w.Currency, w.Type, w.Name,
		w.Balance.String(), w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets
		WHERE business_id = $1 AND currency = $2 AND wallet_type = $3`

	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, w.BusinessID, w.Currency, w.Type))
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet vanished after insert: business=%s currency=%s", w.BusinessID, w.Currency)
	}
	return wallet, nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// UpdateBalance updates a wallet's balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance.String(), walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// SumSuccessfulEntries recomputes a wallet balance from its ledger entries.
// Offline reconciliation only; never on the read path. REVERSED originals
// count: their funds did move, and the compensating SUCCESSFUL entry moves
// them back, so excluding either side would skew the sum.
func (r *WalletRepo) SumSuccessfulEntries(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN category = 'CREDIT' THEN amount ELSE -amount END), 0)::text
		FROM transactions WHERE wallet_id = $1 AND status IN ('SUCCESSFUL', 'REVERSED')`

	var sum string
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet entries: %w", err)
	}

	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse ledger sum: %w", err)
	}
	return total, nil
}

// scanWallet is a helper to scan a single row into a Wallet.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance string
	err := row.Scan(
		&w.ID, &w.BusinessID, &w.Currency, &w.Type, &w.Name,
		&balance, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	w.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse wallet balance: %w", err)
	}
	return w, nil
}
