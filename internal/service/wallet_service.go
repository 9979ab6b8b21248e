package service

import (
	"context"
	"fmt"
	"time"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		log:        log,
	}
}

// GetOrCreate lazily creates the wallet for a (business, currency, type)
// triple. Concurrent first calls converge on a single row; losers of the
// insert race receive the winner's wallet.
func (s *WalletServiceImpl) GetOrCreate(ctx context.Context, actor domain.CurrentActor, currency string, walletType domain.WalletType) (*domain.Wallet, error) {
	if currency == "" {
		return nil, apperror.Validation("currency is required")
	}

	now := time.Now().UTC()
	candidate := &domain.Wallet{
		ID:         uuid.New(),
		BusinessID: actor.BusinessID,
		Currency:   currency,
		Type:       walletType,
		Name:       fmt.Sprintf("%s %s wallet", walletType, currency),
		Balance:    decimal.Zero,
		Status:     domain.WalletStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get or create wallet: %w", err))
	}

	if wallet.ID == candidate.ID {
		s.log.Info().
			Str("wallet_id", wallet.ID.String()).
			Str("business_id", actor.BusinessID.String()).
			Str("currency", currency).
			Str("type", string(walletType)).
			Msg("wallet created")
	}
	return wallet, nil
}

// Balance returns the stored balance and currency of a wallet.
func (s *WalletServiceImpl) Balance(ctx context.Context, actor domain.CurrentActor, walletID uuid.UUID) (decimal.Decimal, string, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return decimal.Zero, "", apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil || !actor.CanAccessWallet(wallet) {
		return decimal.Zero, "", apperror.ErrNotFound("wallet")
	}
	return wallet.Balance, wallet.Currency, nil
}

// Transactions lists ledger entries scoped to the actor's business.
func (s *WalletServiceImpl) Transactions(ctx context.Context, actor domain.CurrentActor, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	// The business scope comes from the actor, never from the request.
	params.BusinessID = actor.BusinessID
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// AuditBalance recomputes the balance from successful ledger entries and
// compares it with the stored one. A divergence means the single-writer rule
// was violated somewhere; it is reported, never silently corrected.
func (s *WalletServiceImpl) AuditBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return decimal.Zero, decimal.Zero, apperror.ErrNotFound("wallet")
	}

	computed, err := s.walletRepo.SumSuccessfulEntries(ctx, walletID)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperror.ErrDatabaseError(fmt.Errorf("sum ledger entries: %w", err))
	}

	if !wallet.Balance.Equal(computed) {
		s.log.Error().
			Str("wallet_id", walletID.String()).
			Str("stored", wallet.Balance.String()).
			Str("computed", computed.String()).
			Msg("wallet balance diverges from ledger")
	}
	return wallet.Balance, computed, nil
}
