package service

import (
	"context"
	"fmt"
	"time"

	"lending-ledger/internal/adapter/storage/postgres"
	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService. It is the only code path
// that mutates wallet balances: one entry per mutation, balance_before and
// balance_after captured under a row lock, duplicates resolved to the prior
// entry instead of being applied twice.
type LedgerServiceImpl struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		log:        log,
	}
}

// Record writes one ledger entry with pessimistic locking.
func (s *LedgerServiceImpl) Record(ctx context.Context, actor domain.CurrentActor, req ports.RecordRequest) (*domain.RecordResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Reference == "" {
		return nil, apperror.Validation("reference is required")
	}
	if req.Category != domain.CategoryCredit && req.Category != domain.CategoryDebit {
		return nil, apperror.Validation("category must be CREDIT or DEBIT")
	}

	// Fast-path idempotency check, before taking any lock.
	prior, err := s.txRepo.GetSuccessfulByReference(ctx, actor.BusinessID, req.Reference, req.Type)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("idempotency check: %w", err))
	}
	if prior != nil {
		return &domain.RecordResult{Outcome: domain.RecordOutcomeDuplicate, Transaction: prior}, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !actor.CanAccessWallet(wallet) {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletInactive()
	}

	balanceBefore := wallet.Balance
	var balanceAfter decimal.Decimal
	if req.Category == domain.CategoryCredit {
		balanceAfter = balanceBefore.Add(req.Amount)
	} else {
		balanceAfter = balanceBefore.Sub(req.Amount)
		if balanceAfter.IsNegative() && !req.AllowNegative {
			return nil, apperror.ErrInsufficientFunds()
		}
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                 uuid.New(),
		BusinessID:         wallet.BusinessID,
		WalletID:           wallet.ID,
		Currency:           wallet.Currency,
		Category:           req.Category,
		Type:               req.Type,
		Amount:             req.Amount,
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		Reference:          req.Reference,
		Processor:          req.Processor,
		ProcessorReference: req.ProcessorReference,
		Status:             domain.TransactionStatusSuccessful,
		Metadata:           req.Metadata,
		CreatedAt:          now,
	}

	if !txn.CheckBalanceArithmetic() {
		return nil, apperror.ErrLedgerInvariant(fmt.Errorf(
			"balance chain broken: before=%s amount=%s after=%s category=%s",
			balanceBefore, req.Amount, balanceAfter, req.Category))
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		// The partial unique index caught a concurrent writer. Roll back and
		// surface the entry that won.
		if postgres.IsUniqueViolation(err, "") {
			dbTx.Rollback(ctx) //nolint:errcheck
			winner, ferr := s.txRepo.GetSuccessfulByReference(ctx, actor.BusinessID, req.Reference, req.Type)
			if ferr != nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("fetch duplicate winner: %w", ferr))
			}
			if winner == nil {
				return nil, apperror.ErrDuplicateTransaction()
			}
			return &domain.RecordResult{Outcome: domain.RecordOutcomeDuplicate, Transaction: winner}, nil
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, balanceAfter); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("reference", req.Reference).
		Str("category", string(req.Category)).
		Str("type", string(req.Type)).
		Str("amount", req.Amount.String()).
		Str("balance_after", balanceAfter.String()).
		Msg("ledger entry recorded")

	return &domain.RecordResult{Outcome: domain.RecordOutcomeRecorded, Transaction: txn}, nil
}

// Reverse writes the compensating entry for a successful transaction and
// marks the original REVERSED, atomically.
func (s *LedgerServiceImpl) Reverse(ctx context.Context, actor domain.CurrentActor, originalTxID uuid.UUID, reason string) (*domain.RecordResult, error) {
	orig, err := s.txRepo.GetByID(ctx, originalTxID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find original tx: %w", err))
	}
	if orig == nil || orig.BusinessID != actor.BusinessID {
		return nil, apperror.ErrNotFound("original transaction")
	}
	if !orig.IsReversible() {
		return nil, apperror.ErrInvalidReversal()
	}

	reversalRef := domain.BuildReversalReference(orig.ID)

	// Idempotent replay: the compensating entry may already exist.
	prior, err := s.txRepo.GetSuccessfulByReference(ctx, actor.BusinessID, reversalRef, domain.TxTypeReversal)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reversal idempotency check: %w", err))
	}
	if prior != nil {
		return &domain.RecordResult{Outcome: domain.RecordOutcomeDuplicate, Transaction: prior}, nil
	}

	exists, err := s.txRepo.CheckReversalExists(ctx, orig.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check reversal exists: %w", err))
	}
	if exists {
		return nil, apperror.ErrDuplicateTransaction()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, orig.WalletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	category := orig.Category.Opposite()
	balanceBefore := wallet.Balance
	var balanceAfter decimal.Decimal
	if category == domain.CategoryCredit {
		balanceAfter = balanceBefore.Add(orig.Amount)
	} else {
		// Reversing a credit may legitimately overdraw the wallet; the funds
		// were never the business's to keep.
		balanceAfter = balanceBefore.Sub(orig.Amount)
	}

	now := time.Now().UTC()
	reversal := &domain.Transaction{
		ID:                 uuid.New(),
		BusinessID:         orig.BusinessID,
		WalletID:           orig.WalletID,
		Currency:           orig.Currency,
		Category:           category,
		Type:               domain.TxTypeReversal,
		Amount:             orig.Amount,
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		Reference:          reversalRef,
		Processor:          orig.Processor,
		ProcessorReference: orig.ProcessorReference,
		Status:             domain.TransactionStatusSuccessful,
		ReversalOfID:       &orig.ID,
		Metadata:           domain.Metadata{"reason": reason},
		CreatedAt:          now,
	}

	if !reversal.CheckBalanceArithmetic() {
		return nil, apperror.ErrLedgerInvariant(fmt.Errorf(
			"reversal balance chain broken: before=%s amount=%s after=%s",
			balanceBefore, orig.Amount, balanceAfter))
	}

	if err := s.txRepo.Create(ctx, dbTx, reversal); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			dbTx.Rollback(ctx) //nolint:errcheck
			winner, ferr := s.txRepo.GetSuccessfulByReference(ctx, actor.BusinessID, reversalRef, domain.TxTypeReversal)
			if ferr != nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("fetch duplicate reversal: %w", ferr))
			}
			if winner == nil {
				return nil, apperror.ErrDuplicateTransaction()
			}
			return &domain.RecordResult{Outcome: domain.RecordOutcomeDuplicate, Transaction: winner}, nil
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create reversal: %w", err))
	}

	if err := s.txRepo.MarkReversed(ctx, dbTx, orig.ID); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark original reversed: %w", err))
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, balanceAfter); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reversal_id", reversal.ID.String()).
		Str("original_id", orig.ID.String()).
		Str("reason", reason).
		Str("amount", orig.Amount.String()).
		Msg("transaction reversed")

	return &domain.RecordResult{Outcome: domain.RecordOutcomeRecorded, Transaction: reversal}, nil
}
