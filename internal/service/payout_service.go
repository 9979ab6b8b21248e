package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const reconcileBatchSize = 50

// PayoutServiceImpl implements ports.PayoutService. Funds are not held at
// initiation: the wallet is debited only once the provider confirms success,
// so a failed payout never needs a compensating entry.
type PayoutServiceImpl struct {
	withdrawalRepo    ports.WithdrawalRepository
	walletRepo        ports.WalletRepository
	ledger            ports.LedgerService
	providers         ports.ProviderRegistry
	maxVerifyAttempts int
	staleness         time.Duration
	log               zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	withdrawalRepo ports.WithdrawalRepository,
	walletRepo ports.WalletRepository,
	ledger ports.LedgerService,
	providers ports.ProviderRegistry,
	maxVerifyAttempts int,
	staleness time.Duration,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		withdrawalRepo:    withdrawalRepo,
		walletRepo:        walletRepo,
		ledger:            ledger,
		providers:         providers,
		maxVerifyAttempts: maxVerifyAttempts,
		staleness:         staleness,
		log:               log,
	}
}

// Initiate validates, records and dispatches a new payout intent. When the
// dispatch call fails, the created withdrawal is returned alongside the
// provider error so the caller still has a reference to poll.
func (s *PayoutServiceImpl) Initiate(ctx context.Context, actor domain.CurrentActor, req ports.InitiatePayoutRequest) (*domain.WithdrawalRequest, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Destination.BankCode == "" || req.Destination.AccountNumber == "" {
		return nil, apperror.Validation("destination bank code and account number are required")
	}

	client, err := s.providers.Get(req.Processor)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil || !actor.CanAccessWallet(wallet) {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletInactive()
	}
	if wallet.Currency != req.Currency {
		return nil, apperror.Validation("currency does not match wallet")
	}
	// Soft balance check. Funds are not held, so a concurrent spend can still
	// win the race; the ledger write at confirmation is the real guard.
	if wallet.Balance.LessThan(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()
	withdrawal := &domain.WithdrawalRequest{
		Reference:   "WD-" + uuid.NewString(),
		BusinessID:  wallet.BusinessID,
		WalletID:    wallet.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Destination: req.Destination,
		Processor:   req.Processor,
		Status:      domain.WithdrawalStatusPending,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create withdrawal: %w", err))
	}

	processorRef, err := client.DispatchPayout(ctx, withdrawal)
	if err != nil {
		// The provider may or may not have accepted the request. The row stays
		// PENDING and the reconciliation sweep resolves it either way; the
		// caller gets the dispatch error plus the reference to poll on.
		s.log.Warn().Err(err).
			Str("reference", withdrawal.Reference).
			Str("processor", req.Processor).
			Msg("payout dispatch failed, leaving pending for reconciliation")
		return withdrawal, err
	}

	if processorRef != "" {
		if err := s.withdrawalRepo.SetProcessorReference(ctx, withdrawal.Reference, processorRef); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("set processor reference: %w", err))
		}
		withdrawal.ProcessorReference = processorRef
	}

	s.log.Info().
		Str("reference", withdrawal.Reference).
		Str("processor", req.Processor).
		Str("amount", req.Amount.String()).
		Msg("payout initiated")
	return withdrawal, nil
}

// Status returns a withdrawal scoped to the actor's business.
func (s *PayoutServiceImpl) Status(ctx context.Context, actor domain.CurrentActor, reference string) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawalRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get withdrawal: %w", err))
	}
	if w == nil || w.BusinessID != actor.BusinessID {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	return w, nil
}

// HandleTerminalStatus applies a provider-verified terminal status. Replays of
// an already-applied status are no-ops.
func (s *PayoutServiceImpl) HandleTerminalStatus(ctx context.Context, reference string, verified domain.ProviderStatus, processorRef string) error {
	w, err := s.withdrawalRepo.GetByReference(ctx, reference)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get withdrawal: %w", err))
	}
	if w == nil {
		return apperror.ErrNotFound("withdrawal")
	}

	switch verified {
	case domain.ProviderStatusSuccessful:
		return s.applySuccess(ctx, w, processorRef)
	case domain.ProviderStatusFailed:
		return s.applyFailure(ctx, w, processorRef)
	case domain.ProviderStatusReversed:
		return s.applyReversal(ctx, w, processorRef)
	default:
		// Not terminal; nothing to apply.
		return nil
	}
}

func (s *PayoutServiceImpl) applySuccess(ctx context.Context, w *domain.WithdrawalRequest, processorRef string) error {
	if w.Status == domain.WithdrawalStatusSuccessful {
		return nil
	}
	if w.IsTerminal() {
		// Success after failure or reversal should not happen; a human looks.
		s.log.Error().
			Str("reference", w.Reference).
			Str("current", string(w.Status)).
			Msg("provider confirmed success for a withdrawal already terminal")
		return s.flagForReview(ctx, w.Reference)
	}

	actor := domain.SystemActor(w.BusinessID)
	result, err := s.ledger.Record(ctx, actor, ports.RecordRequest{
		WalletID:           w.WalletID,
		Category:           domain.CategoryDebit,
		Type:               domain.TxTypeWithdrawal,
		Amount:             w.Amount,
		Reference:          w.Reference,
		Processor:          w.Processor,
		ProcessorReference: processorRef,
		Metadata:           w.Metadata,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "LED_001" {
			// The money left the provider but the wallet can no longer cover
			// it: a concurrent spend won the no-hold race. Manual review.
			s.log.Error().
				Str("reference", w.Reference).
				Str("amount", w.Amount.String()).
				Msg("confirmed payout exceeds wallet balance, flagging for review")
			if ferr := s.flagForReview(ctx, w.Reference); ferr != nil {
				return ferr
			}
		}
		return err
	}

	txID := result.Transaction.ID
	if err := s.withdrawalRepo.MarkTerminal(ctx, w.Reference, domain.WithdrawalStatusSuccessful, processorRef, &txID); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark withdrawal successful: %w", err))
	}

	s.log.Info().
		Str("reference", w.Reference).
		Str("tx_id", txID.String()).
		Str("outcome", string(result.Outcome)).
		Msg("payout confirmed and debited")
	return nil
}

func (s *PayoutServiceImpl) applyFailure(ctx context.Context, w *domain.WithdrawalRequest, processorRef string) error {
	if w.IsTerminal() {
		return nil
	}
	// Nothing was debited at initiation, so failure needs no ledger entry.
	if err := s.withdrawalRepo.MarkTerminal(ctx, w.Reference, domain.WithdrawalStatusFailed, processorRef, nil); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark withdrawal failed: %w", err))
	}
	s.log.Info().Str("reference", w.Reference).Msg("payout failed, no funds moved")
	return nil
}

func (s *PayoutServiceImpl) applyReversal(ctx context.Context, w *domain.WithdrawalRequest, processorRef string) error {
	switch w.Status {
	case domain.WithdrawalStatusReversed:
		return nil
	case domain.WithdrawalStatusSuccessful:
		// The debit already happened; write the compensating credit.
		if w.TransactionID == nil {
			return apperror.InternalError(fmt.Errorf("successful withdrawal %s has no linked transaction", w.Reference))
		}
		actor := domain.SystemActor(w.BusinessID)
		result, err := s.ledger.Reverse(ctx, actor, *w.TransactionID, "provider reversed payout")
		if err != nil {
			return err
		}
		if err := s.withdrawalRepo.MarkTerminal(ctx, w.Reference, domain.WithdrawalStatusReversed, processorRef, w.TransactionID); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("mark withdrawal reversed: %w", err))
		}
		s.log.Info().
			Str("reference", w.Reference).
			Str("reversal_id", result.Transaction.ID.String()).
			Msg("payout reversal credited back")
		return nil
	default:
		// Reversed before any debit: terminal, nothing to compensate.
		if err := s.withdrawalRepo.MarkTerminal(ctx, w.Reference, domain.WithdrawalStatusReversed, processorRef, nil); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("mark withdrawal reversed: %w", err))
		}
		s.log.Info().Str("reference", w.Reference).Msg("payout reversed before settlement, no funds moved")
		return nil
	}
}

func (s *PayoutServiceImpl) flagForReview(ctx context.Context, reference string) error {
	if err := s.withdrawalRepo.FlagForReview(ctx, reference); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("flag withdrawal for review: %w", err))
	}
	return nil
}

// ReconcilePending re-polls the provider for stale PENDING withdrawals. Lost
// webhooks, dispatch timeouts and provider hiccups all converge here.
func (s *PayoutServiceImpl) ReconcilePending(ctx context.Context) error {
	stale, err := s.withdrawalRepo.ListStalePending(ctx, int64(s.staleness.Seconds()), reconcileBatchSize)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("list stale withdrawals: %w", err))
	}
	if len(stale) == 0 {
		return nil
	}

	s.log.Info().Int("count", len(stale)).Msg("reconciling stale pending withdrawals")

	for i := range stale {
		w := &stale[i]
		if err := s.reconcileOne(ctx, w); err != nil {
			s.log.Error().Err(err).Str("reference", w.Reference).Msg("withdrawal reconciliation failed")
		}
	}
	return nil
}

func (s *PayoutServiceImpl) reconcileOne(ctx context.Context, w *domain.WithdrawalRequest) error {
	client, err := s.providers.Get(w.Processor)
	if err != nil {
		return err
	}

	verified, err := client.Verify(ctx, w.Reference)
	if err != nil || verified == domain.ProviderStatusPending {
		attempts, ierr := s.withdrawalRepo.IncrementVerifyAttempts(ctx, w.Reference)
		if ierr != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("increment verify attempts: %w", ierr))
		}
		if attempts >= s.maxVerifyAttempts {
			s.log.Error().
				Str("reference", w.Reference).
				Int("attempts", attempts).
				Msg("withdrawal stuck pending past retry cap, flagging for review")
			return s.flagForReview(ctx, w.Reference)
		}
		return err
	}

	return s.HandleTerminalStatus(ctx, w.Reference, verified, w.ProcessorReference)
}

// StartReconciler runs the pending-withdrawal sweep on a fixed interval until
// the context is cancelled.
func (s *PayoutServiceImpl) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("payout reconciler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("payout reconciler stopped")
			return
		case <-ticker.C:
			if err := s.ReconcilePending(ctx); err != nil {
				s.log.Error().Err(err).Msg("reconcile sweep failed")
			}
		}
	}
}
