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
)

// ReconciliationGateImpl implements ports.ReconciliationGate. A webhook's
// claimed status never drives a state transition: every event is checked
// against the provider's own status endpoint before anything touches the
// ledger, so a spoofed or stale payload can at worst trigger a verification
// call that disagrees with it.
type ReconciliationGateImpl struct {
	webhookRepo       ports.WebhookEventRepository
	providers         ports.ProviderRegistry
	ledger            ports.LedgerService
	walletSvc         ports.WalletService
	payoutSvc         ports.PayoutService
	maxVerifyAttempts int
	log               zerolog.Logger
}

// NewReconciliationGate creates a new ReconciliationGateImpl.
func NewReconciliationGate(
	webhookRepo ports.WebhookEventRepository,
	providers ports.ProviderRegistry,
	ledger ports.LedgerService,
	walletSvc ports.WalletService,
	payoutSvc ports.PayoutService,
	maxVerifyAttempts int,
	log zerolog.Logger,
) *ReconciliationGateImpl {
	return &ReconciliationGateImpl{
		webhookRepo:       webhookRepo,
		providers:         providers,
		ledger:            ledger,
		walletSvc:         walletSvc,
		payoutSvc:         payoutSvc,
		maxVerifyAttempts: maxVerifyAttempts,
		log:               log,
	}
}

// Process runs one provider event through the gate.
func (s *ReconciliationGateImpl) Process(ctx context.Context, event domain.ProviderEvent) (domain.GateOutcome, error) {
	log := s.log.With().
		Str("provider", event.Provider).
		Str("event_id", event.EventID).
		Str("reference", event.OperationReference()).
		Logger()

	now := time.Now().UTC()
	record := &domain.WebhookEvent{
		ID:             uuid.New(),
		Provider:       event.Provider,
		EventID:        event.EventID,
		Event:          event.Event,
		Reference:      event.OperationReference(),
		ClaimedStatus:  event.Status,
		Payload:        event.Raw,
		Status:         domain.WebhookEventStatusReceived,
		VerifyAttempts: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Durable dedup. The Redis SETNX in the consumer is only a fast path;
	// this insert is what actually guarantees at-most-once processing.
	isNew, err := s.webhookRepo.Insert(ctx, record)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("insert webhook event: %w", err))
	}
	if !isNew {
		stored, err := s.webhookRepo.Get(ctx, event.Provider, event.EventID)
		if err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("get webhook event: %w", err))
		}
		if stored == nil {
			return "", apperror.InternalError(fmt.Errorf("webhook event vanished: %s/%s", event.Provider, event.EventID))
		}
		if stored.Status != domain.WebhookEventStatusReceived {
			log.Info().Str("stored_status", string(stored.Status)).Msg("replayed webhook event acknowledged")
			return domain.GateOutcomeAlreadyProcessed, nil
		}
		// A prior delivery crashed mid-flight; resume against the stored row.
		record = stored
	}

	if !event.Status.IsTerminal() {
		// Informational events carry no state transition.
		if err := s.webhookRepo.UpdateStatus(ctx, record.ID, domain.WebhookEventStatusProcessed); err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("mark event processed: %w", err))
		}
		log.Debug().Str("claimed", string(event.Status)).Msg("non-terminal webhook event acknowledged")
		return domain.GateOutcomeAlreadyProcessed, nil
	}

	// Verification before trust: ask the provider what actually happened.
	client, err := s.providers.Get(event.Provider)
	if err != nil {
		return "", err
	}

	verified, err := client.Verify(ctx, event.OperationReference())
	if err != nil {
		return s.handleVerifyFailure(ctx, log, record, err)
	}

	if verified != event.Status {
		// The payload lied, or raced ahead of the provider's own books.
		if verified == domain.ProviderStatusPending {
			// Provider has not settled yet; the event stays eligible for retry.
			log.Warn().
				Str("claimed", string(event.Status)).
				Msg("webhook claims terminal status the provider has not confirmed yet")
			return domain.GateOutcomePendingRetry, nil
		}
		if err := s.webhookRepo.UpdateStatus(ctx, record.ID, domain.WebhookEventStatusMismatch); err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("mark event mismatch: %w", err))
		}
		log.Error().
			Str("claimed", string(event.Status)).
			Str("verified", string(verified)).
			Msg("webhook status contradicts provider verification, dropping event")
		return domain.GateOutcomeMismatch, nil
	}

	// Claimed and verified agree on a terminal status. Apply it.
	switch event.Kind {
	case domain.OperationPayout:
		err = s.payoutSvc.HandleTerminalStatus(ctx, event.OperationReference(), verified, event.Reference)
	case domain.OperationCollection:
		err = s.applyCollection(ctx, event, verified)
	default:
		err = apperror.Validation(fmt.Sprintf("unknown operation kind: %s", event.Kind))
	}
	if err != nil {
		return "", err
	}

	if err := s.webhookRepo.UpdateStatus(ctx, record.ID, domain.WebhookEventStatusProcessed); err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("mark event processed: %w", err))
	}

	log.Info().
		Str("verified", string(verified)).
		Str("kind", string(event.Kind)).
		Msg("webhook event verified and applied")
	return domain.GateOutcomeApplied, nil
}

// handleVerifyFailure counts the failed attempt and decides between retry and
// dead-letter.
func (s *ReconciliationGateImpl) handleVerifyFailure(ctx context.Context, log zerolog.Logger, record *domain.WebhookEvent, verifyErr error) (domain.GateOutcome, error) {
	attempts, err := s.webhookRepo.IncrementVerifyAttempts(ctx, record.ID)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("increment verify attempts: %w", err))
	}

	if attempts >= s.maxVerifyAttempts {
		if err := s.webhookRepo.UpdateStatus(ctx, record.ID, domain.WebhookEventStatusNeedsReview); err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("mark event needs review: %w", err))
		}
		log.Error().Err(verifyErr).Int("attempts", attempts).Msg("verification retry cap reached, dead-lettering event")
		return domain.GateOutcomeDeadLettered, nil
	}

	log.Warn().Err(verifyErr).Int("attempts", attempts).Msg("provider verification unavailable, will retry")
	return domain.GateOutcomePendingRetry, nil
}

// applyCollection credits confirmed inbound funds. Failed collections never
// touch the ledger; nothing was recorded at initiation.
func (s *ReconciliationGateImpl) applyCollection(ctx context.Context, event domain.ProviderEvent, verified domain.ProviderStatus) error {
	if verified != domain.ProviderStatusSuccessful {
		s.log.Info().
			Str("reference", event.OperationReference()).
			Str("verified", string(verified)).
			Msg("non-successful collection acknowledged without ledger entry")
		return nil
	}
	if event.BusinessID == uuid.Nil {
		return apperror.Validation("collection event missing business id")
	}
	if !event.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}

	actor := domain.SystemActor(event.BusinessID)
	wallet, err := s.walletSvc.GetOrCreate(ctx, actor, event.Currency, domain.WalletTypeVendorPayout)
	if err != nil {
		return err
	}

	result, err := s.ledger.Record(ctx, actor, ports.RecordRequest{
		WalletID:           wallet.ID,
		Category:           domain.CategoryCredit,
		Type:               domain.TxTypeDeposit,
		Amount:             event.Amount,
		Reference:          event.OperationReference(),
		Processor:          event.Provider,
		ProcessorReference: event.Reference,
		Metadata:           domain.Metadata{"event": event.Event},
	})
	if err != nil {
		return err
	}

	if result.Outcome == domain.RecordOutcomeDuplicate {
		s.log.Info().
			Str("reference", event.OperationReference()).
			Str("tx_id", result.Transaction.ID.String()).
			Msg("collection already credited, replay resolved to prior entry")
	}
	return nil
}
