package service

import (
	"context"
	"encoding/json"
	"testing"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/internal/core/ports/mocks"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gateTestDeps struct {
	svc         *ReconciliationGateImpl
	webhookRepo *mocks.MockWebhookEventRepository
	providers   *mocks.MockProviderRegistry
	client      *mocks.MockProviderClient
	ledger      *mocks.MockLedgerService
	walletSvc   *mocks.MockWalletService
	payoutSvc   *mocks.MockPayoutService
	ctrl        *gomock.Controller
}

func setupGate(t *testing.T) *gateTestDeps {
	ctrl := gomock.NewController(t)
	d := &gateTestDeps{
		webhookRepo: mocks.NewMockWebhookEventRepository(ctrl),
		providers:   mocks.NewMockProviderRegistry(ctrl),
		client:      mocks.NewMockProviderClient(ctrl),
		ledger:      mocks.NewMockLedgerService(ctrl),
		walletSvc:   mocks.NewMockWalletService(ctrl),
		payoutSvc:   mocks.NewMockPayoutService(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewReconciliationGate(
		d.webhookRepo, d.providers,
		d.ledger, d.walletSvc, d.payoutSvc, 3, zerolog.Nop(),
	)
	return d
}

func payoutEvent() domain.ProviderEvent {
	return domain.ProviderEvent{
		Provider:          domain.ProviderFincra,
		EventID:           "evt-" + uuid.NewString(),
		Event:             "payout.successful",
		Kind:              domain.OperationPayout,
		Reference:         "fincra-ref-7",
		CustomerReference: "WD-abc",
		Status:            domain.ProviderStatusSuccessful,
		Raw:               json.RawMessage(`{"event":"payout.successful"}`),
	}
}

func TestGate_Process_VerifiedPayoutApplied(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	// Verification keys off our reference, not the provider's.
	d.client.EXPECT().Verify(ctx, "WD-abc").Return(domain.ProviderStatusSuccessful, nil)
	d.payoutSvc.EXPECT().
		HandleTerminalStatus(ctx, "WD-abc", domain.ProviderStatusSuccessful, "fincra-ref-7").
		Return(nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeApplied, outcome)
}

func TestGate_Process_SpoofedStatusDropped(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent() // Claims SUCCESSFUL

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	// The provider says the payout actually failed; the payload lied.
	d.client.EXPECT().Verify(ctx, "WD-abc").Return(domain.ProviderStatusFailed, nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusMismatch).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeMismatch, outcome)
}

func TestGate_Process_ClaimedTerminalButProviderPending(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "WD-abc").Return(domain.ProviderStatusPending, nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomePendingRetry, outcome)
}

func TestGate_Process_ReplayOfProcessedEventAcknowledged(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	stored := &domain.WebhookEvent{
		ID:       uuid.New(),
		Provider: event.Provider,
		EventID:  event.EventID,
		Status:   domain.WebhookEventStatusProcessed,
	}

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(false, nil)
	d.webhookRepo.EXPECT().Get(ctx, event.Provider, event.EventID).Return(stored, nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeAlreadyProcessed, outcome)
}

func TestGate_Process_CrashedDeliveryResumes(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	// Stored but still RECEIVED: a prior delivery died before finishing.
	stored := &domain.WebhookEvent{
		ID:            uuid.New(),
		Provider:      event.Provider,
		EventID:       event.EventID,
		Reference:     "WD-abc",
		ClaimedStatus: event.Status,
		Status:        domain.WebhookEventStatusReceived,
	}

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(false, nil)
	d.webhookRepo.EXPECT().Get(ctx, event.Provider, event.EventID).Return(stored, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "WD-abc").Return(domain.ProviderStatusSuccessful, nil)
	d.payoutSvc.EXPECT().
		HandleTerminalStatus(ctx, "WD-abc", domain.ProviderStatusSuccessful, "fincra-ref-7").
		Return(nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, stored.ID, domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeApplied, outcome)
}

func TestGate_Process_NonTerminalClaimAcknowledged(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()
	event.Status = domain.ProviderStatusPending

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeAlreadyProcessed, outcome)
}

func TestGate_Process_VerifyUnavailableRetries(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "WD-abc").
		Return(domain.ProviderStatus(""), apperror.ErrProviderTimeout(context.DeadlineExceeded))
	d.webhookRepo.EXPECT().IncrementVerifyAttempts(ctx, gomock.Any()).Return(1, nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomePendingRetry, outcome)
}

func TestGate_Process_VerifyRetryCapDeadLetters(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := payoutEvent()

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderFincra).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "WD-abc").
		Return(domain.ProviderStatus(""), apperror.ErrProviderTimeout(context.DeadlineExceeded))
	d.webhookRepo.EXPECT().IncrementVerifyAttempts(ctx, gomock.Any()).Return(3, nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusNeedsReview).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeDeadLettered, outcome)
}

// ==================== Collection Tests ====================

func collectionEvent(businessID uuid.UUID) domain.ProviderEvent {
	return domain.ProviderEvent{
		Provider:   domain.ProviderPaystack,
		EventID:    "evt-" + uuid.NewString(),
		Event:      "charge.success",
		Kind:       domain.OperationCollection,
		Reference:  "COL-123",
		Status:     domain.ProviderStatusSuccessful,
		Amount:     decimal.RequireFromString("150.00"),
		Currency:   "NGN",
		BusinessID: businessID,
		Raw:        json.RawMessage(`{"event":"charge.success"}`),
	}
}

func TestGate_Process_VerifiedCollectionCredited(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	event := collectionEvent(businessID)
	wallet := activeWallet(businessID, "0")

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderPaystack).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "COL-123").Return(domain.ProviderStatusSuccessful, nil)
	d.walletSvc.EXPECT().
		GetOrCreate(ctx, domain.SystemActor(businessID), "NGN", domain.WalletTypeVendorPayout).
		Return(wallet, nil)
	d.ledger.EXPECT().Record(ctx, domain.SystemActor(businessID), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.CurrentActor, req ports.RecordRequest) (*domain.RecordResult, error) {
			assert.Equal(t, domain.CategoryCredit, req.Category)
			assert.Equal(t, domain.TxTypeDeposit, req.Type)
			assert.Equal(t, "COL-123", req.Reference)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("150.00")))
			return &domain.RecordResult{
				Outcome:     domain.RecordOutcomeRecorded,
				Transaction: &domain.Transaction{ID: uuid.New()},
			}, nil
		})
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeApplied, outcome)
}

func TestGate_Process_CollectionReplayResolvesToPrior(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	businessID := uuid.New()
	event := collectionEvent(businessID)
	// Same collection arrives under a fresh event id; the ledger reference
	// dedup catches it even though the webhook row is new.
	wallet := activeWallet(businessID, "150")

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderPaystack).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "COL-123").Return(domain.ProviderStatusSuccessful, nil)
	d.walletSvc.EXPECT().
		GetOrCreate(ctx, domain.SystemActor(businessID), "NGN", domain.WalletTypeVendorPayout).
		Return(wallet, nil)
	d.ledger.EXPECT().Record(ctx, domain.SystemActor(businessID), gomock.Any()).
		Return(&domain.RecordResult{
			Outcome:     domain.RecordOutcomeDuplicate,
			Transaction: &domain.Transaction{ID: uuid.New()},
		}, nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeApplied, outcome)
}

func TestGate_Process_FailedCollectionNeverTouchesLedger(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := collectionEvent(uuid.New())
	event.Status = domain.ProviderStatusFailed

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderPaystack).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "COL-123").Return(domain.ProviderStatusFailed, nil)
	d.webhookRepo.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.WebhookEventStatusProcessed).Return(nil)

	outcome, err := d.svc.Process(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOutcomeApplied, outcome)
}

func TestGate_Process_CollectionMissingBusinessRejected(t *testing.T) {
	d := setupGate(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := collectionEvent(uuid.Nil)

	d.webhookRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.providers.EXPECT().Get(domain.ProviderPaystack).Return(d.client, nil)
	d.client.EXPECT().Verify(ctx, "COL-123").Return(domain.ProviderStatusSuccessful, nil)

	outcome, err := d.svc.Process(ctx, event)
	assert.Empty(t, outcome)
	assertAppError(t, err, "LED_002")
}
