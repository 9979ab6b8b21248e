package queue

import (
	"context"
	"errors"
	"testing"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

type consumerTestDeps struct {
	consumer *WebhookConsumer
	queue    *mocks.MockWebhookQueue
	dedup    *mocks.MockEventDedupStore
	gate     *mocks.MockReconciliationGate
	ctrl     *gomock.Controller
}

func setupConsumer(t *testing.T) *consumerTestDeps {
	ctrl := gomock.NewController(t)
	d := &consumerTestDeps{
		queue: mocks.NewMockWebhookQueue(ctrl),
		dedup: mocks.NewMockEventDedupStore(ctrl),
		gate:  mocks.NewMockReconciliationGate(ctrl),
		ctrl:  ctrl,
	}
	d.consumer = NewWebhookConsumer(d.queue, d.dedup, d.gate, 3, zerolog.Nop())
	return d
}

func testEvent(attempts int) domain.ProviderEvent {
	return domain.ProviderEvent{
		Provider: domain.ProviderFincra,
		EventID:  "evt-" + uuid.NewString(),
		Kind:     domain.OperationPayout,
		Status:   domain.ProviderStatusSuccessful,
		Attempts: attempts,
	}
}

func TestWebhookConsumer_Handle_FirstDelivery(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(0)

	d.dedup.EXPECT().CheckAndSet(ctx, event.Provider, event.EventID).Return(true, nil)
	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomeApplied, nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_CacheReplayDropped(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(0)

	d.dedup.EXPECT().CheckAndSet(ctx, event.Provider, event.EventID).Return(false, nil)
	// Gate never called.

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_CacheDownFallsThrough(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(0)

	d.dedup.EXPECT().CheckAndSet(ctx, event.Provider, event.EventID).
		Return(false, errors.New("connection refused"))
	// Cache outage must not block processing; durable dedup takes over.
	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomeApplied, nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_RequeuedDeliverySkipsCache(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(1)

	// Attempts > 0: the dedup key was set on first delivery, checking it again
	// would wrongly drop the retry.
	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomeApplied, nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_PendingRetryRequeues(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(1)

	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomePendingRetry, nil)
	requeued := event
	requeued.Attempts = 2
	d.queue.EXPECT().Enqueue(ctx, requeued).Return(nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_AttemptsExhaustedDeadLetters(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(2)

	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomePendingRetry, nil)
	deadLettered := event
	deadLettered.Attempts = 3
	d.queue.EXPECT().DeadLetter(ctx, deadLettered).Return(nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_GateErrorRequeues(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(1)

	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcome(""), errors.New("db down"))
	requeued := event
	requeued.Attempts = 2
	d.queue.EXPECT().Enqueue(ctx, requeued).Return(nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Handle_DeadLetterOutcome(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := testEvent(1)

	d.gate.EXPECT().Process(ctx, event).Return(domain.GateOutcomeDeadLettered, nil)
	d.queue.EXPECT().DeadLetter(ctx, event).Return(nil)

	d.consumer.handle(ctx, event)
}

func TestWebhookConsumer_Start_StopsOnContextCancel(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With the context already cancelled the loop must exit without touching
	// the queue.
	d.consumer.Start(ctx)
}
