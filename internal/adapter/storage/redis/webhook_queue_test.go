package redis

import (
	"context"
	"testing"

	"lending-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*WebhookQueue, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewWebhookQueue(client, "webhooks:pending", "webhooks:dead"), s
}

func testEvent() domain.ProviderEvent {
	return domain.ProviderEvent{
		Provider:  domain.ProviderFincra,
		EventID:   "evt-42",
		Event:     "payout.successful",
		Kind:      domain.OperationPayout,
		Reference: "WD-abc123",
		Status:    domain.ProviderStatusSuccessful,
		Amount:    decimal.RequireFromString("500.00"),
		Currency:  "NGN",
	}
}

func TestWebhookQueue_EnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	event := testEvent()

	require.NoError(t, q.Enqueue(ctx, event))

	got, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, event.Provider, got.Provider)
	assert.Equal(t, event.EventID, got.EventID)
	assert.Equal(t, event.Reference, got.Reference)
	assert.Equal(t, event.Status, got.Status)
	assert.True(t, event.Amount.Equal(got.Amount))
}

func TestWebhookQueue_FIFOOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	first := testEvent()
	first.EventID = "evt-first"
	second := testEvent()
	second.EventID = "evt-second"

	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got1, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got1)
	assert.Equal(t, "evt-first", got1.EventID)

	got2, err := q.Dequeue(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got2)
	assert.Equal(t, "evt-second", got2.EventID)
}

func TestWebhookQueue_DeadLetter(t *testing.T) {
	q, s := newTestQueue(t)
	ctx := context.Background()
	event := testEvent()
	event.Attempts = 5

	require.NoError(t, q.DeadLetter(ctx, event))

	// Dead-lettered events never come back through Dequeue
	assert.False(t, s.Exists("webhooks:pending"))
	items, err := s.List("webhooks:dead")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
