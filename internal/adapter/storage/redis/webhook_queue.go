package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lending-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// WebhookQueue implements ports.WebhookQueue as a Redis list. The HTTP ingress
// LPUSHes normalized events and acknowledges the provider immediately; the
// consumer BRPOPs them off the other end. Events that exhaust their delivery
// attempts land on a separate dead-letter list for manual inspection.
type WebhookQueue struct {
	client        *goredis.Client
	queueKey      string
	deadLetterKey string
}

// NewWebhookQueue creates a Redis-list-backed webhook queue.
func NewWebhookQueue(client *goredis.Client, queueKey, deadLetterKey string) *WebhookQueue {
	return &WebhookQueue{
		client:        client,
		queueKey:      queueKey,
		deadLetterKey: deadLetterKey,
	}
}

// Enqueue pushes a normalized event onto the pending queue.
func (q *WebhookQueue) Enqueue(ctx context.Context, event domain.ProviderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue webhook event: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeoutSeconds waiting for an event. Returns nil when
// the timeout elapses with nothing pending.
func (q *WebhookQueue) Dequeue(ctx context.Context, timeoutSeconds int) (*domain.ProviderEvent, error) {
	result, err := q.client.BRPop(ctx, time.Duration(timeoutSeconds)*time.Second, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue webhook event: %w", err)
	}
	// BRPOP returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply length: %d", len(result))
	}

	var event domain.ProviderEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return nil, fmt.Errorf("unmarshal webhook event: %w", err)
	}
	return &event, nil
}

// DeadLetter moves an event onto the dead-letter list.
func (q *WebhookQueue) DeadLetter(ctx context.Context, event domain.ProviderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal dead-letter event: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadLetterKey, payload).Err(); err != nil {
		return fmt.Errorf("dead-letter webhook event: %w", err)
	}
	return nil
}
