// Package queue holds the webhook consumer that drains the Redis-backed
// pending queue and feeds events through the reconciliation gate.
package queue

import (
	"context"
	"time"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const dequeueTimeoutSeconds = 5

// WebhookConsumer pops normalized provider events off the queue and runs each
// through the gate. Events whose verification is temporarily unavailable are
// requeued; events that exhaust their attempts go to the dead-letter list.
type WebhookConsumer struct {
	queue       ports.WebhookQueue
	dedup       ports.EventDedupStore
	gate        ports.ReconciliationGate
	maxAttempts int
	log         zerolog.Logger
}

// NewWebhookConsumer creates a new WebhookConsumer.
func NewWebhookConsumer(
	queue ports.WebhookQueue,
	dedup ports.EventDedupStore,
	gate ports.ReconciliationGate,
	maxAttempts int,
	log zerolog.Logger,
) *WebhookConsumer {
	return &WebhookConsumer{
		queue:       queue,
		dedup:       dedup,
		gate:        gate,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Start drains the queue until the context is cancelled.
func (c *WebhookConsumer) Start(ctx context.Context) {
	c.log.Info().Msg("webhook consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("webhook consumer stopped")
			return
		default:
		}

		event, err := c.queue.Dequeue(ctx, dequeueTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("webhook consumer stopped")
				return
			}
			c.log.Error().Err(err).Msg("webhook dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if event == nil {
			continue
		}

		c.handle(ctx, *event)
	}
}

func (c *WebhookConsumer) handle(ctx context.Context, event domain.ProviderEvent) {
	log := c.log.With().
		Str("provider", event.Provider).
		Str("event_id", event.EventID).
		Int("attempts", event.Attempts).
		Logger()

	// Fast-path replay check. Only first deliveries pass; requeued events
	// carry Attempts > 0 and skip it, since their key is already set.
	if event.Attempts == 0 {
		isNew, err := c.dedup.CheckAndSet(ctx, event.Provider, event.EventID)
		if err != nil {
			// Cache down; the gate's durable dedup still protects us.
			log.Warn().Err(err).Msg("event dedup cache unavailable, falling through")
		} else if !isNew {
			log.Info().Msg("replayed event dropped by dedup cache")
			return
		}
	}

	outcome, err := c.gate.Process(ctx, event)
	if err != nil {
		log.Error().Err(err).Msg("gate processing failed")
		c.requeue(ctx, log, event)
		return
	}

	switch outcome {
	case domain.GateOutcomePendingRetry:
		c.requeue(ctx, log, event)
	case domain.GateOutcomeDeadLettered:
		if err := c.queue.DeadLetter(ctx, event); err != nil {
			log.Error().Err(err).Msg("dead-letter push failed")
		}
	default:
		log.Debug().Str("outcome", string(outcome)).Msg("webhook event settled")
	}
}

func (c *WebhookConsumer) requeue(ctx context.Context, log zerolog.Logger, event domain.ProviderEvent) {
	event.Attempts++
	if event.Attempts >= c.maxAttempts {
		log.Error().Int("attempts", event.Attempts).Msg("webhook delivery attempts exhausted, dead-lettering")
		if err := c.queue.DeadLetter(ctx, event); err != nil {
			log.Error().Err(err).Msg("dead-letter push failed")
		}
		return
	}
	if err := c.queue.Enqueue(ctx, event); err != nil {
		log.Error().Err(err).Msg("requeue failed")
	}
}
