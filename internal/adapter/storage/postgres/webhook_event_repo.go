package postgres

import (
	"context"
	"errors"
	"fmt"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const webhookEventColumns = `id, provider, event_id, event, reference, claimed_status,
	payload, status, verify_attempts, created_at, updated_at`

// WebhookEventRepo implements ports.WebhookEventRepository. It is the durable
// half of webhook dedup; the Redis SETNX check in front of it is best-effort.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Insert stores the event if (provider, event_id) is unseen and returns true.
// A replayed event returns false without error.
func (r *WebhookEventRepo) Insert(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	query := `INSERT INTO webhook_events (id, provider, event_id, event, reference, claimed_status,
		payload, status, verify_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (provider, event_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		event.ID, event.Provider, event.EventID, event.Event, event.Reference,
		event.ClaimedStatus, []byte(event.Payload), event.Status,
		event.VerifyAttempts, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get fetches the stored event for a (provider, event_id) pair.
func (r *WebhookEventRepo) Get(ctx context.Context, provider, eventID string) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE provider = $1 AND event_id = $2`

	e := &domain.WebhookEvent{}
	var payload []byte
	err := r.pool.QueryRow(ctx, query, provider, eventID).Scan(
		&e.ID, &e.Provider, &e.EventID, &e.Event, &e.Reference, &e.ClaimedStatus,
		&payload, &e.Status, &e.VerifyAttempts, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	e.Payload = payload
	return e, nil
}

// UpdateStatus records the processing outcome of a stored event.
func (r *WebhookEventRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WebhookEventStatus) error {
	query := `UPDATE webhook_events SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update webhook event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook event not found: %s", id)
	}
	return nil
}

// IncrementVerifyAttempts bumps the verification counter and returns the new value.
func (r *WebhookEventRepo) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE webhook_events SET verify_attempts = verify_attempts + 1, updated_at = NOW()
		WHERE id = $1 RETURNING verify_attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment webhook verify attempts: %w", err)
	}
	return attempts, nil
}
