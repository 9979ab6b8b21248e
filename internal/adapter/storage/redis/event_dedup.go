package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventDedupStore implements ports.EventDedupStore using Redis SET NX. It is
// the fast-path replay check in front of the durable webhook_events table; a
// cache flush only costs an extra database round trip, never a double apply.
type EventDedupStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewEventDedupStore creates a new Redis-backed event dedup store.
func NewEventDedupStore(client *goredis.Client, ttl time.Duration) *EventDedupStore {
	return &EventDedupStore{
		client: client,
		prefix: "webhook:seen:",
		ttl:    ttl,
	}
}

// CheckAndSet atomically checks if the event key exists, sets it if not.
// Returns true if the event is new, false if already seen.
func (s *EventDedupStore) CheckAndSet(ctx context.Context, provider, eventID string) (bool, error) {
	key := s.prefix + provider + ":" + eventID
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  s.ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, event was already delivered
			return false, nil
		}
		return false, fmt.Errorf("redis event dedup check: %w", err)
	}
	return result == "OK", nil
}
