package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const inFlightMarker = "processing"

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
// It only marks keys in flight; recorded outcomes live in the ledger store.
type IdempotencyStore struct {
	client redis.Cmdable
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// Acquire sets the in-flight marker unless another request holds it.
// The marker expires after ttl so a crashed holder cannot block the key.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, inFlightMarker, ttl).Result()
}

// Release removes the in-flight marker.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
