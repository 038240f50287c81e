package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-dms/internal/loading"
)

const defaultTTL = 24 * time.Hour

// Store keeps rendered receipts in Redis.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStore constructs a Store. Receipts expire after ttl.
func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Key returns the Redis key of a group's receipt.
func Key(workflow, group string) string {
	return fmt.Sprintf("dms:receipt:%s:%s", workflow, group)
}

// Save stores pdf, replacing any earlier receipt of the group.
func (s *Store) Save(ctx context.Context, workflow, group string, pdf []byte) error {
	if err := s.client.Set(ctx, Key(workflow, group), pdf, s.ttl).Err(); err != nil {
		return fmt.Errorf("receipt: save: %w", err)
	}
	return nil
}

// Load returns the stored receipt or loading.ErrReceiptNotFound.
func (s *Store) Load(ctx context.Context, workflow, group string) ([]byte, error) {
	data, err := s.client.Get(ctx, Key(workflow, group)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", loading.ErrReceiptNotFound, group)
	}
	if err != nil {
		return nil, fmt.Errorf("receipt: load: %w", err)
	}
	return data, nil
}
