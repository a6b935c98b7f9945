package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shulepay/backend/internal/domain/shared"
)

// RedisIdempotencyStore implements IdempotencyStore on Redis. Suitable when
// several instances share gateway callback traffic and must agree on which
// transaction ids have been seen.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store connected to the given address
func NewRedisIdempotencyStore(addr, password string, db int) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: "idempotency:",
	}, nil
}

// NewRedisIdempotencyStoreWithClient creates a store sharing an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "idempotency:"
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks an identifier as processed with a TTL. SETNX makes the
// check-and-set atomic across instances.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.keyPrefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark identifier as processed: %w", err)
	}
	return set, nil
}

// IsProcessed checks whether an identifier has already been processed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check identifier: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
