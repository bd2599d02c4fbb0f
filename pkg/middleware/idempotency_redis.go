package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix     = "idempotency:"
	idempotencyLockPrefix = "idempotency-lock:"
)

// RedisIdempotencyStore shares idempotency state between replicas.
type RedisIdempotencyStore struct {
	client  redis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisIdempotencyStore stores responses for ttl. A claim taken by Begin
// expires after lockTTL so a crashed replica cannot hold a key forever.
func NewRedisIdempotencyStore(client redis.Cmdable, ttl, lockTTL time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotent response: %w", err)
	}
	return &response, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode idempotent response: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyLockPrefix+key, 1, s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) End(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyLockPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Stop is a no-op; the client is owned and closed by pkg/client.
func (s *RedisIdempotencyStore) Stop() {}
