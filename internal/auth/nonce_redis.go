package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const nonceKeyPrefix = "auth_nonce:"

// RedisNonceStore backs challenges with Redis. Expiry rides on key TTL, so
// no sweeper is needed; a restart of the service does not invalidate
// outstanding challenges.
type RedisNonceStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisNonceStore(client *redis.Client, ttl time.Duration) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisNonceStore) Create(ctx context.Context, address string) (string, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return "", err
	}

	key := nonceKeyPrefix + nonce
	if err := s.client.Set(ctx, key, strings.ToLower(address), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce, address string) (bool, error) {
	key := nonceKeyPrefix + nonce

	// GET then DEL in a pipeline so the nonce is spent whatever the
	// address comparison says.
	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	stored, err := get.Result()
	if err != nil {
		return false, nil
	}
	return stored == strings.ToLower(address), nil
}
