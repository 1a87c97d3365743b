package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quotebot/internal/config"
	"quotebot/internal/pricing"
)

const keyPrefix = "quote:session:"

// RedisStore implements Store on top of Redis, storing each quote as JSON.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewRedisStore wraps client. A zero ttl keeps quotes until overwritten.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (pricing.Quote, bool, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return pricing.Quote{}, false, nil
	}
	if err != nil {
		return pricing.Quote{}, false, fmt.Errorf("redis get: %w", err)
	}

	var q pricing.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return pricing.Quote{}, false, fmt.Errorf("decode quote: %w", err)
	}
	return q, true, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, quote pricing.Quote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.client.Set(ctx, key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}
