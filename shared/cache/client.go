package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection
func NewClient(cfg *Config, logger *slog.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	logger.Info("Connecting to Redis",
		slog.String("addr", addr),
		slog.Int("db", cfg.DB),
	)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return client, nil
}

// IdempotencyStore remembers processed keys using SETNX
type IdempotencyStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewIdempotencyStore creates a store with the given key prefix
func NewIdempotencyStore(client redis.Cmdable, keyPrefix string) *IdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "idempotency:"
	}
	return &IdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed returns true if key was newly marked, false if it was already present
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return ok, nil
}

// Forget removes a key so that the operation can be attempted again
func (s *IdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}
