package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BlacklistRepository persists revocations in a Redis hash of
// ticket id to reason, shared by every validator instance.
type BlacklistRepository struct {
	client redis.Cmdable
	key    string
}

// NewBlacklistRepository builds a repository over key.
func NewBlacklistRepository(client redis.Cmdable, key string) *BlacklistRepository {
	if key == "" {
		key = "gate:blacklist"
	}
	return &BlacklistRepository{client: client, key: key}
}

// Load returns every persisted revocation.
func (r *BlacklistRepository) Load(ctx context.Context) (map[string]string, error) {
	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", r.key, err)
	}
	return entries, nil
}

// Add persists a revocation. Re-adding a ticket keeps its first reason.
func (r *BlacklistRepository) Add(ctx context.Context, ticketID, reason string) error {
	if err := r.client.HSetNX(ctx, r.key, ticketID, reason).Err(); err != nil {
		return fmt.Errorf("hsetnx %s: %w", r.key, err)
	}
	return nil
}
