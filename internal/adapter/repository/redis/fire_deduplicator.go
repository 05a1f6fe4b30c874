package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fire:"

// setNX is the part of *redis.Client the deduplicator needs
type setNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// FireDeduplicator remembers executed fire keys so an occurrence recovered by
// another instance is not executed twice
type FireDeduplicator struct {
	client setNX
}

// NewFireDeduplicator creates a FireDeduplicator backed by the given client
func NewFireDeduplicator(client *redis.Client) *FireDeduplicator {
	return &FireDeduplicator{client: client}
}

// Claim marks the key as executed. It returns false if the key was already claimed.
func (d *FireDeduplicator) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim fire key: %w", err)
	}
	return ok, nil
}
