// Package idempotency deduplicates webhook deliveries. Voice vendors retry
// aggressively; a delivery id that was already seen is acknowledged without
// reprocessing.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Guard is a first-seen check backed by Redis SETNX.
type Guard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewGuard creates a guard. The prefix namespaces keys per vendor.
func NewGuard(client *redis.Client, prefix string, ttl time.Duration) *Guard {
	if prefix == "" {
		prefix = "webhook"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Guard{client: client, prefix: prefix, ttl: ttl}
}

// FirstSeen marks the key and reports whether this delivery is new. The first
// caller for a key gets true; every later caller inside the TTL gets false.
// A nil client degrades to always-first so the webhook path keeps working
// without Redis.
func (g *Guard) FirstSeen(ctx context.Context, key string) (bool, error) {
	if g == nil || g.client == nil || key == "" {
		return true, nil
	}
	ok, err := g.client.SetNX(ctx, g.prefix+":"+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: setnx %s: %w", key, err)
	}
	return ok, nil
}
