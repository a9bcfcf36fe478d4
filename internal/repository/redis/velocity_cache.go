// Package redis holds the cache-through repositories the evaluator and
// refresh pipeline use on top of the shared Redis client.
package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/bucketing"
	"fraudengine/internal/client"
	"fraudengine/internal/util"
)

const velocityPrefix = "velocity:"

// VelocityCache implements the sliding-bucket counters behind C4: how
// many times has this email/IP/card/phone been seen in the current
// window. Keys are sharded by Manager.VelocityBucket so one hot
// identity can't pin all its traffic onto a single Redis key.
type VelocityCache struct {
	client  *client.RedisClient
	buckets *bucketing.Manager
}

func NewVelocityCache(c *client.RedisClient, buckets *bucketing.Manager) *VelocityCache {
	return &VelocityCache{client: c, buckets: buckets}
}

// Bump increments the counter for (indexHash, window) and returns the
// post-increment count. window determines both the bucket width and
// the key's TTL, so stale buckets expire on their own.
func (v *VelocityCache) Bump(ctx context.Context, scope, indexHash string, window time.Duration) (int64, error) {
	key := v.key(scope, indexHash, window)
	count, err := v.client.IncrWithExpire(ctx, key, window)
	if err != nil {
		return 0, fmt.Errorf("velocity bump failed: %w", err)
	}
	return count, nil
}

// Count reads the current count without incrementing, returning 0 if
// no counter is set for the window yet.
func (v *VelocityCache) Count(ctx context.Context, scope, indexHash string, window time.Duration) (int64, error) {
	key := v.key(scope, indexHash, window)
	val, err := v.client.Get(ctx, key)
	if err != nil {
		return 0, nil
	}
	var n int64
	if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
		util.Warn("velocity cache: unparseable counter", zap.String("key", key), zap.String("value", val))
		return 0, nil
	}
	return n, nil
}

func (v *VelocityCache) key(scope, indexHash string, window time.Duration) string {
	timeBucket := v.buckets.TimeBucket(int(window.Seconds()))
	shard := v.buckets.VelocityBucket(indexHash)
	return fmt.Sprintf("%s%s:%s:%d:%d", velocityPrefix, scope, indexHash, timeBucket, shard)
}
