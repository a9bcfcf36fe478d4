package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fraudengine/internal/client"
)

const referencePrefix = "ref:"

// ReferenceCache is the cache-through front for C3's reference-data
// lookups (blacklist, disposable domain, tor node, ASN, known user
// agent). Each lookup kind gets its own key namespace; the TTL is
// passed by the calling check, which uses a single
// config.FraudConfig.CacheTTL value for every kind it caches.
type ReferenceCache struct {
	client *client.RedisClient
}

func NewReferenceCache(c *client.RedisClient) *ReferenceCache {
	return &ReferenceCache{client: c}
}

// Get fetches a cached JSON-encoded value into dest. It returns
// ok=false on a cache miss (including a stored negative-hit marker).
func (r *ReferenceCache) Get(ctx context.Context, namespace, key string, dest interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(namespace, key))
	if err != nil {
		return false, nil
	}
	if raw == negativeHitMarker {
		return false, errNegativeHit
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("reference cache: decode failed for %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set writes value under namespace/key with ttl.
func (r *ReferenceCache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("reference cache: encode failed for %s/%s: %w", namespace, key, err)
	}
	return r.client.Set(ctx, r.key(namespace, key), raw, ttl)
}

// SetMiss caches a negative lookup result so repeated misses for the
// same key don't keep hitting Postgres.
func (r *ReferenceCache) SetMiss(ctx context.Context, namespace, key string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(namespace, key), negativeHitMarker, ttl)
}

func (r *ReferenceCache) Invalidate(ctx context.Context, namespace, key string) error {
	return r.client.Del(ctx, r.key(namespace, key))
}

func (r *ReferenceCache) key(namespace, key string) string {
	return referencePrefix + namespace + ":" + key
}

const negativeHitMarker = "\x00miss"

var errNegativeHit = fmt.Errorf("reference cache: negative hit")

// IsNegativeHit reports whether err was returned because of a cached
// miss marker, as opposed to an actual decode failure.
func IsNegativeHit(err error) bool {
	return err == errNegativeHit
}
