// Package bucketing provides consistent-hash sharding for velocity
// counter keys, so a single hot identity doesn't pin all its traffic
// to one Redis key, plus the time-bucket helpers; TimeBucket keys the
// velocity window.
package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"fraudengine/internal/config"
)

type Manager struct {
	velocityBuckets int
	eventBuckets    int
	hasherPool      sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		velocityBuckets: cfg.Bucketing.VelocityBuckets,
		eventBuckets:    cfg.Bucketing.EventBuckets,
	}
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return m
}

// VelocityBucket returns a consistent shard index in [0, velocityBuckets)
// for an identity key, used as a suffix on the velocity counter's Redis
// key so high-traffic identities fan out across shards.
func (m *Manager) VelocityBucket(identityKey string) int {
	return m.getBucket(identityKey, m.velocityBuckets)
}

// EventBucket returns a consistent shard index in [0, eventBuckets)
// for an event identifier.
func (m *Manager) EventBucket(identifier string) int {
	return m.getBucket(identifier, m.eventBuckets)
}

// TimeBucket floors now to the start of a windowSeconds-wide bucket —
// used by the velocity counters to key a fixed rolling window.
func (m *Manager) TimeBucket(windowSeconds int) int64 {
	return time.Now().Unix() / int64(windowSeconds) * int64(windowSeconds)
}

// DateBucket returns the current UTC date as YYYY-MM-DD.
func (m *Manager) DateBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (m *Manager) getBucket(key string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}
	return int(m.getHash(key) % uint64(numBuckets))
}

func (m *Manager) getHash(key string) uint64 {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)
	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
