package bucketing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/config"
)

func newTestManager(velocityBuckets, eventBuckets int) *Manager {
	cfg := &config.Config{}
	cfg.Bucketing.VelocityBuckets = velocityBuckets
	cfg.Bucketing.EventBuckets = eventBuckets
	return NewManager(cfg)
}

func TestVelocityBucket_Deterministic(t *testing.T) {
	m := newTestManager(16, 8)
	a := m.VelocityBucket("user@example.com")
	b := m.VelocityBucket("user@example.com")
	assert.Equal(t, a, b)
}

func TestVelocityBucket_InRange(t *testing.T) {
	m := newTestManager(16, 8)
	for _, key := range []string{"a", "b", "c", "d@example.com", "1.2.3.4"} {
		bucket := m.VelocityBucket(key)
		assert.GreaterOrEqual(t, bucket, 0)
		assert.Less(t, bucket, 16)
	}
}

func TestEventBucket_InRange(t *testing.T) {
	m := newTestManager(16, 8)
	bucket := m.EventBucket("tor")
	assert.GreaterOrEqual(t, bucket, 0)
	assert.Less(t, bucket, 8)
}

func TestGetBucket_ZeroBucketsReturnsZero(t *testing.T) {
	m := newTestManager(0, 0)
	assert.Equal(t, 0, m.VelocityBucket("anything"))
}

func TestDateBucket_FormatsAsISODate(t *testing.T) {
	m := newTestManager(16, 8)
	date := m.DateBucket()
	assert.Len(t, date, 10)
	assert.Equal(t, "-", string(date[4]))
}
