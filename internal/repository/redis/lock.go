package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/client"
	"fraudengine/internal/util"
)

const refreshLockPrefix = "refresh_lock:"

// RefreshLock serializes concurrent refresh-pipeline runs for the same
// source across replicas: a SetNX held for the job's max runtime, same
// pattern the teacher uses for its temporary auth locks.
type RefreshLock struct {
	client *client.RedisClient
}

func NewRefreshLock(c *client.RedisClient) *RefreshLock {
	return &RefreshLock{client: c}
}

// Acquire takes the lock for source, returning false if another run
// already holds it.
func (l *RefreshLock) Acquire(ctx context.Context, source string, ttl time.Duration) (bool, error) {
	key := refreshLockPrefix + source
	ok, err := l.client.SetNX(ctx, key, "locked", ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	if !ok {
		util.Warn("refresh lock already held", zap.String("source", source))
	}
	return ok, nil
}

func (l *RefreshLock) Release(ctx context.Context, source string) error {
	key := refreshLockPrefix + source
	return l.client.Del(ctx, key)
}

const refreshLastSuccessPrefix = "refresh_last_success:"

// MarkSuccess records when source last completed a successful run, so
// the next invocation can refuse to re-run before its minimum
// interval has elapsed. Kept well past any configured interval so a
// quiet source doesn't lose its history.
func (l *RefreshLock) MarkSuccess(ctx context.Context, source string, at time.Time) error {
	key := refreshLastSuccessPrefix + source
	return l.client.Set(ctx, key, at.Format(time.RFC3339), 30*24*time.Hour)
}

// LastSuccess returns the timestamp of source's last successful run,
// or ok=false if none is recorded.
func (l *RefreshLock) LastSuccess(ctx context.Context, source string) (time.Time, bool, error) {
	key := refreshLastSuccessPrefix + source
	raw, err := l.client.Get(ctx, key)
	if err != nil || raw == "" {
		return time.Time{}, false, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("refresh lock: unparseable last-success timestamp: %w", err)
	}
	return at, true, nil
}
