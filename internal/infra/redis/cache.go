package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/genflow/internal/core/domain"
)

const (
	defaultSnapshotTTL = 3 * time.Second
	recentJobsMax      = 100
)

// StatusCache stores recent status observations and the daily quota
// counters shared with the limiter.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatusCache creates a cache over an established client.
func NewStatusCache(client *Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &StatusCache{rdb: client.rdb, ttl: ttl}
}

// Key helpers
func snapshotKey(remoteID string) string {
	return fmt.Sprintf("genflow:status:%s", remoteID)
}

func quotaKey(day string, model domain.Model) string {
	return fmt.Sprintf("genflow:quota:%s:%s", day, model)
}

const recentKey = "genflow:recent"

// SetSnapshot stores one status observation. Terminal snapshots are kept
// longer so a dashboard refresh right after completion still hits cache.
func (c *StatusCache) SetSnapshot(ctx context.Context, snap *domain.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	ttl := c.ttl
	if snap.Status.Terminal() {
		ttl = time.Hour
	}

	if err := c.rdb.Set(ctx, snapshotKey(snap.RemoteID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves a cached observation, or (nil, nil) on a miss.
func (c *StatusCache) GetSnapshot(ctx context.Context, remoteID string) (*domain.StatusSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(remoteID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap domain.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// PushRecent records remoteID at the head of the recent-jobs list.
func (c *StatusCache) PushRecent(ctx context.Context, remoteID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, recentKey, remoteID)
	pipe.LTrim(ctx, recentKey, 0, recentJobsMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push recent job: %w", err)
	}
	return nil
}

// Recent returns up to n recently submitted remote IDs, newest first.
func (c *StatusCache) Recent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 || n > recentJobsMax {
		n = recentJobsMax
	}
	return c.rdb.LRange(ctx, recentKey, 0, int64(n-1)).Result()
}

// IncrQuota bumps today's counter for model and returns the new value.
// The key expires at the midnight-UTC rollover, matching the limiter's
// reset.
func (c *StatusCache) IncrQuota(ctx context.Context, model domain.Model) (int64, error) {
	now := time.Now().UTC()
	key := quotaKey(now.Format("2006-01-02"), model)

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	pipe.ExpireAt(ctx, key, midnight)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment quota: %w", err)
	}
	return incr.Val(), nil
}

// QuotaCount reads today's counter for model.
func (c *StatusCache) QuotaCount(ctx context.Context, model domain.Model) (int64, error) {
	key := quotaKey(time.Now().UTC().Format("2006-01-02"), model)
	val, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quota count: %w", err)
	}
	return val, nil
}

// ResetQuota deletes every quota counter. Used by the admin tool.
func (c *StatusCache) ResetQuota(ctx context.Context) (int, error) {
	var deleted int
	iter := c.rdb.Scan(ctx, 0, "genflow:quota:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("quota scan failed: %w", err)
	}
	return deleted, nil
}
