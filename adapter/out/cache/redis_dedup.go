// Package cache provides the Redis fast path for message dedup checks.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenTTL bounds how long a dedup marker lives. The relational unique index
// is the source of truth; expiry here only costs an extra Exists query.
const seenTTL = 7 * 24 * time.Hour

// RedisDedupCache implements out.DedupCache.
type RedisDedupCache struct {
	client *redis.Client
}

func NewRedisDedupCache(client *redis.Client) *RedisDedupCache {
	return &RedisDedupCache{client: client}
}

func seenKey(accountID int64, messageID string) string {
	return fmt.Sprintf("email:seen:%d:%s", accountID, messageID)
}

func (c *RedisDedupCache) Seen(ctx context.Context, accountID int64, messageID string) (bool, error) {
	count, err := c.client.Exists(ctx, seenKey(accountID, messageID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *RedisDedupCache) MarkSeen(ctx context.Context, accountID int64, messageID string) error {
	return c.client.Set(ctx, seenKey(accountID, messageID), "1", seenTTL).Err()
}
