package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist holds ids of tokens revoked before their natural expiry.
type Denylist interface {
	Add(ctx context.Context, tokenID string, until time.Time) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

type RedisDenylist struct {
	redis *redis.Client
}

func NewRedisDenylist(redis *redis.Client) *RedisDenylist {
	return &RedisDenylist{redis: redis}
}

func (d *RedisDenylist) Add(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.redis.Set(ctx, denylistKey(tokenID), 1, ttl).Err()
}

func (d *RedisDenylist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.redis.Exists(ctx, denylistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func denylistKey(tokenID string) string {
	return fmt.Sprintf("token_denylist:%s", tokenID)
}
