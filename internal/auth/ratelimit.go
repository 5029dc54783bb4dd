package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts login attempts per username.
type Limiter interface {
	CheckLogin(ctx context.Context, username string) error
	ResetLogin(ctx context.Context, username string) error
}

type RateLimiter struct {
	redis       *redis.Client
	maxAttempts int64
	window      time.Duration
}

func NewRateLimiter(redis *redis.Client, maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:       redis,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (r *RateLimiter) CheckLogin(ctx context.Context, username string) error {
	key := loginKey(username)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}

	if count > r.maxAttempts {
		return ErrTooManyAttempts
	}

	return nil
}

func (r *RateLimiter) ResetLogin(ctx context.Context, username string) error {
	return r.redis.Del(ctx, loginKey(username)).Err()
}

func loginKey(username string) string {
	return fmt.Sprintf("login_attempts:%s", username)
}
