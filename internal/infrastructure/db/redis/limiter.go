package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter is a fixed-window counter shared by every API instance.
// Key format: <prefix>:<key>
type AttemptLimiter struct {
	client      *redis.Client
	prefix      string
	window      time.Duration
	maxAttempts int64
}

// NewAttemptLimiter allows maxAttempts calls per key inside each window.
func NewAttemptLimiter(client *redis.Client, prefix string, window time.Duration, maxAttempts int) *AttemptLimiter {
	if prefix == "" {
		prefix = "attempts"
	}
	return &AttemptLimiter{
		client:      client,
		prefix:      prefix,
		window:      window,
		maxAttempts: int64(maxAttempts),
	}
}

// Allow counts one attempt for key and reports whether it is within budget.
// On Redis errors the attempt is allowed and the error returned so callers
// can log it.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("attempt limiter: %w", err)
	}
	if n == 1 {
		// First hit opens the window.
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true, fmt.Errorf("attempt limiter: %w", err)
		}
	}
	return n <= l.maxAttempts, nil
}

// Reset forgets every attempt recorded for key.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *AttemptLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}
