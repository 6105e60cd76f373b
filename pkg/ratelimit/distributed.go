package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Limiter decides whether a keyed request fits within its quota
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	GetRemaining(ctx context.Context, key string) (int64, error)
}

// Config defines rate limiter configuration
type Config struct {
	// Limit is the maximum number of requests allowed per window
	Limit int64

	Window time.Duration

	// KeyPrefix is prepended to all Redis keys
	KeyPrefix string
}

// DistributedLimiter is a sliding-window limiter shared by every replica
// through Redis sorted sets.
type DistributedLimiter struct {
	redis  redis.UniversalClient
	config Config
	logger *zap.Logger
}

// NewDistributedLimiter creates a new distributed rate limiter
func NewDistributedLimiter(client redis.UniversalClient, config Config, logger *zap.Logger) *DistributedLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit"
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &DistributedLimiter{
		redis:  client,
		config: config,
		logger: logger,
	}
}

// Allow records one request for key and reports whether it is within the limit
func (l *DistributedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.makeKey(key)
	now := time.Now()
	windowStart := now.Add(-l.config.Window)

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCount(ctx, redisKey, fmt.Sprintf("%d", windowStart.UnixNano()), "+inf")
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, redisKey, l.config.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Failed to execute rate limit pipeline",
			zap.Error(err),
			zap.String("key", key))
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	// the count is taken before this request is added
	current := countCmd.Val()
	allowed := current < l.config.Limit
	if !allowed {
		l.logger.Debug("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("current", current),
			zap.Int64("limit", l.config.Limit))
	}

	return allowed, nil
}

// GetRemaining returns remaining quota in the current window
func (l *DistributedLimiter) GetRemaining(ctx context.Context, key string) (int64, error) {
	windowStart := time.Now().Add(-l.config.Window)

	count, err := l.redis.ZCount(ctx, l.makeKey(key),
		fmt.Sprintf("%d", windowStart.UnixNano()),
		"+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining quota: %w", err)
	}

	remaining := l.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *DistributedLimiter) makeKey(key string) string {
	return fmt.Sprintf("%s:%s", l.config.KeyPrefix, key)
}

// PerIPLimiter creates a limiter keyed by client IP
func PerIPLimiter(client redis.UniversalClient, prefix string, limit int64, window time.Duration, logger *zap.Logger) *DistributedLimiter {
	return NewDistributedLimiter(client, Config{
		Limit:     limit,
		Window:    window,
		KeyPrefix: prefix + "ratelimit:ip",
	}, logger)
}
