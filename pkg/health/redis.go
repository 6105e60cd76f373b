package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisChecker checks the Redis instance backing fund locks and the price cache
type RedisChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedisChecker(client redis.UniversalClient, timeout time.Duration) *RedisChecker {
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &RedisChecker{
		client:  client,
		timeout: timeout,
	}
}

// Check pings Redis and reports pool statistics
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return NewUnhealthyResult(c.Name(), err).WithDuration(time.Since(start))
	}

	result := NewHealthyResult(c.Name(), "connected").WithDuration(time.Since(start))
	if stats := c.client.PoolStats(); stats != nil {
		result = result.
			WithMetadata("total_conns", stats.TotalConns).
			WithMetadata("idle_conns", stats.IdleConns).
			WithMetadata("timeouts", stats.Timeouts)
		if stats.Timeouts > 0 && stats.IdleConns == 0 {
			result.Status = StatusDegraded
			result.Message = "connection pool exhausted"
		}
	}
	return result
}

func (c *RedisChecker) Name() string {
	return "redis"
}
