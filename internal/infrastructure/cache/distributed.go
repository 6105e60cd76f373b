package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisConfig holds redis connection settings
type RedisConfig struct {
	URL        string
	Addrs      []string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// NewRedisClient connects to a single node when URL is set, otherwise to
// Addrs as a universal (cluster or single) client. The connection is pinged.
func NewRedisClient(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		if cfg.MaxRetries > 0 {
			opts.MaxRetries = cfg.MaxRetries
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:      cfg.Addrs,
			Password:   cfg.Password,
			DB:         cfg.DB,
			MaxRetries: cfg.MaxRetries,
			PoolSize:   cfg.PoolSize,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis")
	return client, nil
}

// DistributedCache is a prefixed key/value view over redis
type DistributedCache struct {
	client     redis.UniversalClient
	logger     *zap.Logger
	prefix     string
	defaultTTL time.Duration
}

func NewDistributedCache(client redis.UniversalClient, prefix string, logger *zap.Logger) *DistributedCache {
	return &DistributedCache{
		client:     client,
		logger:     logger,
		prefix:     prefix,
		defaultTTL: time.Minute,
	}
}

// Get returns "" and no error on a miss
func (dc *DistributedCache) Get(ctx context.Context, key string) (string, error) {
	val, err := dc.client.Get(ctx, dc.prefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (dc *DistributedCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = dc.defaultTTL
	}
	return dc.client.Set(ctx, dc.prefix+key, value, ttl).Err()
}

// SetNX sets key only when absent
func (dc *DistributedCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	return dc.client.SetNX(ctx, dc.prefix+key, value, ttl).Result()
}

// CompareAndDelete deletes key only while it still holds value
func (dc *DistributedCache) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, dc.client, []string{dc.prefix + key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (dc *DistributedCache) Del(ctx context.Context, key string) error {
	return dc.client.Del(ctx, dc.prefix+key).Err()
}

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
