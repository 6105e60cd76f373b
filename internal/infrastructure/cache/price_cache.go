package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/metrics"
)

// PriceSource is the oracle being cached
type PriceSource interface {
	GetPrice(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// CachedPriceOracle serves recent oracle prices from redis. Cache failures
// fall through to the oracle; missing prices are never cached.
type CachedPriceOracle struct {
	source PriceSource
	cache  *DistributedCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedPriceOracle(source PriceSource, cache *DistributedCache, ttl time.Duration, logger *zap.Logger) *CachedPriceOracle {
	return &CachedPriceOracle{source: source, cache: cache, ttl: ttl, logger: logger}
}

func priceKey(assetID string) string {
	return "price:" + assetID
}

func (o *CachedPriceOracle) GetPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	start := time.Now()
	raw, err := o.cache.Get(ctx, priceKey(assetID))
	metrics.RecordRedisOperation("get_price", time.Since(start).Seconds())
	if err != nil {
		o.logger.Warn("Price cache read failed", zap.String("asset_id", assetID), zap.Error(err))
	} else if raw != "" {
		if price, perr := decimal.NewFromString(raw); perr == nil {
			return price, nil
		}
		o.logger.Warn("Discarding unparsable cached price", zap.String("asset_id", assetID), zap.String("value", raw))
	}

	price, err := o.source.GetPrice(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, entities.ErrPriceUnavailable
	}

	start = time.Now()
	err = o.cache.Set(ctx, priceKey(assetID), price.String(), o.ttl)
	metrics.RecordRedisOperation("set_price", time.Since(start).Seconds())
	if err != nil {
		o.logger.Warn("Price cache write failed", zap.String("asset_id", assetID), zap.Error(err))
	}
	return price, nil
}

// Invalidate drops a cached price
func (o *CachedPriceOracle) Invalidate(ctx context.Context, assetID string) error {
	return o.cache.Del(ctx, priceKey(assetID))
}
