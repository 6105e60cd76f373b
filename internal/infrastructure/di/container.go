package di

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/adapters/allocation"
	"github.com/fund-service/fund_service/internal/adapters/httpclient"
	"github.com/fund-service/fund_service/internal/adapters/oracle"
	"github.com/fund-service/fund_service/internal/adapters/swap"
	"github.com/fund-service/fund_service/internal/api/handlers"
	"github.com/fund-service/fund_service/internal/api/middleware"
	allocationsvc "github.com/fund-service/fund_service/internal/domain/services/allocation"
	"github.com/fund-service/fund_service/internal/domain/services/execution"
	"github.com/fund-service/fund_service/internal/domain/services/ledger"
	"github.com/fund-service/fund_service/internal/domain/services/reconciliation"
	"github.com/fund-service/fund_service/internal/infrastructure/cache"
	"github.com/fund-service/fund_service/internal/infrastructure/config"
	"github.com/fund-service/fund_service/internal/infrastructure/database"
	"github.com/fund-service/fund_service/internal/infrastructure/repositories"
	"github.com/fund-service/fund_service/internal/workers/rebalance_scheduler"
	"github.com/fund-service/fund_service/pkg/circuitbreaker"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/health"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/ratelimit"
	"github.com/fund-service/fund_service/pkg/retry"
)

const slowQueryThreshold = 500 * time.Millisecond

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  redis.UniversalClient
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Repositories
	FundRepo     *repositories.FundRepository
	PositionRepo *repositories.PositionRepository
	TradeRepo    *repositories.TradeRepository

	// Upstream collaborators
	GatewayHTTP    *httpclient.Client
	OracleHTTP     *httpclient.Client
	AllocationHTTP *httpclient.Client
	SwapClient     *swap.Client
	PriceOracle    reconciliation.PriceOracle
	Allocation     *allocation.Client

	// Domain services
	Differ     *allocationsvc.Differ
	Ledger     *ledger.Service
	Executor   *execution.Executor
	Reconciler *reconciliation.Service

	// Workers
	FundLock  rebalance_scheduler.FundLock
	Scheduler *rebalance_scheduler.Scheduler

	Health         *health.HealthChecker
	AdminRateLimit gin.HandlerFunc
	FundHandlers   *handlers.FundHandlers
	HealthHandler  *handlers.HealthHandler
}

// NewContainer wires every component from configuration. Redis is optional:
// without it fund locks are process local and prices are not cached.
func NewContainer(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()
	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
		ZapLog: zapLog,
	}

	observer := database.NewQueryObserver(zapLog, slowQueryThreshold)
	c.FundRepo = repositories.NewFundRepository(db, observer, zapLog)
	c.PositionRepo = repositories.NewPositionRepository(db, observer, zapLog)
	c.TradeRepo = repositories.NewTradeRepository(db, observer, zapLog)

	var distributed *cache.DistributedCache
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, &cache.RedisConfig{
			URL:        cfg.Redis.URL,
			Addrs:      []string{cfg.Redis.Addr()},
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: 3,
			PoolSize:   cfg.Redis.PoolSize,
		}, zapLog)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Redis = client
		distributed = cache.NewDistributedCache(client, cfg.Redis.KeyPrefix, zapLog)
	}

	c.initCollaborators(distributed)
	c.initServices()

	if distributed != nil {
		c.FundLock = cache.NewRedisFundLock(distributed, zapLog)
	} else {
		log.Warn("Redis disabled, fund locks are local to this process")
		c.FundLock = cache.NewMemoryFundLock()
	}

	scheduler, err := rebalance_scheduler.NewScheduler(c.Reconciler, c.FundRepo, c.FundLock, schedulerConfig(cfg.Scheduler), zapLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create rebalance scheduler: %w", err)
	}
	c.Scheduler = scheduler

	c.initHealth()
	c.initRateLimit()

	c.FundHandlers = handlers.NewFundHandlers(c.Scheduler, c.Reconciler, c.FundRepo, c.PositionRepo, c.TradeRepo, log)
	c.HealthHandler = handlers.NewHealthHandler(c.Health)

	return c, nil
}

func (c *Container) initCollaborators(distributed *cache.DistributedCache) {
	cfg := c.Config

	c.GatewayHTTP = httpclient.New(swap.ServiceName, apperrors.CodeGatewayAPIError,
		httpConfig(cfg.Gateway.HTTPClientConfig, retry.PolicyNoRetry), c.ZapLog)

	var paper *httpclient.Client
	if cfg.Gateway.PaperBaseURL != "" {
		paperCfg := cfg.Gateway.HTTPClientConfig
		paperCfg.BaseURL = cfg.Gateway.PaperBaseURL
		paper = httpclient.New(swap.PaperServiceName, apperrors.CodeGatewayAPIError,
			httpConfig(paperCfg, retry.PolicyNoRetry), c.ZapLog)
	}
	c.SwapClient = swap.NewClient(c.GatewayHTTP, paper, c.ZapLog)

	c.OracleHTTP = httpclient.New(oracle.ServiceName, apperrors.CodeOracleAPIError,
		httpConfig(cfg.Oracle.HTTPClientConfig, retry.PolicyExternalAPI), c.ZapLog)
	oracleClient := oracle.NewClient(c.OracleHTTP)
	c.PriceOracle = oracleClient
	if distributed != nil && cfg.Redis.PriceTTLSeconds > 0 {
		ttl := time.Duration(cfg.Redis.PriceTTLSeconds) * time.Second
		c.PriceOracle = cache.NewCachedPriceOracle(oracleClient, distributed, ttl, c.ZapLog)
	}

	c.AllocationHTTP = httpclient.New(allocation.ServiceName, apperrors.CodeAllocationAPIError,
		httpConfig(cfg.Allocation.HTTPClientConfig, retry.PolicyExternalAPI), c.ZapLog)
	c.Allocation = allocation.NewClient(c.AllocationHTTP)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.Differ = allocationsvc.NewDiffer(allocationsvc.Config{
		MinTradeValue: decimal.NewFromFloat(cfg.Execution.MinTradeValue),
	}, c.Logger)

	c.Ledger = ledger.NewService(ledger.Config{
		DustQuantity:            decimal.NewFromFloat(cfg.Ledger.DustQuantity),
		NearZeroInvestmentRatio: decimal.NewFromFloat(cfg.Ledger.NearZeroInvestmentRatio),
	}, c.Logger)

	execCfg := execution.DefaultConfig()
	execCfg.SlippagePercent = decimal.NewFromFloat(cfg.Execution.SlippagePercent)
	execCfg.DivergenceThreshold = decimal.NewFromFloat(cfg.Execution.DivergenceThreshold)
	execCfg.DustBaseAmount = decimal.NewFromFloat(cfg.Execution.DustBaseAmount)
	execCfg.SubmitPolicy = execCfg.SubmitPolicy.WithMaxRetries(cfg.Execution.SubmitRetries)
	if cfg.Execution.PollAttempts > 0 {
		execCfg.PollPolicy = execCfg.PollPolicy.
			WithMaxRetries(cfg.Execution.PollAttempts - 1).
			WithFixedInterval(time.Duration(cfg.Execution.PollIntervalSeconds) * time.Second)
	}
	c.Executor = execution.NewExecutor(c.SwapClient, c.SwapClient, execCfg, c.Logger)

	c.Reconciler = reconciliation.NewService(
		c.FundRepo,
		c.PositionRepo,
		c.TradeRepo,
		c.Allocation,
		c.PriceOracle,
		c.Executor,
		c.Differ,
		c.Ledger,
		c.Logger,
	)
}

func (c *Container) initHealth() {
	c.Health = health.NewHealthChecker(10 * time.Second)
	c.Health.Register(health.NewDatabaseChecker(c.DB.DB, 5*time.Second))
	if c.Redis != nil {
		c.Health.Register(health.NewRedisChecker(c.Redis, 3*time.Second))
	}
	for _, hc := range []*httpclient.Client{c.GatewayHTTP, c.OracleHTTP, c.AllocationHTTP} {
		c.Health.Register(health.NewCircuitBreakerChecker(hc.Service(), hc.Breaker()))
	}
	if c.Config.Scheduler.Enabled {
		c.Health.Register(health.NewWorkerChecker("rebalance_scheduler",
			func() bool { return c.Scheduler.GetStatus().Running },
			func() map[string]interface{} {
				status := c.Scheduler.GetStatus()
				return map[string]interface{}{
					"schedule":          status.Schedule,
					"batch_in_progress": status.BatchInProgress,
					"last_run":          status.LastRun,
					"next_run":          status.NextRun,
				}
			}))
	}
}

// initRateLimit shares the admin quota across replicas when redis is available
func (c *Container) initRateLimit() {
	perMin := c.Config.Server.RateLimitPerMin
	if c.Redis == nil || perMin <= 0 {
		c.AdminRateLimit = middleware.RateLimit(perMin)
		return
	}
	limiter := ratelimit.PerIPLimiter(c.Redis, c.Config.Redis.KeyPrefix, int64(perMin), time.Minute, c.ZapLog)
	c.AdminRateLimit = ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, c.ZapLog)
}

// Close releases connections held by the container
func (c *Container) Close() error {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warnw("Failed to close redis client", "error", err)
		}
	}
	return c.DB.Close()
}

func httpConfig(c config.HTTPClientConfig, policy retry.Policy) httpclient.Config {
	return httpclient.Config{
		BaseURL:         c.BaseURL,
		APIKey:          c.APIKey,
		Timeout:         c.Timeout(),
		RateLimitPerSec: c.RateLimitPerSec,
		RateLimitBurst:  c.RateLimitBurst,
		Breaker:         circuitbreaker.DefaultConfig(),
		Retry:           policy,
	}
}

func schedulerConfig(c config.SchedulerConfig) *rebalance_scheduler.Config {
	sc := rebalance_scheduler.DefaultConfig()
	if c.Schedule != "" {
		sc.Schedule = c.Schedule
	}
	if c.MaxConcurrentFunds > 0 {
		sc.MaxConcurrentFunds = c.MaxConcurrentFunds
	}
	if c.FundTimeoutSeconds > 0 {
		sc.FundTimeout = time.Duration(c.FundTimeoutSeconds) * time.Second
	}
	if c.LockTTLSeconds > 0 {
		sc.LockTTL = time.Duration(c.LockTTLSeconds) * time.Second
	}
	if c.SimulatedWindowHours > 0 {
		sc.SimulatedWindow = time.Duration(c.SimulatedWindowHours) * time.Hour
	}
	if c.Timezone != "" {
		sc.Timezone = c.Timezone
	}
	return sc
}
