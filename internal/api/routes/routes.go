package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fund-service/fund_service/docs"
	"github.com/fund-service/fund_service/internal/api/handlers"
	"github.com/fund-service/fund_service/internal/api/middleware"
	"github.com/fund-service/fund_service/internal/infrastructure/config"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/tracing"
)

// SetupRoutes builds the gin engine with the operator API mounted. A nil
// adminRateLimit falls back to the in-process per-IP limiter.
func SetupRoutes(cfg *config.Config, fundHandlers *handlers.FundHandlers, healthHandler *handlers.HealthHandler, adminRateLimit gin.HandlerFunc, log *logger.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", healthHandler.Health)
	router.GET("/live", healthHandler.Live)
	router.GET("/version", healthHandler.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API documentation, not served in production
	if cfg.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if adminRateLimit == nil {
		adminRateLimit = middleware.RateLimit(cfg.Server.RateLimitPerMin)
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(adminRateLimit)
	admin.Use(middleware.AdminToken(cfg.Server.AdminToken))
	{
		admin.POST("/reconcile", fundHandlers.ReconcileAll)
		admin.POST("/positions/repair", fundHandlers.RepairPositions)
		admin.GET("/scheduler/status", fundHandlers.SchedulerStatus)

		funds := admin.Group("/funds/:id")
		funds.GET("", fundHandlers.GetFund)
		funds.POST("/reconcile", fundHandlers.ReconcileFund)
		funds.GET("/positions", fundHandlers.GetPositions)
		funds.GET("/history", fundHandlers.GetHistory)
		funds.GET("/trades", fundHandlers.GetTrades)
	}

	return router
}
