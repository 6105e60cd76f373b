package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fund-service/fund_service/internal/api/routes"
	"github.com/fund-service/fund_service/internal/infrastructure/config"
	"github.com/fund-service/fund_service/internal/infrastructure/database"
	"github.com/fund-service/fund_service/internal/infrastructure/di"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/tracing"
	"github.com/fund-service/fund_service/pkg/version"
)

// @title Fund Service API
// @version 1.0
// @description Operator API of the fund rebalancing and reconciliation engine

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin token.

// @tag.name reconciliation
// @tag.description Reconciliation runs and scheduler state

// @tag.name funds
// @tag.description Fund read models

// @tag.name positions
// @tag.description Position maintenance

// @tag.name health
// @tag.description Health check and build information

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	log.Infow("Starting fund service", "version", version.Get().String())

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Version:     version.Version,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
	}

	container, err := di.NewContainer(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	if cfg.Scheduler.Enabled {
		if err := container.Scheduler.Start(); err != nil {
			log.Fatal("Failed to start rebalance scheduler", "error", err)
		}
		log.Infow("Rebalance scheduler started", "schedule", cfg.Scheduler.Schedule)
	} else {
		log.Infow("Rebalance scheduler disabled, reconciliation runs only on request")
	}

	router := routes.SetupRoutes(cfg, container.FundHandlers, container.HealthHandler, container.AdminRateLimit, log)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	// in-flight funds finish their current asset before the process exits;
	// manual batches run even when the cron loop is disabled
	if err := container.Scheduler.Stop(); err != nil {
		log.Warnw("Error stopping rebalance scheduler", "error", err)
	}

	if err := container.Close(); err != nil {
		log.Warnw("Error closing connections", "error", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warnw("Error flushing traces", "error", err)
	}

	log.Infow("Server exited")
}
