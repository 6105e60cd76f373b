package rebalance_scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fund-service/fund_service/internal/domain/entities"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/metrics"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
	TriggerAPI    = "api"
)

// FundReconciler runs one reconciliation cycle for a fund
type FundReconciler interface {
	ReconcileFund(ctx context.Context, fundID uuid.UUID) (*entities.ReconcileResult, error)
}

// FundLister lists candidate funds for a batch
type FundLister interface {
	ListActive(ctx context.Context) ([]*entities.Fund, error)
}

// FundLock is a per-fund mutual exclusion lock. Acquire returns acquired=false
// without error when another holder owns the fund.
type FundLock interface {
	Acquire(ctx context.Context, fundID uuid.UUID, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, fundID uuid.UUID, token string) error
}

// Config holds scheduler settings
type Config struct {
	// Cron expression, hourly by default
	Schedule           string        `mapstructure:"schedule"`
	MaxConcurrentFunds int           `mapstructure:"max_concurrent_funds"`
	FundTimeout        time.Duration `mapstructure:"fund_timeout"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	SimulatedWindow    time.Duration `mapstructure:"simulated_window"`
	Timezone           string        `mapstructure:"timezone"`
	StopTimeout        time.Duration `mapstructure:"stop_timeout"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule:           "0 * * * *",
		MaxConcurrentFunds: 3,
		FundTimeout:        15 * time.Minute,
		LockTTL:            20 * time.Minute,
		SimulatedWindow:    30 * 24 * time.Hour,
		Timezone:           "UTC",
		StopTimeout:        30 * time.Second,
	}
}

const maxRecentErrors = 100

// JobStatistics tracks batch outcomes
type JobStatistics struct {
	TotalRuns       int64         `json:"total_runs"`
	SuccessfulRuns  int64         `json:"successful_runs"`
	FailedRuns      int64         `json:"failed_runs"`
	LastRunTime     time.Time     `json:"last_run_time"`
	LastRunDuration time.Duration `json:"last_run_duration"`
	FundsReconciled int64         `json:"funds_reconciled"`
	FundsSkipped    int64         `json:"funds_skipped"`
	TradesExecuted  int64         `json:"trades_executed"`
	Errors          []JobError    `json:"recent_errors"`
}

// JobError is a fund-level failure seen by a batch
type JobError struct {
	Timestamp time.Time `json:"timestamp"`
	FundID    string    `json:"fund_id,omitempty"`
	Error     string    `json:"error"`
	Retryable bool      `json:"retryable"`
}

// SchedulerStatus represents the current status of the scheduler
type SchedulerStatus struct {
	Running         bool          `json:"running"`
	BatchInProgress bool          `json:"batch_in_progress"`
	LastRun         time.Time     `json:"last_run"`
	NextRun         time.Time     `json:"next_run"`
	Schedule        string        `json:"schedule"`
	Timezone        string        `json:"timezone"`
	Statistics      JobStatistics `json:"statistics"`
}

// zapCronLogger wraps zap.Logger to implement cron's logger interface
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Printf(format string, args ...interface{}) {
	l.logger.Sugar().Debugf(format, args...)
}

// Scheduler runs fund reconciliation batches on a cron cadence
type Scheduler struct {
	cron        *cron.Cron
	reconciler  FundReconciler
	funds       FundLister
	lock        FundLock
	eligibility EligibilityPolicy
	config      *Config
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     *SchedulerMetrics
	now         func() time.Time

	// cancelled by Stop so in-flight batches wind down
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	batchRunning atomic.Bool

	mu       sync.RWMutex
	running  bool
	closed   bool
	lastRun  time.Time
	nextRun  time.Time
	jobStats *JobStatistics
}

// NewScheduler creates a new rebalance scheduler
func NewScheduler(
	reconciler FundReconciler,
	funds FundLister,
	lock FundLock,
	config *Config,
	logger *zap.Logger,
) (*Scheduler, error) {
	if config.MaxConcurrentFunds < 1 {
		return nil, fmt.Errorf("max concurrent funds must be at least 1, got %d", config.MaxConcurrentFunds)
	}

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", config.Timezone, err)
	}

	c := cron.New(
		cron.WithLocation(location),
		cron.WithLogger(cron.VerbosePrintfLogger(&zapCronLogger{logger: logger})),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	m, err := initSchedulerMetrics(otel.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:        c,
		reconciler:  reconciler,
		funds:       funds,
		lock:        lock,
		eligibility: EligibilityPolicy{SimulatedWindow: config.SimulatedWindow},
		config:      config,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		metrics:     m,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		jobStats:    &JobStatistics{Errors: make([]JobError, 0)},
	}

	logger.Info("Rebalance scheduler created",
		zap.String("schedule", config.Schedule),
		zap.String("timezone", config.Timezone),
		zap.Int("max_concurrent_funds", config.MaxConcurrentFunds),
	)

	return s, nil
}

// Start registers the batch job and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.closed {
		return fmt.Errorf("scheduler is stopped")
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.executeBatch(TriggerCron)
	}); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	if entries := s.cron.Entries(); len(entries) > 0 {
		s.nextRun = entries[0].Next
	}

	s.logger.Info("Rebalance scheduler started", zap.Time("next_run", s.nextRun))
	return nil
}

// Stop halts the cron loop and waits for in-flight batches, manual ones
// included. It is valid on a scheduler that was never started.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already stopped")
	}
	s.closed = true
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping rebalance scheduler")
	s.cancel()

	cronCtx := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Rebalance scheduler stopped gracefully")
	case <-time.After(s.config.StopTimeout):
		s.logger.Warn("Rebalance scheduler stop timed out")
	}
	return nil
}

// TriggerManualRun starts a batch in the background. It refuses while a
// batch is in flight or once Stop has begun.
func (s *Scheduler) TriggerManualRun() error {
	if s.batchRunning.Load() {
		return apperrors.NewConflictError("a reconciliation batch is already running")
	}

	// Add must not race Stop's Wait
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.NewConflictError("scheduler is stopped")
	}

	s.logger.Info("Triggering manual reconciliation batch")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeBatch(TriggerManual)
	}()
	return nil
}

func (s *Scheduler) executeBatch(trigger string) {
	if !s.batchRunning.CompareAndSwap(false, true) {
		s.logger.Info("Reconciliation batch already running, skipping", zap.String("trigger", trigger))
		return
	}
	defer s.batchRunning.Store(false)

	startTime := s.now()
	s.mu.Lock()
	s.jobStats.TotalRuns++
	s.jobStats.LastRunTime = startTime
	s.lastRun = startTime
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.nextRun = entries[0].Next
	}
	s.mu.Unlock()

	result, err := s.runBatch(s.ctx, trigger)
	duration := s.now().Sub(startTime)

	status := "success"
	if err != nil {
		status = "failed"
		s.logger.Error("Reconciliation batch failed", zap.String("trigger", trigger), zap.Error(err))
		s.recordJobError("", err)
	}

	s.mu.Lock()
	if err != nil {
		s.jobStats.FailedRuns++
	} else {
		s.jobStats.SuccessfulRuns++
	}
	s.jobStats.LastRunDuration = duration
	s.mu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	s.metrics.BatchesTotal.Add(s.ctx, 1, attrs)
	s.metrics.BatchDuration.Record(s.ctx, duration.Seconds(), attrs)
	s.metrics.LastRunTime.Record(s.ctx, float64(s.now().Unix()))

	if err == nil {
		s.logger.Info("Reconciliation batch completed",
			zap.String("trigger", trigger),
			zap.Int("funds", len(result)),
			zap.Duration("duration", duration),
		)
	}
}

// ReconcileAllEligibleFunds reconciles every eligible fund with bounded
// concurrency and returns one entry per eligible fund. A fund's failure never
// affects another fund; the error return is reserved for listing failures.
func (s *Scheduler) ReconcileAllEligibleFunds(ctx context.Context) (entities.BatchResult, error) {
	return s.runBatch(ctx, TriggerAPI)
}

func (s *Scheduler) runBatch(ctx context.Context, trigger string) (entities.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.reconcile_all_eligible_funds", trace.WithAttributes(
		attribute.String("trigger", trigger),
	))
	defer span.End()

	candidates, err := s.funds.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list funds failed")
		return nil, fmt.Errorf("failed to list active funds: %w", err)
	}

	now := s.now()
	eligible := make([]*entities.Fund, 0, len(candidates))
	for _, f := range candidates {
		if s.eligibility.Eligible(f, now) {
			eligible = append(eligible, f)
			continue
		}
		metrics.ReconciliationFundsSkipped.WithLabelValues("ineligible").Inc()
	}

	s.logger.Info("Reconciling eligible funds",
		zap.String("trigger", trigger),
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(eligible)),
		zap.Int("max_concurrent_funds", s.config.MaxConcurrentFunds),
	)
	span.SetAttributes(attribute.Int("eligible_funds", len(eligible)))

	results := make(entities.BatchResult, len(eligible))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrentFunds)
	for _, f := range eligible {
		fundID := f.ID
		g.Go(func() error {
			r := s.reconcileLocked(ctx, fundID, trigger)
			mu.Lock()
			results[fundID] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// ReconcileFund reconciles a single fund under its lock
func (s *Scheduler) ReconcileFund(ctx context.Context, fundID uuid.UUID) entities.FundRunResult {
	return s.reconcileLocked(ctx, fundID, TriggerAPI)
}

func (s *Scheduler) reconcileLocked(ctx context.Context, fundID uuid.UUID, trigger string) entities.FundRunResult {
	log := s.logger.With(zap.String("fund_id", fundID.String()), zap.String("trigger", trigger))

	if err := ctx.Err(); err != nil {
		return entities.FundRunResult{Error: err.Error()}
	}

	token, acquired, err := s.lock.Acquire(ctx, fundID, s.config.LockTTL)
	if err != nil {
		log.Error("Failed to acquire fund lock", zap.Error(err))
		s.recordJobError(fundID.String(), err)
		return entities.FundRunResult{Error: fmt.Sprintf("acquire fund lock: %v", err)}
	}
	if !acquired {
		log.Info("Fund already being reconciled, skipping")
		metrics.ReconciliationFundsSkipped.WithLabelValues("locked").Inc()
		s.metrics.FundsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
		s.mu.Lock()
		s.jobStats.FundsSkipped++
		s.mu.Unlock()
		return entities.FundRunResult{Skipped: true}
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx, fundID, token); err != nil {
			log.Warn("Failed to release fund lock", zap.Error(err))
		}
	}()

	fundCtx := ctx
	if s.config.FundTimeout > 0 {
		var cancel context.CancelFunc
		fundCtx, cancel = context.WithTimeout(ctx, s.config.FundTimeout)
		defer cancel()
	}

	s.metrics.ActiveFunds.Add(ctx, 1)
	metrics.ReconciliationRunsInProgress.Inc()
	defer func() {
		s.metrics.ActiveFunds.Add(ctx, -1)
		metrics.ReconciliationRunsInProgress.Dec()
	}()

	started := s.now()
	result, err := s.reconciler.ReconcileFund(fundCtx, fundID)
	elapsed := s.now().Sub(started).Seconds()

	if err != nil && errors.Is(fundCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = apperrors.WrapTimeout(err, "reconcile fund "+fundID.String())
	}
	if err != nil {
		metrics.RecordRun(trigger, "failed", elapsed)
		s.metrics.FundErrors.Add(ctx, 1)
		s.metrics.FundsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		s.recordJobError(fundID.String(), err)
		log.Error("Fund reconciliation failed", zap.Error(err))
		return entities.FundRunResult{Error: err.Error()}
	}

	status := "success"
	if len(result.Errors) > 0 || result.Interrupted {
		status = "partial"
	}
	if result.Interrupted {
		log.Warn("Fund reconciliation interrupted after settled trades",
			zap.Int("trades_executed", result.TradesExecuted))
	}
	metrics.RecordRun(trigger, status, elapsed)
	s.metrics.FundsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", status)))

	s.mu.Lock()
	s.jobStats.FundsReconciled++
	s.jobStats.TradesExecuted += int64(result.TradesExecuted)
	s.mu.Unlock()

	return entities.FundRunResult{Result: result}
}

func (s *Scheduler) recordJobError(fundID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobStats.Errors = append(s.jobStats.Errors, JobError{
		Timestamp: s.now(),
		FundID:    fundID,
		Error:     err.Error(),
		Retryable: apperrors.ShouldRetry(err),
	})
	if len(s.jobStats.Errors) > maxRecentErrors {
		s.jobStats.Errors = s.jobStats.Errors[len(s.jobStats.Errors)-maxRecentErrors:]
	}
}

// GetStatus returns the current status of the scheduler
func (s *Scheduler) GetStatus() *SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := *s.jobStats
	stats.Errors = append([]JobError(nil), s.jobStats.Errors...)

	return &SchedulerStatus{
		Running:         s.running,
		BatchInProgress: s.batchRunning.Load(),
		LastRun:         s.lastRun,
		NextRun:         s.nextRun,
		Schedule:        s.config.Schedule,
		Timezone:        s.config.Timezone,
		Statistics:      stats,
	}
}

// GetNextRun returns the next scheduled run time
func (s *Scheduler) GetNextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) > 0 {
		return entries[0].Next
	}
	return time.Time{}
}
