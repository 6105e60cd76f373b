package rebalance_scheduler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/infrastructure/cache"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

// MockFundReconciler is a mock implementation of FundReconciler
type MockFundReconciler struct {
	mock.Mock
}

func (m *MockFundReconciler) ReconcileFund(ctx context.Context, fundID uuid.UUID) (*entities.ReconcileResult, error) {
	args := m.Called(ctx, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReconcileResult), args.Error(1)
}

type staticFunds struct {
	funds []*entities.Fund
	err   error
}

func (s *staticFunds) ListActive(context.Context) ([]*entities.Fund, error) {
	return s.funds, s.err
}

func realFund() *entities.Fund {
	return &entities.Fund{
		ID:        uuid.New(),
		Mode:      entities.FundModeReal,
		Status:    entities.FundStatusActive,
		CreatedAt: time.Now().Add(-365 * 24 * time.Hour),
	}
}

func newTestScheduler(t *testing.T, reconciler FundReconciler, funds FundLister, lock FundLock) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StopTimeout = time.Second
	s, err := NewScheduler(reconciler, funds, lock, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func okResult(fundID uuid.UUID, trades int) *entities.ReconcileResult {
	return &entities.ReconcileResult{FundID: fundID, TradesExecuted: trades}
}

func TestReconcileAllEligibleFunds_ReturnsEntryPerFund(t *testing.T) {
	f1, f2, f3 := realFund(), realFund(), realFund()
	reconciler := new(MockFundReconciler)
	for _, f := range []*entities.Fund{f1, f2, f3} {
		reconciler.On("ReconcileFund", mock.Anything, f.ID).Return(okResult(f.ID, 1), nil).Once()
	}

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{f1, f2, f3}}, cache.NewMemoryFundLock())

	results, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, f := range []*entities.Fund{f1, f2, f3} {
		r := results[f.ID]
		require.NotNil(t, r.Result)
		assert.Equal(t, 1, r.Result.TradesExecuted)
		assert.False(t, r.Skipped)
		assert.Empty(t, r.Error)
	}

	status := s.GetStatus()
	assert.Equal(t, int64(3), status.Statistics.FundsReconciled)
	assert.Equal(t, int64(3), status.Statistics.TradesExecuted)
	reconciler.AssertExpectations(t)
}

func TestReconcileAllEligibleFunds_FundErrorsStayIsolated(t *testing.T) {
	bad, good := realFund(), realFund()
	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, bad.ID).Return(nil, entities.ErrFundNotFound)
	reconciler.On("ReconcileFund", mock.Anything, good.ID).Return(okResult(good.ID, 2), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{bad, good}}, cache.NewMemoryFundLock())

	results, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, results[bad.ID].Error)
	assert.Nil(t, results[bad.ID].Result)
	require.NotNil(t, results[good.ID].Result)
	assert.Equal(t, 2, results[good.ID].Result.TradesExecuted)

	status := s.GetStatus()
	require.Len(t, status.Statistics.Errors, 1)
	assert.Equal(t, bad.ID.String(), status.Statistics.Errors[0].FundID)
}

func TestReconcileAllEligibleFunds_SkipsLockedFund(t *testing.T) {
	busy, free := realFund(), realFund()
	lock := cache.NewMemoryFundLock()
	_, ok, err := lock.Acquire(context.Background(), busy.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, free.ID).Return(okResult(free.ID, 0), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{busy, free}}, lock)

	results, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)
	assert.True(t, results[busy.ID].Skipped)
	assert.Nil(t, results[busy.ID].Result)
	assert.NotNil(t, results[free.ID].Result)

	reconciler.AssertNotCalled(t, "ReconcileFund", mock.Anything, busy.ID)
	assert.Equal(t, int64(1), s.GetStatus().Statistics.FundsSkipped)
}

func TestReconcileAllEligibleFunds_ReleasesLockAfterRun(t *testing.T) {
	f := realFund()
	lock := cache.NewMemoryFundLock()
	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, f.ID).Return(okResult(f.ID, 0), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{f}}, lock)

	_, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)

	_, ok, err := lock.Acquire(context.Background(), f.ID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconcileAllEligibleFunds_BoundsConcurrency(t *testing.T) {
	var funds []*entities.Fund
	for i := 0; i < 7; i++ {
		funds = append(funds, realFund())
	}

	var active, peak int32
	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}).
		Return(okResult(uuid.Nil, 0), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: funds}, cache.NewMemoryFundLock())

	results, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 7)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestReconcileAllEligibleFunds_ListFailure(t *testing.T) {
	reconciler := new(MockFundReconciler)
	s := newTestScheduler(t, reconciler, &staticFunds{err: errors.New("connection refused")}, cache.NewMemoryFundLock())

	_, err := s.ReconcileAllEligibleFunds(context.Background())
	require.Error(t, err)
	reconciler.AssertNotCalled(t, "ReconcileFund", mock.Anything, mock.Anything)
}

func TestReconcileAllEligibleFunds_FiltersIneligible(t *testing.T) {
	live := realFund()
	freshSim := &entities.Fund{ID: uuid.New(), Mode: entities.FundModeSimulated, Status: entities.FundStatusActive, CreatedAt: time.Now().Add(-time.Hour)}
	oldSim := &entities.Fund{ID: uuid.New(), Mode: entities.FundModeSimulated, Status: entities.FundStatusActive, CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	paused := &entities.Fund{ID: uuid.New(), Mode: entities.FundModeReal, Status: entities.FundStatusPaused}

	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, live.ID).Return(okResult(live.ID, 0), nil)
	reconciler.On("ReconcileFund", mock.Anything, freshSim.ID).Return(okResult(freshSim.ID, 0), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{live, freshSim, oldSim, paused}}, cache.NewMemoryFundLock())

	results, err := s.ReconcileAllEligibleFunds(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, results, live.ID)
	assert.Contains(t, results, freshSim.ID)
	reconciler.AssertExpectations(t)
}

func TestEligibilityPolicy(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := EligibilityPolicy{SimulatedWindow: 7 * 24 * time.Hour}

	tests := []struct {
		name string
		fund *entities.Fund
		want bool
	}{
		{"nil fund", nil, false},
		{"active real fund", &entities.Fund{Mode: entities.FundModeReal, Status: entities.FundStatusActive, CreatedAt: now.AddDate(-2, 0, 0)}, true},
		{"closed real fund", &entities.Fund{Mode: entities.FundModeReal, Status: entities.FundStatusClosed}, false},
		{"simulated inside window", &entities.Fund{Mode: entities.FundModeSimulated, Status: entities.FundStatusActive, CreatedAt: now.AddDate(0, 0, -6)}, true},
		{"simulated past window", &entities.Fund{Mode: entities.FundModeSimulated, Status: entities.FundStatusActive, CreatedAt: now.AddDate(0, 0, -8)}, false},
		{"unknown mode", &entities.Fund{Mode: "paper", Status: entities.FundStatusActive}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Eligible(tt.fund, now))
		})
	}

	unbounded := EligibilityPolicy{}
	old := &entities.Fund{Mode: entities.FundModeSimulated, Status: entities.FundStatusActive, CreatedAt: now.AddDate(-1, 0, 0)}
	assert.True(t, unbounded.Eligible(old, now))
}

func TestTriggerManualRun_UpdatesStatus(t *testing.T) {
	f := realFund()
	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, f.ID).Return(okResult(f.ID, 1), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{f}}, cache.NewMemoryFundLock())

	require.NoError(t, s.TriggerManualRun())

	assert.Eventually(t, func() bool {
		st := s.GetStatus()
		return st.Statistics.SuccessfulRuns == 1 && !st.BatchInProgress
	}, 2*time.Second, 10*time.Millisecond)

	st := s.GetStatus()
	assert.Equal(t, int64(1), st.Statistics.TotalRuns)
	assert.False(t, st.LastRun.IsZero())
}

func TestTriggerManualRun_RejectsOverlap(t *testing.T) {
	f := realFund()
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})

	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, f.ID).
		Run(func(mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
		}).
		Return(okResult(f.ID, 0), nil)

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{f}}, cache.NewMemoryFundLock())

	require.NoError(t, s.TriggerManualRun())
	<-started

	assert.Error(t, s.TriggerManualRun())
	close(release)

	assert.Eventually(t, func() bool { return !s.GetStatus().BatchInProgress }, 2*time.Second, 10*time.Millisecond)
}

func TestTriggerManualRun_RefusedAfterStop(t *testing.T) {
	reconciler := new(MockFundReconciler)
	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{realFund()}}, cache.NewMemoryFundLock())

	require.NoError(t, s.Stop())

	err := s.TriggerManualRun()
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.GetStatusCode(err))
	reconciler.AssertNotCalled(t, "ReconcileFund", mock.Anything, mock.Anything)
}

func TestStop_WaitsForManualBatch(t *testing.T) {
	f := realFund()
	release := make(chan struct{})
	started := make(chan struct{})

	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, f.ID).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(okResult(f.ID, 1), nil).Once()

	s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{f}}, cache.NewMemoryFundLock())
	s.config.StopTimeout = 5 * time.Second

	require.NoError(t, s.TriggerManualRun())
	<-started

	stopped := make(chan struct{})
	go func() {
		_ = s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a manual batch was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the batch finished")
	}
	assert.Equal(t, int64(1), s.GetStatus().Statistics.FundsReconciled)
}

func TestTriggerManualRun_ConcurrentWithStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		reconciler := new(MockFundReconciler)
		reconciler.On("ReconcileFund", mock.Anything, mock.Anything).Return(okResult(uuid.Nil, 0), nil).Maybe()
		s := newTestScheduler(t, reconciler, &staticFunds{funds: []*entities.Fund{realFund()}}, cache.NewMemoryFundLock())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.TriggerManualRun()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Stop())
		}()
		wg.Wait()

		assert.Error(t, s.TriggerManualRun())
	}
}

func TestReconcileFund_FundTimeoutIsRetryable(t *testing.T) {
	f := realFund()
	reconciler := new(MockFundReconciler)
	reconciler.On("ReconcileFund", mock.Anything, f.ID).
		Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})

	s := newTestScheduler(t, reconciler, &staticFunds{}, cache.NewMemoryFundLock())
	s.config.FundTimeout = 10 * time.Millisecond

	run := s.ReconcileFund(context.Background(), f.ID)
	assert.Contains(t, run.Error, "timed out")

	errs := s.GetStatus().Statistics.Errors
	require.Len(t, errs, 1)
	assert.Equal(t, f.ID.String(), errs[0].FundID)
	assert.True(t, errs[0].Retryable)
}

func TestReconcileFund_InterruptedCycleCountsAsReconciled(t *testing.T) {
	f := realFund()
	reconciler := new(MockFundReconciler)
	interrupted := okResult(f.ID, 1)
	interrupted.Interrupted = true
	reconciler.On("ReconcileFund", mock.Anything, f.ID).Return(interrupted, nil)

	s := newTestScheduler(t, reconciler, &staticFunds{}, cache.NewMemoryFundLock())

	run := s.ReconcileFund(context.Background(), f.ID)
	require.NotNil(t, run.Result)
	assert.True(t, run.Result.Interrupted)
	assert.Empty(t, run.Error)

	st := s.GetStatus().Statistics
	assert.Equal(t, int64(1), st.FundsReconciled)
	assert.Equal(t, int64(1), st.TradesExecuted)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t, new(MockFundReconciler), &staticFunds{}, cache.NewMemoryFundLock())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	st := s.GetStatus()
	assert.True(t, st.Running)
	assert.Equal(t, "0 * * * *", st.Schedule)
	assert.True(t, st.NextRun.After(time.Now()))
	assert.False(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
	assert.False(t, s.GetStatus().Running)
}

func TestNewScheduler_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err := NewScheduler(new(MockFundReconciler), &staticFunds{}, cache.NewMemoryFundLock(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxConcurrentFunds = 0
	_, err = NewScheduler(new(MockFundReconciler), &staticFunds{}, cache.NewMemoryFundLock(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
