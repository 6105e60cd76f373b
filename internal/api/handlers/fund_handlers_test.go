package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/workers/rebalance_scheduler"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/logger"
)

type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) ReconcileFund(ctx context.Context, fundID uuid.UUID) entities.FundRunResult {
	return m.Called(ctx, fundID).Get(0).(entities.FundRunResult)
}

func (m *MockBatchRunner) TriggerManualRun() error {
	return m.Called().Error(0)
}

func (m *MockBatchRunner) GetStatus() *rebalance_scheduler.SchedulerStatus {
	return m.Called().Get(0).(*rebalance_scheduler.SchedulerStatus)
}

type MockRepairer struct {
	mock.Mock
}

func (m *MockRepairer) RepairCorruptedPositions(ctx context.Context, fundID *uuid.UUID) (entities.RepairResult, error) {
	args := m.Called(ctx, fundID)
	return args.Get(0).(entities.RepairResult), args.Error(1)
}

type memoryStore struct {
	funds     map[uuid.UUID]*entities.Fund
	history   []*entities.PnLHistoryEntry
	positions []*entities.Position
	trades    []*entities.TradeRecord

	lastLimit  int
	lastOffset int
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*entities.Fund, error) {
	f, ok := s.funds[id]
	if !ok {
		return nil, entities.ErrFundNotFound
	}
	return f, nil
}

func (s *memoryStore) ListHistory(_ context.Context, _ uuid.UUID, limit int) ([]*entities.PnLHistoryEntry, error) {
	s.lastLimit = limit
	return s.history, nil
}

func (s *memoryStore) ListAll(_ context.Context, _ uuid.UUID) ([]*entities.Position, error) {
	return s.positions, nil
}

func (s *memoryStore) ListByFund(_ context.Context, _ uuid.UUID, limit, offset int) ([]*entities.TradeRecord, error) {
	s.lastLimit, s.lastOffset = limit, offset
	if offset >= len(s.trades) {
		return nil, nil
	}
	end := min(offset+limit, len(s.trades))
	return s.trades[offset:end], nil
}

type fixture struct {
	runner   *MockBatchRunner
	repairer *MockRepairer
	store    *memoryStore
	router   *gin.Engine
	fund     *entities.Fund
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fund := &entities.Fund{
		ID:                  uuid.New(),
		Name:                "alpha",
		Mode:                entities.FundModeReal,
		Status:              entities.FundStatusActive,
		BaseCurrencyBalance: decimal.NewFromInt(10),
	}
	f := &fixture{
		runner:   new(MockBatchRunner),
		repairer: new(MockRepairer),
		store:    &memoryStore{funds: map[uuid.UUID]*entities.Fund{fund.ID: fund}},
		fund:     fund,
	}

	h := NewFundHandlers(f.runner, f.repairer, f.store, f.store, f.store, logger.NewNop())
	r := gin.New()
	r.POST("/reconcile", h.ReconcileAll)
	r.POST("/positions/repair", h.RepairPositions)
	r.GET("/scheduler/status", h.SchedulerStatus)
	r.GET("/funds/:id", h.GetFund)
	r.POST("/funds/:id/reconcile", h.ReconcileFund)
	r.GET("/funds/:id/positions", h.GetPositions)
	r.GET("/funds/:id/history", h.GetHistory)
	r.GET("/funds/:id/trades", h.GetTrades)
	f.router = r

	t.Cleanup(func() {
		f.runner.AssertExpectations(t)
		f.repairer.AssertExpectations(t)
	})
	return f
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestReconcileFund(t *testing.T) {
	f := newFixture(t)
	result := &entities.ReconcileResult{FundID: f.fund.ID, TradesExecuted: 2}
	f.runner.On("ReconcileFund", mock.Anything, f.fund.ID).Return(entities.FundRunResult{Result: result})

	w := f.do(http.MethodPost, "/funds/"+f.fund.ID.String()+"/reconcile")

	require.Equal(t, http.StatusOK, w.Code)
	var got entities.ReconcileResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TradesExecuted)
}

func TestReconcileFund_Locked(t *testing.T) {
	f := newFixture(t)
	f.runner.On("ReconcileFund", mock.Anything, f.fund.ID).Return(entities.FundRunResult{Skipped: true})

	w := f.do(http.MethodPost, "/funds/"+f.fund.ID.String()+"/reconcile")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeFundLocked)
}

func TestReconcileFund_Failed(t *testing.T) {
	f := newFixture(t)
	f.runner.On("ReconcileFund", mock.Anything, f.fund.ID).Return(entities.FundRunResult{Error: "allocation source down"})

	w := f.do(http.MethodPost, "/funds/"+f.fund.ID.String()+"/reconcile")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReconcileFund_UnknownFund(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/funds/"+uuid.NewString()+"/reconcile")

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.runner.AssertNotCalled(t, "ReconcileFund", mock.Anything, mock.Anything)
}

func TestReconcileFund_BadID(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/funds/not-a-uuid/reconcile").Code)
}

func TestReconcileAll(t *testing.T) {
	f := newFixture(t)
	f.runner.On("TriggerManualRun").Return(nil).Once()
	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/reconcile").Code)

	f.runner.On("TriggerManualRun").
		Return(apperrors.NewConflictError("a reconciliation batch is already running")).
		Once()
	w := f.do(http.MethodPost, "/reconcile")
	assert.Equal(t, http.StatusConflict, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeConflict, body.Code)
	assert.Equal(t, "a reconciliation batch is already running", body.Message)
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/funds/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeValidationFailed, body.Code)
	assert.Equal(t, "invalid fund id", body.Message)

	w = f.do(http.MethodGet, "/funds/"+uuid.NewString())
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeFundNotFound, body.Code)

	f.repairer.On("RepairCorruptedPositions", mock.Anything, (*uuid.UUID)(nil)).
		Return(entities.RepairResult{}, errors.New("pq: password authentication failed for user fund"))
	w = f.do(http.MethodPost, "/positions/repair")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInternalError, body.Code)
	assert.Equal(t, "internal error", body.Message)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRepairPositions(t *testing.T) {
	f := newFixture(t)
	f.repairer.On("RepairCorruptedPositions", mock.Anything, (*uuid.UUID)(nil)).
		Return(entities.RepairResult{FixedCount: 3}, nil)
	f.repairer.On("RepairCorruptedPositions", mock.Anything, &f.fund.ID).
		Return(entities.RepairResult{FixedCount: 1}, nil)

	w := f.do(http.MethodPost, "/positions/repair")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fixed_count":3`)

	w = f.do(http.MethodPost, "/positions/repair?fund_id="+f.fund.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fixed_count":1`)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/positions/repair?fund_id=nope").Code)
}

func TestSchedulerStatus(t *testing.T) {
	f := newFixture(t)
	f.runner.On("GetStatus").Return(&rebalance_scheduler.SchedulerStatus{Running: true, Schedule: "0 * * * *"})

	w := f.do(http.MethodGet, "/scheduler/status")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":true`)
}

func TestGetFundAndHistory(t *testing.T) {
	f := newFixture(t)
	f.store.history = []*entities.PnLHistoryEntry{{FundID: f.fund.ID, Value: decimal.NewFromInt(11)}}

	w := f.do(http.MethodGet, "/funds/"+f.fund.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"alpha"`)

	w = f.do(http.MethodGet, "/funds/"+f.fund.ID.String()+"/history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, f.store.lastLimit)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/funds/"+f.fund.ID.String()+"/history?limit=-1").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/funds/"+uuid.NewString()).Code)
}

func TestGetTrades_Paginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.store.trades = append(f.store.trades, &entities.TradeRecord{ID: uuid.New(), FundID: f.fund.ID})
	}

	w := f.do(http.MethodGet, "/funds/"+f.fund.ID.String()+"/trades?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items   []json.RawMessage `json:"items"`
		HasMore bool              `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, 3, f.store.lastLimit)

	w = f.do(http.MethodGet, "/funds/"+f.fund.ID.String()+"/trades?limit=2&offset=2")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
}
