package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/workers/rebalance_scheduler"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/pagination"
)

const defaultHistoryLimit = 100

// BatchRunner runs reconciliations under the scheduler's locking rules
type BatchRunner interface {
	ReconcileFund(ctx context.Context, fundID uuid.UUID) entities.FundRunResult
	TriggerManualRun() error
	GetStatus() *rebalance_scheduler.SchedulerStatus
}

// PositionRepairer fixes corrupted position rows
type PositionRepairer interface {
	RepairCorruptedPositions(ctx context.Context, fundID *uuid.UUID) (entities.RepairResult, error)
}

// FundReader is the read side of fund storage used by the API
type FundReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Fund, error)
	ListHistory(ctx context.Context, fundID uuid.UUID, limit int) ([]*entities.PnLHistoryEntry, error)
}

type PositionReader interface {
	ListAll(ctx context.Context, fundID uuid.UUID) ([]*entities.Position, error)
}

type TradeReader interface {
	ListByFund(ctx context.Context, fundID uuid.UUID, limit, offset int) ([]*entities.TradeRecord, error)
}

// FundHandlers exposes reconciliation controls and fund read models to operators
type FundHandlers struct {
	runner    BatchRunner
	repairer  PositionRepairer
	funds     FundReader
	positions PositionReader
	trades    TradeReader
	logger    *logger.Logger
}

func NewFundHandlers(
	runner BatchRunner,
	repairer PositionRepairer,
	funds FundReader,
	positions PositionReader,
	trades TradeReader,
	logger *logger.Logger,
) *FundHandlers {
	return &FundHandlers{
		runner:    runner,
		repairer:  repairer,
		funds:     funds,
		positions: positions,
		trades:    trades,
		logger:    logger,
	}
}

// ReconcileFund runs one fund's cycle synchronously.
// POST /api/v1/admin/funds/:id/reconcile
// @Summary Reconcile one fund
// @Description Runs a reconciliation cycle for the fund under its lock and returns the cycle summary
// @Tags reconciliation
// @Produce json
// @Param id path string true "Fund ID" format(uuid)
// @Success 200 {object} entities.ReconcileResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Fund is already being reconciled"
// @Failure 500 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/funds/{id}/reconcile [post]
func (h *FundHandlers) ReconcileFund(c *gin.Context) {
	fundID, ok := parseFundID(c)
	if !ok {
		return
	}

	if _, err := h.funds.GetByID(c.Request.Context(), fundID); err != nil {
		respondAppError(c, err)
		return
	}

	// a dropped client must not abort a cycle between a swap and its ledger write
	ctx := context.WithoutCancel(c.Request.Context())
	run := h.runner.ReconcileFund(ctx, fundID)

	switch {
	case run.Skipped:
		respondAppError(c, apperrors.ErrFundLocked)
	case run.Error != "":
		requestLogger(c, h.logger).Errorw("Manual fund reconciliation failed",
			"fund_id", fundID.String(),
			"error", run.Error)
		respondError(c, http.StatusInternalServerError, apperrors.CodeOperationFailed, run.Error, nil)
	default:
		c.JSON(http.StatusOK, run.Result)
	}
}

// ReconcileAll starts a batch over every eligible fund in the background.
// POST /api/v1/admin/reconcile
// @Summary Reconcile all eligible funds
// @Description Starts a background batch over every eligible fund
// @Tags reconciliation
// @Produce json
// @Success 202 {object} map[string]string
// @Failure 409 {object} ErrorResponse "A batch is already running"
// @Security AdminToken
// @Router /api/v1/admin/reconcile [post]
func (h *FundHandlers) ReconcileAll(c *gin.Context) {
	if err := h.runner.TriggerManualRun(); err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// RepairPositions runs the corruption repair for one fund, or all funds
// when fund_id is absent.
// POST /api/v1/admin/positions/repair?fund_id=
// @Summary Repair corrupted positions
// @Tags positions
// @Produce json
// @Param fund_id query string false "Limit the repair to one fund" format(uuid)
// @Success 200 {object} entities.RepairResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/positions/repair [post]
func (h *FundHandlers) RepairPositions(c *gin.Context) {
	var fundID *uuid.UUID
	if raw := c.Query("fund_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "invalid fund_id")
			return
		}
		fundID = &id
	}

	result, err := h.repairer.RepairCorruptedPositions(c.Request.Context(), fundID)
	if err != nil {
		requestLogger(c, h.logger).Errorw("Position repair failed", "error", err)
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SchedulerStatus reports the batch scheduler's state and statistics.
// GET /api/v1/admin/scheduler/status
// @Summary Scheduler status
// @Tags reconciliation
// @Produce json
// @Success 200 {object} rebalance_scheduler.SchedulerStatus
// @Security AdminToken
// @Router /api/v1/admin/scheduler/status [get]
func (h *FundHandlers) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.GetStatus())
}

// GetFund returns the stored fund aggregate.
// GET /api/v1/admin/funds/:id
// @Summary Get fund
// @Tags funds
// @Produce json
// @Param id path string true "Fund ID" format(uuid)
// @Success 200 {object} entities.Fund
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/funds/{id} [get]
func (h *FundHandlers) GetFund(c *gin.Context) {
	fundID, ok := parseFundID(c)
	if !ok {
		return
	}

	fund, err := h.funds.GetByID(c.Request.Context(), fundID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, fund)
}

// GetPositions returns every position row of a fund, closed ones included.
// GET /api/v1/admin/funds/:id/positions
// @Summary List fund positions
// @Tags funds
// @Produce json
// @Param id path string true "Fund ID" format(uuid)
// @Success 200 {object} map[string][]entities.Position
// @Failure 400 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/funds/{id}/positions [get]
func (h *FundHandlers) GetPositions(c *gin.Context) {
	fundID, ok := parseFundID(c)
	if !ok {
		return
	}

	positions, err := h.positions.ListAll(c.Request.Context(), fundID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// GetHistory returns the newest net asset value samples.
// GET /api/v1/admin/funds/:id/history?limit=
// @Summary Net asset value history
// @Tags funds
// @Produce json
// @Param id path string true "Fund ID" format(uuid)
// @Param limit query int false "Number of samples" default(100)
// @Success 200 {object} map[string][]entities.PnLHistoryEntry
// @Failure 400 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/funds/{id}/history [get]
func (h *FundHandlers) GetHistory(c *gin.Context) {
	fundID, ok := parseFundID(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = min(n, pagination.MaxLimit)
	}

	history, err := h.funds.ListHistory(c.Request.Context(), fundID, limit)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetTrades pages through a fund's settled trades, newest first.
// GET /api/v1/admin/funds/:id/trades?limit=&offset=
// @Summary List settled trades
// @Tags funds
// @Produce json
// @Param id path string true "Fund ID" format(uuid)
// @Param limit query int false "Number of items per page" default(50)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} pagination.Page{items=[]entities.TradeRecord}
// @Failure 400 {object} ErrorResponse
// @Security AdminToken
// @Router /api/v1/admin/funds/{id}/trades [get]
func (h *FundHandlers) GetTrades(c *gin.Context) {
	fundID, ok := parseFundID(c)
	if !ok {
		return
	}

	params, err := pagination.Parse(c.Query("limit"), c.Query("offset"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trades, err := h.trades.ListByFund(c.Request.Context(), fundID, params.FetchLimit(), params.Offset)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondAppError(c, err)
		return
	}

	n, more := params.NewPage(len(trades))
	c.JSON(http.StatusOK, pagination.Page{
		Items:   trades[:n],
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: more,
	})
}
