package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/domain/repositories"
	"github.com/fund-service/fund_service/internal/domain/services/allocation"
	"github.com/fund-service/fund_service/internal/domain/services/ledger"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/metrics"
)

// AllocationSource supplies a fund's ranked target allocation
type AllocationSource interface {
	GetRecommendation(ctx context.Context, fundID uuid.UUID) ([]entities.Recommendation, error)
}

// PriceOracle prices an asset in the fund's base currency. It returns
// entities.ErrPriceUnavailable when it has no price.
type PriceOracle interface {
	GetPrice(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// TradeExecutor submits a trade intent and waits for settlement
type TradeExecutor interface {
	Execute(ctx context.Context, fund *entities.Fund, intent *entities.TradeIntent) (*entities.ExecutionResult, error)
}

// Service reconciles funds against their target allocation
type Service struct {
	funds      repositories.FundRepository
	positions  repositories.PositionRepository
	trades     repositories.TradeRepository
	allocation AllocationSource
	oracle     PriceOracle
	executor   TradeExecutor
	differ     *allocation.Differ
	ledger     *ledger.Service
	logger     *logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewService creates a new reconciliation service
func NewService(
	funds repositories.FundRepository,
	positions repositories.PositionRepository,
	trades repositories.TradeRepository,
	allocationSource AllocationSource,
	oracle PriceOracle,
	executor TradeExecutor,
	differ *allocation.Differ,
	ledgerService *ledger.Service,
	logger *logger.Logger,
) *Service {
	return &Service{
		funds:      funds,
		positions:  positions,
		trades:     trades,
		allocation: allocationSource,
		oracle:     oracle,
		executor:   executor,
		differ:     differ,
		ledger:     ledgerService,
		logger:     logger,
		tracer:     otel.Tracer("fund-reconciler"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// cycle is the working state of one fund's reconciliation
type cycle struct {
	fund      *entities.Fund
	log       *logger.Logger
	result    *entities.ReconcileResult
	positions map[string]*entities.Position
	prices    map[string]decimal.Decimal
	startNAV  decimal.Decimal
	netChange decimal.Decimal
}

// settledAny reports whether a swap has moved the fund's balance this cycle
func (c *cycle) settledAny() bool {
	return c.result.TradesExecuted > 0 || !c.netChange.IsZero()
}

func (c *cycle) availableBalance() decimal.Decimal {
	return c.fund.BaseCurrencyBalance.Add(c.netChange)
}

// ReconcileFund runs one reconciliation cycle for a single fund. The error
// return is reserved for fund-level failures; per-asset failures are listed
// in the result and never abort the cycle.
func (s *Service) ReconcileFund(ctx context.Context, fundID uuid.UUID) (*entities.ReconcileResult, error) {
	cycleID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "reconciler.reconcile_fund", trace.WithAttributes(
		attribute.String("fund_id", fundID.String()),
		attribute.String("cycle_id", cycleID.String()),
	))
	defer span.End()

	started := s.now()
	log := s.logger.ForFund(fundID.String(), cycleID.String()).WithContext(ctx)

	result, err := s.reconcile(ctx, fundID, cycleID, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconciliation failed")
		log.Errorw("Fund reconciliation aborted", "error", err)
		return nil, err
	}

	result.StartedAt = started
	result.Duration = s.now().Sub(started)
	span.SetAttributes(
		attribute.Int("trades_executed", result.TradesExecuted),
		attribute.Int("asset_errors", len(result.Errors)),
	)

	log.Infow("Fund reconciliation completed",
		"trades_executed", result.TradesExecuted,
		"asset_errors", len(result.Errors),
		"skipped", len(result.Skipped),
		"net_change", result.NetChange.String(),
		"net_asset_value", result.NetAssetValue.String(),
		"duration", result.Duration)

	return result, nil
}

func (s *Service) reconcile(ctx context.Context, fundID, cycleID uuid.UUID, log *logger.Logger) (*entities.ReconcileResult, error) {
	fund, err := s.funds.GetByID(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("load fund %s: %w", fundID, err)
	}

	result := &entities.ReconcileResult{
		FundID:    fundID,
		CycleID:   cycleID,
		NetChange: decimal.Zero,
	}

	repair, err := s.repairFund(ctx, fundID)
	if err != nil {
		return nil, err
	}
	result.Repaired = repair.FixedCount
	if repair.FixedCount > 0 {
		log.Warnw("Repaired corrupted positions before reconciliation",
			"fixed_count", repair.FixedCount,
			"details", repair.Details)
	}

	recs, err := s.allocation.GetRecommendation(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("get recommendation for fund %s: %w", fundID, err)
	}
	if len(recs) == 0 {
		log.Infow("No recommendations, nothing to reconcile")
		result.NetAssetValue = fund.NetAssetValue
		return result, nil
	}

	valid, err := s.validateRecommendations(recs, result, log)
	if err != nil {
		return nil, err
	}

	all, err := s.positions.ListAll(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("list positions for fund %s: %w", fundID, err)
	}

	c := &cycle{
		fund:      fund,
		log:       log,
		result:    result,
		positions: make(map[string]*entities.Position, len(all)),
		prices:    make(map[string]decimal.Decimal),
		netChange: decimal.Zero,
	}
	for _, p := range all {
		c.positions[p.AssetID] = p
	}
	c.startNAV = fund.BaseCurrencyBalance.Add(entities.SumPositions(all).PositionsValue)

	for i, rec := range valid {
		if err := ctx.Err(); err != nil {
			if !c.settledAny() {
				return nil, fmt.Errorf("reconciliation of fund %s interrupted: %w", fundID, err)
			}
			result.Interrupted = true
			log.Warnw("Reconciliation interrupted after settled trades, closing the cycle",
				"remaining_assets", len(valid)-i,
				"error", err)
			break
		}
		s.processAsset(ctx, c, rec)
	}

	// settled trades must reach the fund aggregate even when the caller gave up
	finishCtx := context.WithoutCancel(ctx)

	if err := s.revalue(finishCtx, c); err != nil {
		log.Errorw("Revalue pass failed, fund written from stored positions", "error", err)
	}
	if err := s.repairFullySold(finishCtx, c); err != nil {
		log.Errorw("Closed position repair failed, fund written from stored positions", "error", err)
	}
	if err := s.writeFund(finishCtx, c); err != nil {
		return nil, err
	}

	result.NetChange = c.netChange
	return result, nil
}

// validateRecommendations keeps the source's order. A malformed asset
// identifier fails the whole fund; any other bad entry is dropped alone.
func (s *Service) validateRecommendations(recs []entities.Recommendation, result *entities.ReconcileResult, log *logger.Logger) ([]entities.Recommendation, error) {
	valid := make([]entities.Recommendation, 0, len(recs))
	for _, rec := range recs {
		err := entities.ValidateRecommendation(rec)
		switch {
		case err == nil:
			valid = append(valid, rec)
		case errors.Is(err, entities.ErrInvalidAssetID):
			return nil, err
		default:
			log.Warnw("Rejected malformed recommendation", "asset_id", rec.AssetID, "error", err)
			result.AddError(rec.AssetID, entities.StageValidate, err)
		}
	}
	return valid, nil
}

func (s *Service) skip(c *cycle, assetID string, reason entities.NoTradeReason) {
	c.result.Skipped = append(c.result.Skipped, entities.SkippedAsset{AssetID: assetID, Reason: reason})
	metrics.RecordAssetSkipped(string(reason))
	c.log.Infow("No trade for asset", "asset_id", assetID, "reason", string(reason))
}

func (s *Service) processAsset(ctx context.Context, c *cycle, rec entities.Recommendation) {
	if rec.Action == entities.ActionHold {
		s.skip(c, rec.AssetID, entities.NoTradeHold)
		return
	}

	price, err := s.price(ctx, c, rec.AssetID)
	if err != nil {
		if errors.Is(err, entities.ErrPriceUnavailable) {
			s.skip(c, rec.AssetID, entities.NoTradeMissingPrice)
			return
		}
		c.log.Warnw("Price lookup failed", "asset_id", rec.AssetID, "error", err)
		c.result.AddError(rec.AssetID, entities.StagePrice, err)
		return
	}

	pos := c.positions[rec.AssetID]
	diff := s.differ.Diff(allocation.Input{
		Recommendation:   rec,
		Position:         pos,
		Price:            price,
		FundNAV:          c.startNAV,
		AvailableBalance: c.availableBalance(),
	})
	if !diff.HasTrade() {
		s.skip(c, rec.AssetID, diff.Reason)
		return
	}
	intent := diff.Intent

	executed, err := s.executor.Execute(ctx, c.fund, intent)
	if err != nil {
		c.log.Errorw("Trade failed",
			"asset_id", rec.AssetID,
			"side", string(intent.Side),
			"requested_amount", intent.RequestedAmount().String(),
			"error", err)
		c.result.AddError(rec.AssetID, entities.StageExecute, err)
		return
	}

	// the swap settled, so the balance moves whatever happens to the ledger write
	persistCtx := context.WithoutCancel(ctx)
	if intent.Side == entities.TradeSideBuy {
		c.netChange = c.netChange.Sub(executed.BaseAmount)
	} else {
		c.netChange = c.netChange.Add(executed.BaseAmount)
	}

	fill := ledger.Fill{
		AssetAmount:      executed.AssetAmount,
		BaseAmount:       executed.BaseAmount,
		ExecutionPrice:   executed.ExecutionPrice,
		TargetAllocation: intent.TargetAllocation,
		At:               s.now(),
	}

	var updated *entities.Position
	if intent.Side == entities.TradeSideBuy {
		if pos == nil {
			pos = entities.NewPosition(c.fund.ID, rec.AssetID)
		}
		updated, err = s.ledger.ApplyBuy(pos, fill)
	} else {
		updated, err = s.ledger.ApplySell(pos, fill)
	}
	if err != nil {
		c.log.Errorw("Ledger update failed for settled trade",
			"asset_id", rec.AssetID,
			"tx_ref", executed.TxRef,
			"error", err)
		c.result.AddError(rec.AssetID, entities.StageLedger, err)
		return
	}

	if err := s.positions.Upsert(persistCtx, updated); err != nil {
		c.log.Errorw("Failed to persist position for settled trade",
			"asset_id", rec.AssetID,
			"tx_ref", executed.TxRef,
			"error", err)
		c.result.AddError(rec.AssetID, entities.StageLedger, err)
		return
	}
	c.positions[rec.AssetID] = updated

	trade := entities.TradeRecord{
		ID:              uuid.New(),
		FundID:          c.fund.ID,
		AssetID:         rec.AssetID,
		Side:            intent.Side,
		AssetAmount:     executed.AssetAmount,
		BaseAmount:      executed.BaseAmount,
		ExecutionPrice:  executed.ExecutionPrice,
		RequestedAmount: executed.RequestedAmount,
		ExternalTxRef:   executed.TxRef,
		Rationale:       rec.Rationale,
		SettlementWarn:  executed.HasWarnings(),
		CreatedAt:       s.now(),
	}
	if err := s.trades.Create(persistCtx, &trade); err != nil {
		c.log.Errorw("Failed to record trade", "asset_id", rec.AssetID, "tx_ref", executed.TxRef, "error", err)
		c.result.AddError(rec.AssetID, entities.StageLedger, err)
	}

	c.result.TradesExecuted++
	c.result.Trades = append(c.result.Trades, trade)
	c.log.Infow("Trade settled",
		"asset_id", rec.AssetID,
		"side", string(intent.Side),
		"asset_amount", executed.AssetAmount.String(),
		"base_amount", executed.BaseAmount.String(),
		"price", executed.ExecutionPrice.String(),
		"tx_ref", executed.TxRef)
}

// price asks the oracle once per asset per cycle
func (s *Service) price(ctx context.Context, c *cycle, assetID string) (decimal.Decimal, error) {
	if p, ok := c.prices[assetID]; ok {
		return p, nil
	}
	p, err := s.oracle.GetPrice(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s for %s", entities.ErrPriceUnavailable, p, assetID)
	}
	c.prices[assetID] = p
	return p, nil
}

func (s *Service) revalue(ctx context.Context, c *cycle) error {
	open, err := s.positions.ListOpenPositions(ctx, c.fund.ID)
	if err != nil {
		return fmt.Errorf("list open positions for fund %s: %w", c.fund.ID, err)
	}

	prices := make(map[string]decimal.Decimal, len(open))
	for _, p := range open {
		price, err := s.price(ctx, c, p.AssetID)
		if err != nil {
			if !errors.Is(err, entities.ErrPriceUnavailable) {
				c.log.Warnw("Price lookup failed during revalue", "asset_id", p.AssetID, "error", err)
			}
			continue
		}
		prices[p.AssetID] = price
	}

	revalued := s.ledger.Revalue(open, prices, s.now())
	if len(revalued.MissingPrice) > 0 {
		c.log.Infow("Positions left at last price", "asset_ids", revalued.MissingPrice)
	}
	metrics.RecordRepairs("revalue_forced_close", revalued.ForcedClosed)

	for _, p := range revalued.Updated {
		if err := s.positions.Upsert(ctx, p); err != nil {
			return fmt.Errorf("persist revalued position %s: %w", p.AssetID, err)
		}
		c.positions[p.AssetID] = p
	}
	return nil
}

func (s *Service) repairFullySold(ctx context.Context, c *cycle) error {
	closed, err := s.positions.ListByStatus(ctx, c.fund.ID, entities.PositionStatusFullySold)
	if err != nil {
		return fmt.Errorf("list closed positions for fund %s: %w", c.fund.ID, err)
	}

	changed := s.ledger.RepairFullySold(closed, s.now())
	for _, p := range changed {
		if err := s.positions.Upsert(ctx, p); err != nil {
			return fmt.Errorf("persist repaired position %s: %w", p.AssetID, err)
		}
		c.positions[p.AssetID] = p
	}
	if len(changed) > 0 {
		metrics.RecordRepairs("fully_sold", len(changed))
		c.log.Infow("Recomputed return of closed positions", "count", len(changed))
	}
	return nil
}

// writeFund applies the cycle to the fund aggregate in one write
func (s *Service) writeFund(ctx context.Context, c *cycle) error {
	all, err := s.positions.ListAll(ctx, c.fund.ID)
	if err != nil {
		return fmt.Errorf("list positions for fund %s: %w", c.fund.ID, err)
	}

	now := s.now()
	totals := entities.SumPositions(all)
	balance := c.fund.BaseCurrencyBalance.Add(c.netChange)
	nav := balance.Add(totals.PositionsValue)

	if balance.IsNegative() {
		metrics.NegativeBalanceTotal.Inc()
		c.log.Warnw("Fund liquid balance is negative after reconciliation",
			"balance", balance.String(),
			"net_change", c.netChange.String())
	}

	update := &entities.FundUpdate{
		FundID:           c.fund.ID,
		BalanceDelta:     c.netChange,
		NetAssetValue:    nav,
		RealizedProfit:   totals.RealizedProfit,
		UnrealizedProfit: totals.UnrealizedProfit,
		TotalPnLPercent:  entities.FundPnLPercent(nav, c.fund.InitialFundAmount),
		History: entities.PnLHistoryEntry{
			ID:        uuid.New(),
			FundID:    c.fund.ID,
			Value:     nav,
			Timestamp: now,
		},
		ReconciledAt: now,
	}

	if err := s.funds.ApplyCycleUpdate(ctx, update); err != nil {
		return fmt.Errorf("update fund %s: %w", c.fund.ID, err)
	}

	c.result.NetAssetValue = nav
	return nil
}
