package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fund-service/fund_service/internal/domain/entities"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/metrics"
	"github.com/fund-service/fund_service/pkg/retry"
)

// SwapGateway submits swaps and returns a transaction reference
type SwapGateway interface {
	SubmitSwap(ctx context.Context, req entities.SwapRequest) (*entities.SwapSubmission, error)
}

// SettlementQuerier reports the settlement state of a submitted swap
type SettlementQuerier interface {
	GetSettlement(ctx context.Context, txRef string) (*entities.Settlement, error)
}

// Config controls submission and settlement polling
type Config struct {
	SlippagePercent decimal.Decimal
	// DivergenceThreshold is the relative gap between requested and settled
	// amounts above which a warning is emitted
	DivergenceThreshold decimal.Decimal
	// DustBaseAmount is the settled base amount below which a warning is emitted
	DustBaseAmount decimal.Decimal
	SubmitPolicy   retry.Policy
	PollPolicy     retry.Policy
}

// DefaultConfig returns the production execution settings
func DefaultConfig() Config {
	return Config{
		SlippagePercent:     decimal.NewFromInt(1),
		DivergenceThreshold: decimal.NewFromFloat(0.5),
		DustBaseAmount:      decimal.New(1, -6),
		SubmitPolicy:        retry.PolicySwapSubmit,
		PollPolicy:          retry.PolicySettlementPoll,
	}
}

// Executor turns trade intents into settled trades
type Executor struct {
	gateway    SwapGateway
	settlement SettlementQuerier
	cfg        Config
	logger     *logger.Logger
	tracer     trace.Tracer
}

// NewExecutor creates a new trade executor
func NewExecutor(gateway SwapGateway, settlement SettlementQuerier, cfg Config, logger *logger.Logger) *Executor {
	return &Executor{
		gateway:    gateway,
		settlement: settlement,
		cfg:        cfg,
		logger:     logger,
		tracer:     otel.Tracer("trade-executor"),
	}
}

// Execute submits the swap for intent and waits for it to settle. The
// returned result always carries the settled amounts. Any error is terminal
// for this asset in this cycle.
func (e *Executor) Execute(ctx context.Context, fund *entities.Fund, intent *entities.TradeIntent) (*entities.ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "executor.execute", trace.WithAttributes(
		attribute.String("fund_id", fund.ID.String()),
		attribute.String("asset_id", intent.AssetID),
		attribute.String("side", string(intent.Side)),
		attribute.String("requested_amount", intent.RequestedAmount().String()),
	))
	defer span.End()

	req := e.buildRequest(fund, intent)

	submission, submitAttempts, err := e.submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap submission failed")
		metrics.RecordTrade(string(intent.Side), "rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("tx_ref", submission.TxRef))

	settlement, pollAttempts, err := e.awaitSettlement(ctx, submission.TxRef)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement not reached")
		metrics.RecordTrade(string(intent.Side), "unsettled")
		return nil, err
	}

	result, err := e.toResult(intent, settlement)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid settlement")
		metrics.RecordTrade(string(intent.Side), "invalid")
		return nil, err
	}
	result.SubmitAttempts = submitAttempts
	result.PollAttempts = pollAttempts

	e.checkSettledAmounts(fund, intent, result)
	metrics.RecordTrade(string(intent.Side), "settled")

	return result, nil
}

func (e *Executor) buildRequest(fund *entities.Fund, intent *entities.TradeIntent) entities.SwapRequest {
	req := entities.SwapRequest{
		FundID:          fund.ID.String(),
		Amount:          intent.RequestedAmount(),
		SlippagePercent: e.cfg.SlippagePercent,
		Simulated:       fund.Mode == entities.FundModeSimulated,
	}
	if intent.Side == entities.TradeSideBuy {
		req.SourceAsset = fund.BaseAssetID
		req.DestAsset = intent.AssetID
	} else {
		req.SourceAsset = intent.AssetID
		req.DestAsset = fund.BaseAssetID
	}
	return req
}

// isTransientSubmitError reports whether a submission failure is worth one
// immediate resubmission
func isTransientSubmitError(err error) bool {
	if errors.Is(err, entities.ErrSwapRejected) {
		return false
	}
	if errors.Is(err, entities.ErrSwapTransient) {
		return true
	}
	switch apperrors.ClassifyError(err) {
	case apperrors.ErrorTypeTransient, apperrors.ErrorTypeTimeout, apperrors.ErrorTypeExternal:
		return true
	default:
		return false
	}
}

func (e *Executor) submit(ctx context.Context, req entities.SwapRequest) (*entities.SwapSubmission, int, error) {
	var (
		submission *entities.SwapSubmission
		attempts   int
	)

	policy := e.cfg.SubmitPolicy.WithRetryableFunc(isTransientSubmitError)
	err := retry.Do(ctx, policy, func(attempt int) error {
		attempts = attempt
		s, err := e.gateway.SubmitSwap(ctx, req)
		if err != nil {
			if isTransientSubmitError(err) && attempt < policy.MaxAttempts() {
				e.logger.CtxWarn(ctx, "Transient swap submission error, resubmitting",
					"fund_id", req.FundID,
					"source", req.SourceAsset,
					"dest", req.DestAsset,
					"attempt", attempt,
					"error", err)
			}
			return err
		}
		if s == nil || s.TxRef == "" {
			return fmt.Errorf("%w: gateway returned no transaction reference", entities.ErrSwapRejected)
		}
		submission = s
		return nil
	})
	if err != nil {
		e.logger.CtxError(ctx, "Swap submission failed",
			"fund_id", req.FundID,
			"source", req.SourceAsset,
			"dest", req.DestAsset,
			"amount", req.Amount.String(),
			"attempts", attempts,
			"error", err)
		return nil, attempts, fmt.Errorf("submit swap %s->%s: %w", req.SourceAsset, req.DestAsset, err)
	}

	return submission, attempts, nil
}

func (e *Executor) awaitSettlement(ctx context.Context, txRef string) (*entities.Settlement, int, error) {
	var (
		settled  *entities.Settlement
		attempts int
	)

	policy := e.cfg.PollPolicy.WithRetryableFunc(func(err error) bool {
		return errors.Is(err, entities.ErrSettlementPending)
	})

	err := retry.Do(ctx, policy, func(attempt int) error {
		attempts = attempt
		s, err := e.settlement.GetSettlement(ctx, txRef)
		if err != nil {
			// a failed query is an attempt that did not reach success
			e.logger.CtxWarn(ctx, "Settlement query failed",
				"tx_ref", txRef,
				"attempt", attempt,
				"error", err)
			return fmt.Errorf("%w: %v", entities.ErrSettlementPending, err)
		}

		switch s.Status {
		case entities.SettlementSuccess:
			settled = s
			return nil
		case entities.SettlementFailed:
			return fmt.Errorf("%w: tx %s: %s", entities.ErrSettlementFailed, txRef, s.FailureReason)
		default:
			return entities.ErrSettlementPending
		}
	})

	switch {
	case err == nil:
		metrics.RecordSettlementPolls("success", attempts)
		return settled, attempts, nil
	case errors.Is(err, retry.ErrMaxRetriesExceeded):
		metrics.RecordSettlementPolls("exhausted", attempts)
		e.logger.CtxError(ctx, "Settlement not confirmed within poll budget",
			"tx_ref", txRef,
			"attempts", attempts)
		return nil, attempts, fmt.Errorf("%w: tx %s after %d attempts", entities.ErrSettlementTimeout, txRef, attempts)
	default:
		metrics.RecordSettlementPolls("failed", attempts)
		e.logger.CtxError(ctx, "Settlement failed",
			"tx_ref", txRef,
			"attempts", attempts,
			"error", err)
		return nil, attempts, err
	}
}

func (e *Executor) toResult(intent *entities.TradeIntent, s *entities.Settlement) (*entities.ExecutionResult, error) {
	result := &entities.ExecutionResult{
		Side:            intent.Side,
		AssetID:         intent.AssetID,
		TxRef:           s.TxRef,
		RequestedAmount: intent.RequestedAmount(),
	}

	if intent.Side == entities.TradeSideBuy {
		result.BaseAmount = s.ActualSourceAmount
		result.AssetAmount = s.ActualDestAmount
	} else {
		result.AssetAmount = s.ActualSourceAmount
		result.BaseAmount = s.ActualDestAmount
	}

	if !result.AssetAmount.IsPositive() || result.BaseAmount.IsNegative() {
		return nil, fmt.Errorf("%w: tx %s settled with asset amount %s and base amount %s",
			entities.ErrSettlementFailed, s.TxRef, result.AssetAmount, result.BaseAmount)
	}

	result.ExecutionPrice = result.BaseAmount.Div(result.AssetAmount)
	if !result.ExecutionPrice.IsPositive() {
		result.ExecutionPrice = intent.Price
	}

	return result, nil
}

// checkSettledAmounts flags settlements that moved far less or far more than
// requested, or a dust-sized base amount. It never rejects the trade.
func (e *Executor) checkSettledAmounts(fund *entities.Fund, intent *entities.TradeIntent, result *entities.ExecutionResult) {
	requested := intent.RequestedAmount()
	actual := result.BaseAmount
	if intent.Side == entities.TradeSideSell {
		actual = result.AssetAmount
	}

	if requested.IsPositive() {
		divergence := actual.Sub(requested).Abs().Div(requested)
		if divergence.GreaterThan(e.cfg.DivergenceThreshold) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"settled %s diverges from requested %s by %s%%",
				actual, requested, divergence.Mul(decimal.NewFromInt(100)).StringFixed(2)))
			metrics.RecordSettlementWarning("divergence")
		}
	}

	if result.BaseAmount.LessThan(e.cfg.DustBaseAmount) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"settled base amount %s is below dust threshold %s", result.BaseAmount, e.cfg.DustBaseAmount))
		metrics.RecordSettlementWarning("dust")
	}

	if result.HasWarnings() {
		e.logger.Warnw("Settlement differs from request, ledger will use settled amounts",
			"fund_id", fund.ID.String(),
			"asset_id", intent.AssetID,
			"side", string(intent.Side),
			"tx_ref", result.TxRef,
			"requested", requested.String(),
			"settled_asset", result.AssetAmount.String(),
			"settled_base", result.BaseAmount.String(),
			"warnings", result.Warnings)
	}
}
