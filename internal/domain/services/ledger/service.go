package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Config holds the ledger's numeric tolerances
type Config struct {
	// DustQuantity is the largest quantity still treated as zero
	DustQuantity decimal.Decimal
	// NearZeroInvestmentRatio switches PnL to the recovered-capital formula
	// when net investment falls below this share of total buy value
	NearZeroInvestmentRatio decimal.Decimal
}

// DefaultConfig returns the tolerances used in production
func DefaultConfig() Config {
	return Config{
		DustQuantity:            decimal.New(1, -9),
		NearZeroInvestmentRatio: decimal.New(1, -2),
	}
}

// Fill is a settled trade as seen by the ledger. Amounts are always the
// settled amounts reported by the settlement service.
type Fill struct {
	AssetAmount      decimal.Decimal
	BaseAmount       decimal.Decimal
	ExecutionPrice   decimal.Decimal
	TargetAllocation decimal.Decimal
	At               time.Time
}

// Service applies settled trades and valuations to positions. It does no I/O.
type Service struct {
	cfg    Config
	logger *logger.Logger
}

// NewService creates a new ledger service
func NewService(cfg Config, logger *logger.Logger) *Service {
	if cfg.DustQuantity.IsZero() && cfg.NearZeroInvestmentRatio.IsZero() {
		cfg = DefaultConfig()
	}
	return &Service{cfg: cfg, logger: logger}
}

// IsDust reports whether a quantity is effectively zero
func (s *Service) IsDust(quantity decimal.Decimal) bool {
	return quantity.LessThanOrEqual(s.cfg.DustQuantity)
}

// PnLPercent is the single return formula shared by buys, partial sells and
// revaluation. With capital still committed it measures value against net
// investment; once net investment drops under the near-zero ratio it measures
// everything ever received plus what is held against everything ever paid.
func (s *Service) PnLPercent(nav, totalBuyValue, totalSellValue decimal.Decimal) decimal.Decimal {
	if !totalBuyValue.IsPositive() {
		return decimal.Zero
	}

	netInvestment := totalBuyValue.Sub(totalSellValue)
	threshold := totalBuyValue.Mul(s.cfg.NearZeroInvestmentRatio)

	var pct decimal.Decimal
	if netInvestment.LessThan(threshold) {
		pct = totalSellValue.Add(nav).Sub(totalBuyValue).Div(totalBuyValue).Mul(hundred)
	} else {
		pct = nav.Sub(netInvestment).Div(netInvestment).Mul(hundred)
	}
	return floorPnL(pct)
}

// ClosedPnLPercent is the return of a fully exited position
func ClosedPnLPercent(totalBuyValue, totalSellValue decimal.Decimal) decimal.Decimal {
	if !totalBuyValue.IsPositive() {
		return decimal.Zero
	}
	return floorPnL(totalSellValue.Sub(totalBuyValue).Div(totalBuyValue).Mul(hundred))
}

func floorPnL(pct decimal.Decimal) decimal.Decimal {
	return decimal.Max(pct, entities.MinPnLPercent)
}

func validateFill(fill Fill) error {
	if !fill.AssetAmount.IsPositive() {
		return fmt.Errorf("settled asset amount must be positive, got %s", fill.AssetAmount)
	}
	if fill.BaseAmount.IsNegative() {
		return fmt.Errorf("settled base amount must not be negative, got %s", fill.BaseAmount)
	}
	if !fill.ExecutionPrice.IsPositive() {
		return fmt.Errorf("execution price must be positive, got %s", fill.ExecutionPrice)
	}
	return nil
}

// ApplyBuy adds a settled buy to pos and returns the updated copy. A nil pos
// is not allowed; callers create the position first with entities.NewPosition.
// A FULLY_SOLD position is reopened as HOLD.
func (s *Service) ApplyBuy(pos *entities.Position, fill Fill) (*entities.Position, error) {
	if pos == nil {
		return nil, fmt.Errorf("apply buy: nil position")
	}
	if err := validateFill(fill); err != nil {
		return nil, fmt.Errorf("apply buy to %s: %w", pos.AssetID, err)
	}

	p := pos.Clone()
	if p.CurrentAmount.IsNegative() {
		p.CurrentAmount = decimal.Zero
	}

	p.CurrentAmount = p.CurrentAmount.Add(fill.AssetAmount)
	p.TotalBuyAmount = p.TotalBuyAmount.Add(fill.AssetAmount)
	p.TotalBuyValue = p.TotalBuyValue.Add(fill.BaseAmount)
	p.AverageBuyPrice = p.TotalBuyValue.Div(p.TotalBuyAmount)

	p.LastPrice = fill.ExecutionPrice
	p.NetAssetValue = p.CurrentAmount.Mul(fill.ExecutionPrice)
	p.UnrealizedProfit = fill.ExecutionPrice.Sub(p.AverageBuyPrice).Mul(p.CurrentAmount)
	p.TotalPnLPercent = s.PnLPercent(p.NetAssetValue, p.TotalBuyValue, p.TotalSellValue)
	p.AllocationPercent = fill.TargetAllocation
	p.Status = entities.PositionStatusHold
	p.UpdatedAt = fillTime(fill)

	return p, nil
}

// ApplySell removes a settled sell from pos and returns the updated copy.
// The position is closed when the remainder is dust or the target is zero.
func (s *Service) ApplySell(pos *entities.Position, fill Fill) (*entities.Position, error) {
	if pos == nil {
		return nil, fmt.Errorf("apply sell: nil position")
	}
	if err := validateFill(fill); err != nil {
		return nil, fmt.Errorf("apply sell to %s: %w", pos.AssetID, err)
	}

	p := pos.Clone()

	realizedDelta := fill.ExecutionPrice.Sub(p.AverageBuyPrice).Mul(fill.AssetAmount)
	p.RealizedProfit = p.RealizedProfit.Add(realizedDelta)

	p.TotalSellAmount = p.TotalSellAmount.Add(fill.AssetAmount)
	p.TotalSellValue = p.TotalSellValue.Add(fill.BaseAmount)
	p.AverageSellPrice = p.TotalSellValue.Div(p.TotalSellAmount)

	remaining := decimal.Max(decimal.Zero, p.CurrentAmount.Sub(fill.AssetAmount))
	fullExit := s.IsDust(remaining) || fill.TargetAllocation.IsZero()

	p.LastPrice = fill.ExecutionPrice
	p.AllocationPercent = fill.TargetAllocation
	p.UpdatedAt = fillTime(fill)

	if fullExit {
		if remaining.IsPositive() && !s.IsDust(remaining) && s.logger != nil {
			s.logger.Warnw("Closing position with residual quantity after zero-target sell",
				"fund_id", p.FundID.String(),
				"asset_id", p.AssetID,
				"residual", remaining.String())
		}
		p.CurrentAmount = decimal.Zero
		p.NetAssetValue = decimal.Zero
		p.UnrealizedProfit = decimal.Zero
		p.TotalPnLPercent = ClosedPnLPercent(p.TotalBuyValue, p.TotalSellValue)
		p.Status = entities.PositionStatusFullySold
		return p, nil
	}

	p.CurrentAmount = remaining
	p.NetAssetValue = remaining.Mul(fill.ExecutionPrice)
	p.UnrealizedProfit = fill.ExecutionPrice.Sub(p.AverageBuyPrice).Mul(remaining)
	p.TotalPnLPercent = s.PnLPercent(p.NetAssetValue, p.TotalBuyValue, p.TotalSellValue)
	p.Status = entities.PositionStatusHold
	return p, nil
}

func fillTime(fill Fill) time.Time {
	if fill.At.IsZero() {
		return time.Now().UTC()
	}
	return fill.At
}
