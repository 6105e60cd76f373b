package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Config holds the differ's trade-size guards
type Config struct {
	// MinTradeValue is the smallest trade worth submitting, in base currency
	MinTradeValue decimal.Decimal
}

// DefaultConfig returns the production guards
func DefaultConfig() Config {
	return Config{MinTradeValue: decimal.New(1, -3)}
}

// Input is everything the differ needs to size one asset's trade
type Input struct {
	Recommendation   entities.Recommendation
	Position         *entities.Position
	Price            decimal.Decimal
	FundNAV          decimal.Decimal
	AvailableBalance decimal.Decimal
}

// Differ turns a target allocation into a trade intent
type Differ struct {
	cfg    Config
	logger *logger.Logger
}

// NewDiffer creates a new allocation differ
func NewDiffer(cfg Config, logger *logger.Logger) *Differ {
	return &Differ{cfg: cfg, logger: logger}
}

// Diff sizes a trade for one recommendation. It never returns a sell larger
// than the position's current amount, and returns a reason instead of an
// intent whenever the asset should be left alone this cycle.
func (d *Differ) Diff(in Input) entities.DiffResult {
	rec := in.Recommendation

	switch rec.Action {
	case entities.ActionBuy:
		return d.diffBuy(in)
	case entities.ActionSell:
		return d.diffSell(in)
	default:
		return entities.DiffResult{Reason: entities.NoTradeHold}
	}
}

func (d *Differ) currentValue(in Input) decimal.Decimal {
	if in.Position == nil {
		return decimal.Zero
	}
	return in.Position.CurrentValue(in.Price)
}

func (d *Differ) targetValue(in Input) decimal.Decimal {
	return in.FundNAV.Mul(in.Recommendation.TargetAllocationPercent).Div(hundred)
}

func (d *Differ) diffBuy(in Input) entities.DiffResult {
	if !in.Price.IsPositive() {
		return entities.DiffResult{Reason: entities.NoTradeMissingPrice}
	}

	delta := d.targetValue(in).Sub(d.currentValue(in))
	if !delta.IsPositive() {
		return entities.DiffResult{Reason: entities.NoTradeAtOrAboveTarget}
	}
	if delta.LessThan(d.cfg.MinTradeValue) {
		return entities.DiffResult{Reason: entities.NoTradeBelowMinimum}
	}
	if in.AvailableBalance.LessThan(delta) {
		return entities.DiffResult{Reason: entities.NoTradeInsufficientBalance}
	}

	return entities.DiffResult{Intent: &entities.TradeIntent{
		Side:             entities.TradeSideBuy,
		AssetID:          in.Recommendation.AssetID,
		BaseAmount:       delta,
		AssetAmount:      delta.Div(in.Price),
		Price:            in.Price,
		TargetAllocation: in.Recommendation.TargetAllocationPercent,
		Rationale:        in.Recommendation.Rationale,
	}}
}

func (d *Differ) diffSell(in Input) entities.DiffResult {
	pos := in.Position
	if pos == nil || !pos.CurrentAmount.IsPositive() {
		return entities.DiffResult{Reason: entities.NoTradeNoPosition}
	}
	if !in.Price.IsPositive() {
		return entities.DiffResult{Reason: entities.NoTradeMissingPrice}
	}

	rec := in.Recommendation
	intent := &entities.TradeIntent{
		Side:             entities.TradeSideSell,
		AssetID:          rec.AssetID,
		Price:            in.Price,
		TargetAllocation: rec.TargetAllocationPercent,
		Rationale:        rec.Rationale,
	}

	var quantity decimal.Decimal
	if rec.IsFullExit() {
		// a zero target sells the whole holding, not the computed delta
		quantity = pos.CurrentAmount
		intent.FullExit = true
	} else {
		current := d.currentValue(in)
		target := d.targetValue(in)
		if current.LessThanOrEqual(target) {
			return entities.DiffResult{Reason: entities.NoTradeAtOrBelowTarget}
		}
		quantity = current.Sub(target).Div(in.Price)
	}

	if quantity.GreaterThan(pos.CurrentAmount) {
		if d.logger != nil {
			d.logger.Warnw("Sell quantity exceeds position, selling remaining amount",
				"fund_id", pos.FundID.String(),
				"asset_id", pos.AssetID,
				"computed", quantity.String(),
				"held", pos.CurrentAmount.String())
		}
		quantity = pos.CurrentAmount
		intent.Clamped = true
		intent.FullExit = true
	}

	// exits are held to the minimum too; a sub-minimum remainder stays open
	value := quantity.Mul(in.Price)
	if value.LessThan(d.cfg.MinTradeValue) {
		return entities.DiffResult{Reason: entities.NoTradeBelowMinimum}
	}

	intent.AssetAmount = quantity
	intent.BaseAmount = value
	return entities.DiffResult{Intent: intent}
}
