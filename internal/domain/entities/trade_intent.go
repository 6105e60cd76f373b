package entities

import (
	"github.com/shopspring/decimal"
)

// NoTradeReason explains why the differ produced no intent
type NoTradeReason string

const (
	NoTradeHold                NoTradeReason = "hold"
	NoTradeBelowMinimum        NoTradeReason = "below_minimum_trade"
	NoTradeInsufficientBalance NoTradeReason = "insufficient_balance"
	NoTradeAtOrAboveTarget     NoTradeReason = "at_or_above_target"
	NoTradeAtOrBelowTarget     NoTradeReason = "at_or_below_target"
	NoTradeNoPosition          NoTradeReason = "no_position"
	NoTradeMissingPrice        NoTradeReason = "missing_price"
)

// TradeIntent is the differ's output. Buys are sized in base currency
// (BaseAmount); sells are sized in asset units (AssetAmount).
type TradeIntent struct {
	Side             TradeSide       `json:"side"`
	AssetID          string          `json:"asset_id"`
	AssetAmount      decimal.Decimal `json:"asset_amount"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	Price            decimal.Decimal `json:"price"`
	TargetAllocation decimal.Decimal `json:"target_allocation"`
	FullExit         bool            `json:"full_exit"`
	Clamped          bool            `json:"clamped"`
	Rationale        string          `json:"rationale"`
}

// RequestedAmount is the amount handed to the gateway, in its source asset
func (t *TradeIntent) RequestedAmount() decimal.Decimal {
	if t.Side == TradeSideBuy {
		return t.BaseAmount
	}
	return t.AssetAmount
}

// DiffResult is either an intent or a reason for skipping the asset
type DiffResult struct {
	Intent *TradeIntent
	Reason NoTradeReason
}

// HasTrade reports whether the diff produced an intent
func (d DiffResult) HasTrade() bool {
	return d.Intent != nil
}
