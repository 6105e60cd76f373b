package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundMode separates live funds from paper-traded ones
type FundMode string

const (
	FundModeReal      FundMode = "real"
	FundModeSimulated FundMode = "simulated"
)

// FundStatus represents whether a fund takes part in scheduled runs
type FundStatus string

const (
	FundStatusActive FundStatus = "active"
	FundStatusPaused FundStatus = "paused"
	FundStatusClosed FundStatus = "closed"
)

// Fund is the aggregate over all positions of one portfolio
type Fund struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	Name                string          `json:"name" db:"name"`
	Mode                FundMode        `json:"mode" db:"mode"`
	Status              FundStatus      `json:"status" db:"status"`
	BaseAssetID         string          `json:"base_asset_id" db:"base_asset_id"`
	InitialFundAmount   decimal.Decimal `json:"initial_fund_amount" db:"initial_fund_amount"`
	BaseCurrencyBalance decimal.Decimal `json:"base_currency_balance" db:"base_currency_balance"`
	NetAssetValue       decimal.Decimal `json:"net_asset_value" db:"net_asset_value"`
	RealizedProfit      decimal.Decimal `json:"realized_profit" db:"realized_profit"`
	UnrealizedProfit    decimal.Decimal `json:"unrealized_profit" db:"unrealized_profit"`
	TotalPnLPercent     decimal.Decimal `json:"total_pnl_percent" db:"total_pnl_percent"`
	LastReconciledAt    *time.Time      `json:"last_reconciled_at,omitempty" db:"last_reconciled_at"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// PnLHistoryEntry is one net asset value sample, appended once per cycle
type PnLHistoryEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	FundID    uuid.UUID       `json:"fund_id" db:"fund_id"`
	Value     decimal.Decimal `json:"value" db:"value"`
	Timestamp time.Time       `json:"timestamp" db:"recorded_at"`
}

// FundUpdate is the single write applied to a fund at the end of a cycle.
// BalanceDelta is added to the stored balance; the rest replace stored values.
type FundUpdate struct {
	FundID           uuid.UUID
	BalanceDelta     decimal.Decimal
	NetAssetValue    decimal.Decimal
	RealizedProfit   decimal.Decimal
	UnrealizedProfit decimal.Decimal
	TotalPnLPercent  decimal.Decimal
	History          PnLHistoryEntry
	ReconciledAt     time.Time
}

// IsActive reports whether the fund may be reconciled at all
func (f *Fund) IsActive() bool {
	return f.Status == FundStatusActive
}

// FundTotals is the sum of position values used to rebuild the aggregate
type FundTotals struct {
	PositionsValue   decimal.Decimal
	RealizedProfit   decimal.Decimal
	UnrealizedProfit decimal.Decimal
}

// SumPositions totals value and profit over every position of a fund
func SumPositions(positions []*Position) FundTotals {
	totals := FundTotals{
		PositionsValue:   decimal.Zero,
		RealizedProfit:   decimal.Zero,
		UnrealizedProfit: decimal.Zero,
	}
	for _, p := range positions {
		if p.NetAssetValue.IsPositive() {
			totals.PositionsValue = totals.PositionsValue.Add(p.NetAssetValue)
		}
		totals.RealizedProfit = totals.RealizedProfit.Add(p.RealizedProfit)
		totals.UnrealizedProfit = totals.UnrealizedProfit.Add(p.UnrealizedProfit)
	}
	return totals
}

// FundPnLPercent is the fund's return against its initial amount, floored at -100.
func FundPnLPercent(nav, initial decimal.Decimal) decimal.Decimal {
	if !initial.IsPositive() {
		return decimal.Zero
	}
	pct := nav.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100))
	return decimal.Max(pct, MinPnLPercent)
}
