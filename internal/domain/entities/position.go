package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a fund's holding in one asset
type PositionStatus string

const (
	PositionStatusHold      PositionStatus = "HOLD"
	PositionStatusFullySold PositionStatus = "FULLY_SOLD"
)

// MinPnLPercent is the floor for every percentage return
var MinPnLPercent = decimal.NewFromInt(-100)

// Position is a fund's holding in a single asset, keyed by (FundID, AssetID).
type Position struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	FundID            uuid.UUID       `json:"fund_id" db:"fund_id"`
	AssetID           string          `json:"asset_id" db:"asset_id"`
	CurrentAmount     decimal.Decimal `json:"current_amount" db:"current_amount"`
	TotalBuyAmount    decimal.Decimal `json:"total_buy_amount" db:"total_buy_amount"`
	TotalSellAmount   decimal.Decimal `json:"total_sell_amount" db:"total_sell_amount"`
	TotalBuyValue     decimal.Decimal `json:"total_buy_value" db:"total_buy_value"`
	TotalSellValue    decimal.Decimal `json:"total_sell_value" db:"total_sell_value"`
	AverageBuyPrice   decimal.Decimal `json:"average_buy_price" db:"average_buy_price"`
	AverageSellPrice  decimal.Decimal `json:"average_sell_price" db:"average_sell_price"`
	LastPrice         decimal.Decimal `json:"last_price" db:"last_price"`
	RealizedProfit    decimal.Decimal `json:"realized_profit" db:"realized_profit"`
	UnrealizedProfit  decimal.Decimal `json:"unrealized_profit" db:"unrealized_profit"`
	NetAssetValue     decimal.Decimal `json:"net_asset_value" db:"net_asset_value"`
	TotalPnLPercent   decimal.Decimal `json:"total_pnl_percent" db:"total_pnl_percent"`
	AllocationPercent decimal.Decimal `json:"allocation_percent" db:"allocation_percent"`
	Status            PositionStatus  `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// NewPosition returns an empty HOLD position ready for its first buy
func NewPosition(fundID uuid.UUID, assetID string) *Position {
	now := time.Now().UTC()
	return &Position{
		ID:        uuid.New(),
		FundID:    fundID,
		AssetID:   assetID,
		Status:    PositionStatusHold,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NetInvestment is capital still committed: lifetime buys minus lifetime sells.
func (p *Position) NetInvestment() decimal.Decimal {
	return p.TotalBuyValue.Sub(p.TotalSellValue)
}

// IsOpen reports whether the position still holds quantity worth valuing
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusHold && p.CurrentAmount.IsPositive()
}

// CurrentValue marks the open quantity at price
func (p *Position) CurrentValue(price decimal.Decimal) decimal.Decimal {
	if !p.CurrentAmount.IsPositive() {
		return decimal.Zero
	}
	return p.CurrentAmount.Mul(price)
}

// Clone returns a copy safe to mutate
func (p *Position) Clone() *Position {
	c := *p
	return &c
}
