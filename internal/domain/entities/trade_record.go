package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a trade relative to the traded asset
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeRecord is the append-only audit entry for one settled trade.
// Amounts are the settled amounts, never the requested ones.
type TradeRecord struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	FundID          uuid.UUID       `json:"fund_id" db:"fund_id"`
	AssetID         string          `json:"asset_id" db:"asset_id"`
	Side            TradeSide       `json:"side" db:"side"`
	AssetAmount     decimal.Decimal `json:"asset_amount" db:"asset_amount"`
	BaseAmount      decimal.Decimal `json:"base_amount" db:"base_amount"`
	ExecutionPrice  decimal.Decimal `json:"execution_price" db:"execution_price"`
	RequestedAmount decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	ExternalTxRef   string          `json:"external_tx_ref" db:"external_tx_ref"`
	Rationale       string          `json:"rationale" db:"rationale"`
	SettlementWarn  bool            `json:"settlement_warning" db:"settlement_warning"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
