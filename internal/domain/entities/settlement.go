package entities

import (
	"github.com/shopspring/decimal"
)

// SwapRequest is handed to the swap execution gateway
type SwapRequest struct {
	FundID          string          `json:"fund_id"`
	SourceAsset     string          `json:"source_asset"`
	DestAsset       string          `json:"dest_asset"`
	Amount          decimal.Decimal `json:"amount"`
	SlippagePercent decimal.Decimal `json:"slippage_percent"`
	Simulated       bool            `json:"simulated"`
}

// SwapSubmission is the gateway's acknowledgement of a submitted swap
type SwapSubmission struct {
	TxRef string `json:"tx_ref"`
}

// SettlementStatus is the state reported by the settlement query service
type SettlementStatus string

const (
	SettlementSuccess SettlementStatus = "success"
	SettlementPending SettlementStatus = "pending"
	SettlementFailed  SettlementStatus = "failed"
)

// Settlement is the parsed result for a transaction reference.
// Source is what left the fund, Dest is what arrived.
type Settlement struct {
	TxRef              string           `json:"tx_ref"`
	Status             SettlementStatus `json:"status"`
	ActualSourceAmount decimal.Decimal  `json:"actual_source_amount"`
	ActualDestAmount   decimal.Decimal  `json:"actual_dest_amount"`
	FailureReason      string           `json:"failure_reason,omitempty"`
}

// ExecutionResult is a settled trade expressed from the fund's side
type ExecutionResult struct {
	Side            TradeSide       `json:"side"`
	AssetID         string          `json:"asset_id"`
	TxRef           string          `json:"tx_ref"`
	AssetAmount     decimal.Decimal `json:"asset_amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	ExecutionPrice  decimal.Decimal `json:"execution_price"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	SubmitAttempts  int             `json:"submit_attempts"`
	PollAttempts    int             `json:"poll_attempts"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// HasWarnings reports whether the settled amounts looked suspicious
func (r *ExecutionResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}
