package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetStage names the step at which an asset failed
type AssetStage string

const (
	StageValidate AssetStage = "validate"
	StagePrice    AssetStage = "price"
	StageDiff     AssetStage = "diff"
	StageExecute  AssetStage = "execute"
	StageLedger   AssetStage = "ledger"
)

// AssetError is a per-asset failure surfaced in a cycle result
type AssetError struct {
	AssetID string     `json:"asset_id"`
	Stage   AssetStage `json:"stage"`
	Message string     `json:"message"`
}

// SkippedAsset records an asset that produced no trade
type SkippedAsset struct {
	AssetID string        `json:"asset_id"`
	Reason  NoTradeReason `json:"reason"`
}

// ReconcileResult summarises one reconciliation cycle of one fund
type ReconcileResult struct {
	FundID         uuid.UUID       `json:"fund_id"`
	CycleID        uuid.UUID       `json:"cycle_id"`
	TradesExecuted int             `json:"trades_executed"`
	Trades         []TradeRecord   `json:"trades,omitempty"`
	Errors         []AssetError    `json:"errors,omitempty"`
	Skipped        []SkippedAsset  `json:"skipped,omitempty"`
	NetChange      decimal.Decimal `json:"net_change"`
	NetAssetValue  decimal.Decimal `json:"net_asset_value"`
	Repaired       int             `json:"repaired"`
	Interrupted    bool            `json:"interrupted,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       time.Duration   `json:"duration"`
}

// AddError records a per-asset failure
func (r *ReconcileResult) AddError(assetID string, stage AssetStage, err error) {
	r.Errors = append(r.Errors, AssetError{AssetID: assetID, Stage: stage, Message: err.Error()})
}

// FundRunResult is one fund's entry in a batch run
type FundRunResult struct {
	Result  *ReconcileResult `json:"result,omitempty"`
	Skipped bool             `json:"skipped,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// BatchResult maps fund ID to that fund's outcome
type BatchResult map[uuid.UUID]FundRunResult

// RepairDetail describes the fixes applied to one position
type RepairDetail struct {
	PositionID uuid.UUID `json:"position_id"`
	FundID     uuid.UUID `json:"fund_id"`
	AssetID    string    `json:"asset_id"`
	Fixes      []string  `json:"fixes"`
}

// RepairResult is returned by the corruption repair utility
type RepairResult struct {
	FixedCount int            `json:"fixed_count"`
	Details    []RepairDetail `json:"details"`
}
