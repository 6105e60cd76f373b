package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/domain/entities"
)

// RepairCorrupted clamps positions that violate the ledger's invariants and
// returns what it fixed. Positions are updated in place. Running it again on
// its own output fixes nothing.
func (s *Service) RepairCorrupted(positions []*entities.Position, at time.Time) (entities.RepairResult, []*entities.Position) {
	result := entities.RepairResult{Details: []entities.RepairDetail{}}
	var changed []*entities.Position

	for _, p := range positions {
		var fixes []string

		if p.CurrentAmount.IsNegative() {
			fixes = append(fixes, "current_amount "+p.CurrentAmount.String()+" -> 0")
			p.CurrentAmount = decimal.Zero
		}
		if p.NetAssetValue.IsNegative() {
			fixes = append(fixes, "net_asset_value "+p.NetAssetValue.String()+" -> 0")
			p.NetAssetValue = decimal.Zero
		}
		if p.TotalPnLPercent.LessThan(entities.MinPnLPercent) {
			fixes = append(fixes, "total_pnl_percent "+p.TotalPnLPercent.String()+" -> -100")
			p.TotalPnLPercent = entities.MinPnLPercent
		}
		if p.CurrentAmount.IsZero() {
			if p.Status != entities.PositionStatusFullySold {
				fixes = append(fixes, "status "+string(p.Status)+" -> FULLY_SOLD")
				p.Status = entities.PositionStatusFullySold
			}
			if !p.UnrealizedProfit.IsZero() {
				fixes = append(fixes, "unrealized_profit "+p.UnrealizedProfit.String()+" -> 0")
				p.UnrealizedProfit = decimal.Zero
			}
		}

		if len(fixes) == 0 {
			continue
		}

		p.UpdatedAt = at
		changed = append(changed, p)
		result.FixedCount++
		result.Details = append(result.Details, entities.RepairDetail{
			PositionID: p.ID,
			FundID:     p.FundID,
			AssetID:    p.AssetID,
			Fixes:      fixes,
		})
	}

	return result, changed
}
