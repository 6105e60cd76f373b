package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fund-service/fund_service/internal/domain/entities"
)

// RevalueResult lists the positions a revalue pass changed
type RevalueResult struct {
	Updated      []*entities.Position
	ForcedClosed int
	MissingPrice []string
}

// Revalue marks every HOLD position in positions against prices. Positions
// are updated in place. Positions without a price are left untouched.
func (s *Service) Revalue(positions []*entities.Position, prices map[string]decimal.Decimal, at time.Time) RevalueResult {
	var result RevalueResult

	for _, p := range positions {
		if p.Status != entities.PositionStatusHold {
			continue
		}

		if !p.CurrentAmount.IsPositive() {
			s.forceClose(p, at)
			result.ForcedClosed++
			result.Updated = append(result.Updated, p)
			if s.logger != nil {
				s.logger.Warnw("Forced empty position to FULLY_SOLD during revalue",
					"fund_id", p.FundID.String(),
					"asset_id", p.AssetID)
			}
			continue
		}

		price, ok := prices[p.AssetID]
		if !ok || !price.IsPositive() {
			result.MissingPrice = append(result.MissingPrice, p.AssetID)
			continue
		}

		p.LastPrice = price
		p.UnrealizedProfit = price.Sub(p.AverageBuyPrice).Mul(p.CurrentAmount)
		p.NetAssetValue = p.CurrentAmount.Mul(price)
		p.TotalPnLPercent = s.PnLPercent(p.NetAssetValue, p.TotalBuyValue, p.TotalSellValue)
		p.UpdatedAt = at

		if s.IsDust(p.CurrentAmount) || p.AllocationPercent.IsZero() {
			if !s.IsDust(p.CurrentAmount) && s.logger != nil {
				s.logger.Warnw("Marking position FULLY_SOLD on zero allocation with quantity held",
					"fund_id", p.FundID.String(),
					"asset_id", p.AssetID,
					"current_amount", p.CurrentAmount.String())
			}
			p.Status = entities.PositionStatusFullySold
		}

		result.Updated = append(result.Updated, p)
	}

	return result
}

func (s *Service) forceClose(p *entities.Position, at time.Time) {
	p.CurrentAmount = decimal.Zero
	p.NetAssetValue = decimal.Zero
	p.UnrealizedProfit = decimal.Zero
	p.TotalPnLPercent = ClosedPnLPercent(p.TotalBuyValue, p.TotalSellValue)
	p.Status = entities.PositionStatusFullySold
	p.UpdatedAt = at
}

// RepairFullySold recomputes the return of every FULLY_SOLD position strictly
// from lifetime buy and sell value. It returns the positions whose value changed.
func (s *Service) RepairFullySold(positions []*entities.Position, at time.Time) []*entities.Position {
	var changed []*entities.Position
	for _, p := range positions {
		if p.Status != entities.PositionStatusFullySold {
			continue
		}
		pct := ClosedPnLPercent(p.TotalBuyValue, p.TotalSellValue)
		if pct.Equal(p.TotalPnLPercent) {
			continue
		}
		p.TotalPnLPercent = pct
		p.UpdatedAt = at
		changed = append(changed, p)
	}
	return changed
}
