package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDiffer(t *testing.T) *Differ {
	return NewDiffer(Config{MinTradeValue: dec("0.01")}, logger.NewLogger(zaptest.NewLogger(t)))
}

func heldPosition(amount string) *entities.Position {
	p := entities.NewPosition(uuid.New(), "asset")
	p.CurrentAmount = dec(amount)
	return p
}

func rec(action entities.RecommendationAction, pct string) entities.Recommendation {
	return entities.Recommendation{AssetID: "asset", Action: action, TargetAllocationPercent: dec(pct), Rationale: "momentum"}
}

func TestDiff_BuyHalfOfFreshFund(t *testing.T) {
	d := newTestDiffer(t)

	result := d.Diff(Input{
		Recommendation:   rec(entities.ActionBuy, "50"),
		Price:            dec("1"),
		FundNAV:          dec("10"),
		AvailableBalance: dec("10"),
	})

	require.True(t, result.HasTrade())
	assert.Equal(t, entities.TradeSideBuy, result.Intent.Side)
	assert.True(t, dec("5").Equal(result.Intent.BaseAmount), "got %s", result.Intent.BaseAmount)
	assert.True(t, dec("5").Equal(result.Intent.AssetAmount))
	assert.Equal(t, "momentum", result.Intent.Rationale)
	assert.True(t, dec("5").Equal(result.Intent.RequestedAmount()))
}

func TestDiff_BuyTopsUpExistingPosition(t *testing.T) {
	d := newTestDiffer(t)

	result := d.Diff(Input{
		Recommendation:   rec(entities.ActionBuy, "50"),
		Position:         heldPosition("2"),
		Price:            dec("1.5"),
		FundNAV:          dec("10"),
		AvailableBalance: dec("7"),
	})

	require.True(t, result.HasTrade())
	assert.True(t, dec("2").Equal(result.Intent.BaseAmount), "got %s", result.Intent.BaseAmount)
}

func TestDiff_BuySkips(t *testing.T) {
	d := newTestDiffer(t)

	tests := []struct {
		name   string
		in     Input
		reason entities.NoTradeReason
	}{
		{
			name: "already above target",
			in: Input{Recommendation: rec(entities.ActionBuy, "10"), Position: heldPosition("5"),
				Price: dec("1"), FundNAV: dec("10"), AvailableBalance: dec("10")},
			reason: entities.NoTradeAtOrAboveTarget,
		},
		{
			name: "below minimum trade",
			in: Input{Recommendation: rec(entities.ActionBuy, "10"), Position: heldPosition("0.995"),
				Price: dec("1"), FundNAV: dec("10"), AvailableBalance: dec("10")},
			reason: entities.NoTradeBelowMinimum,
		},
		{
			name: "insufficient balance",
			in: Input{Recommendation: rec(entities.ActionBuy, "50"),
				Price: dec("1"), FundNAV: dec("10"), AvailableBalance: dec("4.99")},
			reason: entities.NoTradeInsufficientBalance,
		},
		{
			name: "no price",
			in: Input{Recommendation: rec(entities.ActionBuy, "50"),
				Price: decimal.Zero, FundNAV: dec("10"), AvailableBalance: dec("10")},
			reason: entities.NoTradeMissingPrice,
		},
		{
			name: "hold",
			in: Input{Recommendation: rec(entities.ActionHold, "50"), Position: heldPosition("1"),
				Price: dec("1"), FundNAV: dec("10"), AvailableBalance: dec("10")},
			reason: entities.NoTradeHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Diff(tt.in)
			assert.False(t, result.HasTrade())
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestDiff_SellZeroTargetExitsFully(t *testing.T) {
	d := newTestDiffer(t)

	result := d.Diff(Input{
		Recommendation: rec(entities.ActionSell, "0"),
		Position:       heldPosition("100"),
		Price:          dec("0.5"),
		FundNAV:        dec("60"),
	})

	require.True(t, result.HasTrade())
	assert.Equal(t, entities.TradeSideSell, result.Intent.Side)
	assert.True(t, result.Intent.FullExit)
	assert.True(t, dec("100").Equal(result.Intent.AssetAmount))
	assert.True(t, dec("100").Equal(result.Intent.RequestedAmount()))
}

func TestDiff_FullExitBelowMinimumIsNoop(t *testing.T) {
	d := newTestDiffer(t)

	// 0.004 units at 2 is worth 0.008, under the 0.01 minimum
	result := d.Diff(Input{
		Recommendation: rec(entities.ActionSell, "0"),
		Position:       heldPosition("0.004"),
		Price:          dec("2"),
		FundNAV:        dec("10"),
	})

	assert.False(t, result.HasTrade())
	assert.Equal(t, entities.NoTradeBelowMinimum, result.Reason)

	result = d.Diff(Input{
		Recommendation: rec(entities.ActionSell, "0"),
		Position:       heldPosition("0.005"),
		Price:          dec("2"),
		FundNAV:        dec("10"),
	})
	require.True(t, result.HasTrade())
	assert.True(t, result.Intent.FullExit)
	assert.True(t, dec("0.005").Equal(result.Intent.AssetAmount))
}

func TestDiff_SellPartialDownToTarget(t *testing.T) {
	d := newTestDiffer(t)

	result := d.Diff(Input{
		Recommendation: rec(entities.ActionSell, "20"),
		Position:       heldPosition("10"),
		Price:          dec("2"),
		FundNAV:        dec("50"),
	})

	// current 20, target 10, sell 5 units
	require.True(t, result.HasTrade())
	assert.False(t, result.Intent.FullExit)
	assert.True(t, dec("5").Equal(result.Intent.AssetAmount), "got %s", result.Intent.AssetAmount)
	assert.True(t, dec("10").Equal(result.Intent.BaseAmount))
}

func TestDiff_SellNeverExceedsPosition(t *testing.T) {
	d := newTestDiffer(t)

	for _, pct := range []string{"0", "1", "5", "25", "49.99"} {
		pos := heldPosition("3.3")
		result := d.Diff(Input{
			Recommendation: rec(entities.ActionSell, pct),
			Position:       pos,
			Price:          dec("7"),
			FundNAV:        dec("23.1"),
		})
		if result.HasTrade() {
			assert.True(t, result.Intent.AssetAmount.LessThanOrEqual(pos.CurrentAmount), "pct %s sold %s", pct, result.Intent.AssetAmount)
		}
	}
}

func TestDiff_SellClampsWhenNAVUnderstatesHolding(t *testing.T) {
	d := newTestDiffer(t)

	// a negative target value from a stale NAV would oversell without the guard
	result := d.Diff(Input{
		Recommendation: rec(entities.ActionSell, "10"),
		Position:       heldPosition("4"),
		Price:          dec("1"),
		FundNAV:        dec("-100"),
	})

	require.True(t, result.HasTrade())
	assert.True(t, result.Intent.Clamped)
	assert.True(t, dec("4").Equal(result.Intent.AssetAmount))
}

func TestDiff_SellSkips(t *testing.T) {
	d := newTestDiffer(t)

	result := d.Diff(Input{Recommendation: rec(entities.ActionSell, "0"), Price: dec("1"), FundNAV: dec("10")})
	assert.Equal(t, entities.NoTradeNoPosition, result.Reason)

	result = d.Diff(Input{Recommendation: rec(entities.ActionSell, "0"), Position: heldPosition("0"), Price: dec("1"), FundNAV: dec("10")})
	assert.Equal(t, entities.NoTradeNoPosition, result.Reason)

	result = d.Diff(Input{Recommendation: rec(entities.ActionSell, "50"), Position: heldPosition("2"), Price: dec("1"), FundNAV: dec("10")})
	assert.Equal(t, entities.NoTradeAtOrBelowTarget, result.Reason)

	result = d.Diff(Input{Recommendation: rec(entities.ActionSell, "19.99"), Position: heldPosition("2"), Price: dec("1"), FundNAV: dec("10")})
	assert.Equal(t, entities.NoTradeBelowMinimum, result.Reason)
}
