package rebalance_scheduler

import (
	"time"

	"github.com/fund-service/fund_service/internal/domain/entities"
)

// EligibilityPolicy decides which funds a batch run picks up. Real funds are
// eligible while active. Simulated funds are eligible only for
// SimulatedWindow after creation; a zero window means no limit.
type EligibilityPolicy struct {
	SimulatedWindow time.Duration
}

// Eligible reports whether fund should be reconciled at now
func (p EligibilityPolicy) Eligible(fund *entities.Fund, now time.Time) bool {
	if fund == nil || !fund.IsActive() {
		return false
	}

	switch fund.Mode {
	case entities.FundModeReal:
		return true
	case entities.FundModeSimulated:
		if p.SimulatedWindow <= 0 {
			return true
		}
		return now.Before(fund.CreatedAt.Add(p.SimulatedWindow))
	default:
		return false
	}
}
