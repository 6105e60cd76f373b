package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/pkg/metrics"
)

// RepairCorruptedPositions clamps invalid positions for one fund, or for
// every fund when fundID is nil. It is safe to run repeatedly.
func (s *Service) RepairCorruptedPositions(ctx context.Context, fundID *uuid.UUID) (entities.RepairResult, error) {
	total := entities.RepairResult{Details: []entities.RepairDetail{}}

	var fundIDs []uuid.UUID
	if fundID != nil {
		fundIDs = []uuid.UUID{*fundID}
	} else {
		ids, err := s.funds.ListIDs(ctx)
		if err != nil {
			return total, fmt.Errorf("list funds: %w", err)
		}
		fundIDs = ids
	}

	for _, id := range fundIDs {
		result, err := s.repairFund(ctx, id)
		if err != nil {
			return total, err
		}
		total.FixedCount += result.FixedCount
		total.Details = append(total.Details, result.Details...)
	}

	if total.FixedCount > 0 {
		s.logger.Warnw("Repaired corrupted positions",
			"funds", len(fundIDs),
			"fixed_count", total.FixedCount)
	}
	return total, nil
}

func (s *Service) repairFund(ctx context.Context, fundID uuid.UUID) (entities.RepairResult, error) {
	positions, err := s.positions.ListAll(ctx, fundID)
	if err != nil {
		return entities.RepairResult{}, fmt.Errorf("list positions for fund %s: %w", fundID, err)
	}

	result, changed := s.ledger.RepairCorrupted(positions, s.now())
	for _, p := range changed {
		if err := s.positions.Upsert(ctx, p); err != nil {
			return result, fmt.Errorf("persist repaired position %s/%s: %w", fundID, p.AssetID, err)
		}
	}
	metrics.RecordRepairs("corruption", result.FixedCount)
	return result, nil
}
