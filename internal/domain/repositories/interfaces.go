package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/fund-service/fund_service/internal/domain/entities"
)

// PositionRepository defines durable per-fund, per-asset position storage.
// Get returns entities.ErrPositionNotFound when no row exists.
type PositionRepository interface {
	Get(ctx context.Context, fundID uuid.UUID, assetID string) (*entities.Position, error)
	Upsert(ctx context.Context, position *entities.Position) error
	ListOpenPositions(ctx context.Context, fundID uuid.UUID) ([]*entities.Position, error)
	ListAll(ctx context.Context, fundID uuid.UUID) ([]*entities.Position, error)
	ListByStatus(ctx context.Context, fundID uuid.UUID, status entities.PositionStatus) ([]*entities.Position, error)
}

// TradeRepository defines the append-only trade record log
type TradeRepository interface {
	Create(ctx context.Context, trade *entities.TradeRecord) error
	ListByFund(ctx context.Context, fundID uuid.UUID, limit, offset int) ([]*entities.TradeRecord, error)
}

// FundRepository defines fund aggregate persistence.
// GetByID returns entities.ErrFundNotFound when no row exists.
type FundRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Fund, error)
	ListActive(ctx context.Context) ([]*entities.Fund, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ApplyCycleUpdate(ctx context.Context, update *entities.FundUpdate) error
	ListHistory(ctx context.Context, fundID uuid.UUID, limit int) ([]*entities.PnLHistoryEntry, error)
}
