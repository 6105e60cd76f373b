package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/infrastructure/database"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

const positionColumns = `
	id, fund_id, asset_id, current_amount, total_buy_amount, total_sell_amount,
	total_buy_value, total_sell_value, average_buy_price, average_sell_price,
	last_price, realized_profit, unrealized_profit, net_asset_value,
	total_pnl_percent, allocation_percent, status, created_at, updated_at`

// PositionRepository implements repositories.PositionRepository for PostgreSQL
type PositionRepository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	tracer   trace.Tracer
	observer *database.QueryObserver
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sqlx.DB, observer *database.QueryObserver, logger *zap.Logger) *PositionRepository {
	return &PositionRepository{
		db:       db,
		logger:   logger,
		tracer:   otel.Tracer("position-repository"),
		observer: observer,
	}
}

// Get returns the position for (fundID, assetID)
func (r *PositionRepository) Get(ctx context.Context, fundID uuid.UUID, assetID string) (*entities.Position, error) {
	ctx, span := r.tracer.Start(ctx, "position_repo.get", trace.WithAttributes(
		attribute.String("fund_id", fundID.String()),
		attribute.String("asset_id", assetID),
	))
	defer span.End()
	defer r.observer.Observe("select", "fund_positions", time.Now())

	query := `SELECT ` + positionColumns + ` FROM fund_positions WHERE fund_id = $1 AND asset_id = $2`

	var p entities.Position
	if err := r.db.GetContext(ctx, &p, query, fundID, assetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapNotFound(err, apperrors.CodeNotFound, "position "+assetID+" not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// Upsert writes the position keyed by (fund_id, asset_id)
func (r *PositionRepository) Upsert(ctx context.Context, p *entities.Position) error {
	ctx, span := r.tracer.Start(ctx, "position_repo.upsert", trace.WithAttributes(
		attribute.String("fund_id", p.FundID.String()),
		attribute.String("asset_id", p.AssetID),
		attribute.String("status", string(p.Status)),
	))
	defer span.End()
	defer r.observer.Observe("upsert", "fund_positions", time.Now())

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	query := `
		INSERT INTO fund_positions (` + positionColumns + `) VALUES (
			:id, :fund_id, :asset_id, :current_amount, :total_buy_amount, :total_sell_amount,
			:total_buy_value, :total_sell_value, :average_buy_price, :average_sell_price,
			:last_price, :realized_profit, :unrealized_profit, :net_asset_value,
			:total_pnl_percent, :allocation_percent, :status, :created_at, :updated_at
		)
		ON CONFLICT (fund_id, asset_id) DO UPDATE SET
			current_amount     = EXCLUDED.current_amount,
			total_buy_amount   = EXCLUDED.total_buy_amount,
			total_sell_amount  = EXCLUDED.total_sell_amount,
			total_buy_value    = EXCLUDED.total_buy_value,
			total_sell_value   = EXCLUDED.total_sell_value,
			average_buy_price  = EXCLUDED.average_buy_price,
			average_sell_price = EXCLUDED.average_sell_price,
			last_price         = EXCLUDED.last_price,
			realized_profit    = EXCLUDED.realized_profit,
			unrealized_profit  = EXCLUDED.unrealized_profit,
			net_asset_value    = EXCLUDED.net_asset_value,
			total_pnl_percent  = EXCLUDED.total_pnl_percent,
			allocation_percent = EXCLUDED.allocation_percent,
			status             = EXCLUDED.status,
			updated_at         = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		span.RecordError(err)
		r.logger.Error("Failed to upsert position",
			zap.Error(err),
			zap.String("fund_id", p.FundID.String()),
			zap.String("asset_id", p.AssetID),
		)
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (r *PositionRepository) list(ctx context.Context, spanName, where string, args ...interface{}) ([]*entities.Position, error) {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()
	defer r.observer.Observe("select", "fund_positions", time.Now())

	query := `SELECT ` + positionColumns + ` FROM fund_positions WHERE ` + where + ` ORDER BY created_at ASC, asset_id ASC`

	positions := []*entities.Position{}
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	span.SetAttributes(attribute.Int("count", len(positions)))
	return positions, nil
}

// ListOpenPositions returns the fund's HOLD positions
func (r *PositionRepository) ListOpenPositions(ctx context.Context, fundID uuid.UUID) ([]*entities.Position, error) {
	return r.list(ctx, "position_repo.list_open", "fund_id = $1 AND status = $2", fundID, entities.PositionStatusHold)
}

// ListAll returns every position of the fund
func (r *PositionRepository) ListAll(ctx context.Context, fundID uuid.UUID) ([]*entities.Position, error) {
	return r.list(ctx, "position_repo.list_all", "fund_id = $1", fundID)
}

// ListByStatus returns the fund's positions in status
func (r *PositionRepository) ListByStatus(ctx context.Context, fundID uuid.UUID, status entities.PositionStatus) ([]*entities.Position, error) {
	return r.list(ctx, "position_repo.list_by_status", "fund_id = $1 AND status = $2", fundID, status)
}
