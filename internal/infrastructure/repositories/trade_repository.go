package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/infrastructure/database"
	pgquery "github.com/fund-service/fund_service/pkg/database"
)

// TradeRepository is the append-only trade log in PostgreSQL
type TradeRepository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	tracer   trace.Tracer
	observer *database.QueryObserver
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sqlx.DB, observer *database.QueryObserver, logger *zap.Logger) *TradeRepository {
	return &TradeRepository{
		db:       db,
		logger:   logger,
		tracer:   otel.Tracer("trade-repository"),
		observer: observer,
	}
}

// Create appends a settled trade
func (r *TradeRepository) Create(ctx context.Context, t *entities.TradeRecord) error {
	ctx, span := r.tracer.Start(ctx, "trade_repo.create", trace.WithAttributes(
		attribute.String("fund_id", t.FundID.String()),
		attribute.String("asset_id", t.AssetID),
		attribute.String("side", string(t.Side)),
	))
	defer span.End()
	defer r.observer.Observe("insert", "fund_trades", time.Now())

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO fund_trades (
			id, fund_id, asset_id, side, asset_amount, base_amount, execution_price,
			requested_amount, external_tx_ref, rationale, settlement_warning, created_at
		) VALUES (
			:id, :fund_id, :asset_id, :side, :asset_amount, :base_amount, :execution_price,
			:requested_amount, :external_tx_ref, :rationale, :settlement_warning, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		span.RecordError(err)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("trade %s already recorded: %w", t.ExternalTxRef, err)
		}
		r.logger.Error("Failed to record trade",
			zap.Error(err),
			zap.String("fund_id", t.FundID.String()),
			zap.String("tx_ref", t.ExternalTxRef),
		)
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// ListByFund returns the fund's trades, newest first
func (r *TradeRepository) ListByFund(ctx context.Context, fundID uuid.UUID, limit, offset int) ([]*entities.TradeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "trade_repo.list_by_fund", trace.WithAttributes(
		attribute.String("fund_id", fundID.String()),
	))
	defer span.End()
	defer r.observer.Observe("select", "fund_trades", time.Now())

	query := `
		SELECT id, fund_id, asset_id, side, asset_amount, base_amount, execution_price,
		       requested_amount, external_tx_ref, rationale, settlement_warning, created_at
		FROM fund_trades
		WHERE fund_id = $1
		ORDER BY created_at DESC` + pgquery.BuildPaginationClause(limit, offset)

	trades := []*entities.TradeRecord{}
	if err := r.db.SelectContext(ctx, &trades, query, fundID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}
