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
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fund-service/fund_service/internal/domain/entities"
	"github.com/fund-service/fund_service/internal/infrastructure/database"
	pgquery "github.com/fund-service/fund_service/pkg/database"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

const fundColumns = `
	id, name, mode, status, base_asset_id, initial_fund_amount, base_currency_balance,
	net_asset_value, realized_profit, unrealized_profit, total_pnl_percent,
	last_reconciled_at, created_at, updated_at`

// FundRepository implements repositories.FundRepository for PostgreSQL
type FundRepository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	tracer   trace.Tracer
	observer *database.QueryObserver
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *sqlx.DB, observer *database.QueryObserver, logger *zap.Logger) *FundRepository {
	return &FundRepository{
		db:       db,
		logger:   logger,
		tracer:   otel.Tracer("fund-repository"),
		observer: observer,
	}
}

// GetByID retrieves a fund by ID
func (r *FundRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Fund, error) {
	ctx, span := r.tracer.Start(ctx, "fund_repo.get", trace.WithAttributes(
		attribute.String("fund_id", id.String()),
	))
	defer span.End()
	defer r.observer.Observe("select", "funds", time.Now())

	var f entities.Fund
	if err := r.db.GetContext(ctx, &f, `SELECT `+fundColumns+` FROM funds WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapNotFound(err, apperrors.CodeFundNotFound, "fund "+id.String()+" not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}
	return &f, nil
}

// ListActive returns every active fund
func (r *FundRepository) ListActive(ctx context.Context) ([]*entities.Fund, error) {
	ctx, span := r.tracer.Start(ctx, "fund_repo.list_active")
	defer span.End()
	defer r.observer.Observe("select", "funds", time.Now())

	funds := []*entities.Fund{}
	query := `SELECT ` + fundColumns + ` FROM funds WHERE status = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &funds, query, entities.FundStatusActive); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list active funds: %w", err)
	}
	return funds, nil
}

// ListIDs returns the IDs of all funds
func (r *FundRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	ctx, span := r.tracer.Start(ctx, "fund_repo.list_ids")
	defer span.End()
	defer r.observer.Observe("select", "funds", time.Now())

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM funds ORDER BY created_at ASC`); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list fund ids: %w", err)
	}
	return ids, nil
}

// ApplyCycleUpdate writes a reconciliation cycle's aggregate in one
// transaction: the balance is incremented by the cycle's net change and one
// history row is appended.
func (r *FundRepository) ApplyCycleUpdate(ctx context.Context, u *entities.FundUpdate) error {
	ctx, span := r.tracer.Start(ctx, "fund_repo.apply_cycle_update", trace.WithAttributes(
		attribute.String("fund_id", u.FundID.String()),
		attribute.String("balance_delta", u.BalanceDelta.String()),
	))
	defer span.End()
	defer r.observer.Observe("update", "funds", time.Now())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE funds SET
			base_currency_balance = base_currency_balance + $2,
			net_asset_value       = $3,
			realized_profit       = $4,
			unrealized_profit     = $5,
			total_pnl_percent     = $6,
			last_reconciled_at    = $7,
			updated_at            = $7
		WHERE id = $1`,
		u.FundID, u.BalanceDelta, u.NetAssetValue, u.RealizedProfit,
		u.UnrealizedProfit, u.TotalPnLPercent, u.ReconciledAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to update fund: %w", err)
	}

	var n int64
	n, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		err = entities.ErrFundNotFound
		return err
	}

	history := u.History
	if history.ID == uuid.Nil {
		history.ID = uuid.New()
	}
	history.FundID = u.FundID
	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO fund_pnl_history (id, fund_id, value, recorded_at)
		VALUES (:id, :fund_id, :value, :recorded_at)`, history); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append pnl history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit fund update: %w", err)
	}

	r.logger.Debug("Fund cycle update applied",
		zap.String("fund_id", u.FundID.String()),
		zap.String("balance_delta", u.BalanceDelta.String()),
		zap.String("net_asset_value", u.NetAssetValue.String()),
	)
	return nil
}

// ListHistory returns up to limit most recent history entries, newest first
func (r *FundRepository) ListHistory(ctx context.Context, fundID uuid.UUID, limit int) ([]*entities.PnLHistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "fund_repo.list_history", trace.WithAttributes(
		attribute.String("fund_id", fundID.String()),
	))
	defer span.End()
	defer r.observer.Observe("select", "fund_pnl_history", time.Now())

	query := `
		SELECT id, fund_id, value, recorded_at
		FROM fund_pnl_history
		WHERE fund_id = $1
		ORDER BY recorded_at DESC` + pgquery.BuildPaginationClause(limit, 0)

	entries := []*entities.PnLHistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, fundID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list pnl history: %w", err)
	}
	return entries, nil
}
