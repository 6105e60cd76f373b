package health

import (
	"context"
	"database/sql"
	"time"
)

// DatabaseChecker checks database connectivity and reports how many funds
// the next batch would consider
type DatabaseChecker struct {
	db      *sql.DB
	timeout time.Duration
}

func NewDatabaseChecker(db *sql.DB, timeout time.Duration) *DatabaseChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &DatabaseChecker{
		db:      db,
		timeout: timeout,
	}
}

// Check performs the database health check
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return NewUnhealthyResult(c.Name(), err).WithDuration(time.Since(start))
	}

	var activeFunds int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funds WHERE status = 'active'`).Scan(&activeFunds); err != nil {
		return NewUnhealthyResult(c.Name(), err).WithDuration(time.Since(start))
	}

	stats := c.db.Stats()

	result := NewHealthyResult(c.Name(), "connected").
		WithDuration(time.Since(start)).
		WithMetadata("active_funds", activeFunds).
		WithMetadata("open_connections", stats.OpenConnections).
		WithMetadata("in_use", stats.InUse).
		WithMetadata("idle", stats.Idle)

	// a saturated pool slows every fund in the batch
	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		result = result.WithMetadata("pool_utilization", utilization)
		if utilization > 0.8 {
			result.Status = StatusDegraded
			result.Message = "high connection pool utilization"
		}
	}

	return result
}

func (c *DatabaseChecker) Name() string {
	return "database"
}
