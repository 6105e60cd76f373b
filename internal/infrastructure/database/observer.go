package database

import (
	"time"

	"go.uber.org/zap"

	"github.com/fund-service/fund_service/pkg/metrics"
)

// QueryObserver records query latency and flags slow queries
type QueryObserver struct {
	logger    *zap.Logger
	threshold time.Duration
}

func NewQueryObserver(logger *zap.Logger, threshold time.Duration) *QueryObserver {
	return &QueryObserver{logger: logger, threshold: threshold}
}

// Observe is deferred by repository methods with the query's start time
func (qo *QueryObserver) Observe(operation, table string, start time.Time) {
	duration := time.Since(start)
	metrics.RecordDatabaseQuery(operation, table, duration.Seconds())

	if qo.threshold > 0 && duration > qo.threshold {
		qo.logger.Warn("Slow query detected",
			zap.String("operation", operation),
			zap.String("table", table),
			zap.Duration("duration", duration),
			zap.Duration("threshold", qo.threshold),
		)
	}
}
