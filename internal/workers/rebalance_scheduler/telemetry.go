package rebalance_scheduler

import (
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "rebalance-scheduler"
	meterName  = "rebalance-scheduler"

	metricBatchesTotal   = "rebalance_scheduler_batches_total"
	metricBatchDuration  = "rebalance_scheduler_batch_duration_seconds"
	metricFundsProcessed = "rebalance_scheduler_funds_processed_total"
	metricFundErrors     = "rebalance_scheduler_fund_errors_total"
	metricActiveFunds    = "rebalance_scheduler_active_funds"
	metricLastRunTime    = "rebalance_scheduler_last_run_timestamp"
)

// SchedulerMetrics contains the scheduler's otel instruments
type SchedulerMetrics struct {
	BatchesTotal   metric.Int64Counter
	BatchDuration  metric.Float64Histogram
	FundsProcessed metric.Int64Counter
	FundErrors     metric.Int64Counter
	ActiveFunds    metric.Int64UpDownCounter
	LastRunTime    metric.Float64Gauge
}

func initSchedulerMetrics(meter metric.Meter) (*SchedulerMetrics, error) {
	batchesTotal, err := meter.Int64Counter(metricBatchesTotal,
		metric.WithDescription("Total number of reconciliation batches run"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(metricBatchDuration,
		metric.WithDescription("Duration of a reconciliation batch"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	fundsProcessed, err := meter.Int64Counter(metricFundsProcessed,
		metric.WithDescription("Funds handled by reconciliation batches, by outcome"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	fundErrors, err := meter.Int64Counter(metricFundErrors,
		metric.WithDescription("Fund reconciliations that failed"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	activeFunds, err := meter.Int64UpDownCounter(metricActiveFunds,
		metric.WithDescription("Funds currently being reconciled"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	lastRunTime, err := meter.Float64Gauge(metricLastRunTime,
		metric.WithDescription("Timestamp of the last batch run"))
	if err != nil {
		return nil, err
	}

	return &SchedulerMetrics{
		BatchesTotal:   batchesTotal,
		BatchDuration:  batchDuration,
		FundsProcessed: fundsProcessed,
		FundErrors:     fundErrors,
		ActiveFunds:    activeFunds,
		LastRunTime:    lastRunTime,
	}, nil
}
