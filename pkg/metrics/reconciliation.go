package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "fund"
	subsystem = "reconciliation"
)

// Reconciliation metrics shared by the reconciler, executor and scheduler
var (
	ReconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Total number of fund reconciliation cycles",
		},
		[]string{"trigger", "status"},
	)

	ReconciliationRunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_in_progress",
			Help:      "Number of fund reconciliation cycles currently running",
		},
	)

	ReconciliationRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of a single fund reconciliation cycle in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	ReconciliationFundsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "funds_skipped_total",
			Help:      "Funds skipped by a batch run",
		},
		[]string{"reason"},
	)

	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "trades_total",
			Help:      "Trades attempted, by side and outcome",
		},
		[]string{"side", "outcome"},
	)

	AssetsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assets_skipped_total",
			Help:      "Assets that produced no trade, by reason",
		},
		[]string{"reason"},
	)

	SettlementPollAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settlement_poll_attempts",
			Help:      "Settlement polls needed per submitted swap",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"outcome"},
	)

	SettlementWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settlement_warnings_total",
			Help:      "Settled trades whose actual amounts looked suspicious",
		},
		[]string{"kind"},
	)

	PositionsRepairedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "positions_repaired_total",
			Help:      "Positions auto-corrected by the repair passes",
		},
		[]string{"pass"},
	)

	NegativeBalanceTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "negative_balance_total",
			Help:      "Cycles that left a fund with a negative liquid balance",
		},
	)
)

// RecordRun records the outcome of one fund cycle
func RecordRun(trigger, status string, seconds float64) {
	ReconciliationRunsTotal.WithLabelValues(trigger, status).Inc()
	ReconciliationRunDuration.WithLabelValues(status).Observe(seconds)
}

// RecordTrade records one trade attempt
func RecordTrade(side, outcome string) {
	TradesTotal.WithLabelValues(side, outcome).Inc()
}

// RecordAssetSkipped records an asset the differ left alone
func RecordAssetSkipped(reason string) {
	AssetsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordSettlementPolls records how many polls a swap needed
func RecordSettlementPolls(outcome string, attempts int) {
	SettlementPollAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}

// RecordSettlementWarning records a suspicious settlement
func RecordSettlementWarning(kind string) {
	SettlementWarningsTotal.WithLabelValues(kind).Inc()
}

// RecordRepairs records positions fixed by a repair pass
func RecordRepairs(pass string, count int) {
	if count > 0 {
		PositionsRepairedTotal.WithLabelValues(pass).Add(float64(count))
	}
}
