package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config controls when an upstream dependency is cut off
type Config struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

func DefaultConfig() Config {
	return Config{
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// New builds a breaker that trips once MinRequests have been seen and the
// failure ratio reaches FailureRatio. State changes are logged when log is set.
func New(name string, cfg Config, log *zap.Logger) *gobreaker.CircuitBreaker {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.6
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
	}
	if log != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// IsOpen reports whether calls through cb are currently rejected
func IsOpen(cb *gobreaker.CircuitBreaker) bool {
	return cb.State() == gobreaker.StateOpen
}
