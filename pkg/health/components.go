package health

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerChecker reports the breaker guarding an upstream collaborator
type CircuitBreakerChecker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

func NewCircuitBreakerChecker(name string, breaker *gobreaker.CircuitBreaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{name: name, breaker: breaker}
}

// Check maps breaker state onto health: open is unhealthy, half-open degraded
func (c *CircuitBreakerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	state := c.breaker.State()
	counts := c.breaker.Counts()

	var result CheckResult
	switch state {
	case gobreaker.StateClosed:
		result = NewHealthyResult(c.name, "circuit closed")
	case gobreaker.StateHalfOpen:
		result = NewDegradedResult(c.name, "circuit half-open")
	default:
		result = NewCheckResult(c.name, StatusUnhealthy, "circuit open", nil)
	}

	return result.
		WithDuration(time.Since(start)).
		WithMetadata("circuit_state", state.String()).
		WithMetadata("requests", counts.Requests).
		WithMetadata("consecutive_failures", counts.ConsecutiveFailures)
}

func (c *CircuitBreakerChecker) Name() string {
	return c.name
}

// WorkerChecker checks background worker health
type WorkerChecker struct {
	name      string
	isRunning func() bool
	getStatus func() map[string]interface{}
}

func NewWorkerChecker(name string, isRunning func() bool, getStatus func() map[string]interface{}) *WorkerChecker {
	return &WorkerChecker{
		name:      name,
		isRunning: isRunning,
		getStatus: getStatus,
	}
}

// Check performs the worker health check
func (c *WorkerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	var result CheckResult
	if c.isRunning() {
		result = NewHealthyResult(c.name, "worker running")
	} else {
		result = NewCheckResult(c.name, StatusUnhealthy, "worker not running", nil)
	}

	result = result.WithDuration(time.Since(start))
	if c.getStatus != nil {
		for k, v := range c.getStatus() {
			result = result.WithMetadata(k, v)
		}
	}
	return result
}

func (c *WorkerChecker) Name() string {
	return c.name
}
