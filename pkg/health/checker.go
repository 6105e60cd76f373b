package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded means the service can still reconcile, with reduced capacity
	StatusDegraded Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status    Status                 `json:"status"`
	Component string                 `json:"component"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Checker is an interface for health checkers
type Checker interface {
	Check(ctx context.Context) CheckResult
	Name() string
}

// HealthChecker aggregates multiple health checkers
type HealthChecker struct {
	checkers []Checker
	timeout  time.Duration
}

// NewHealthChecker creates a new health checker. Each registered check is
// bounded by timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HealthChecker{
		checkers: make([]Checker, 0),
		timeout:  timeout,
	}
}

// Register adds a checker to the health checker
func (h *HealthChecker) Register(checker Checker) {
	h.checkers = append(h.checkers, checker)
}

// CheckAll runs all registered health checks in parallel
func (h *HealthChecker) CheckAll(ctx context.Context) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]CheckResult, len(h.checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			result := runWithTimeout(ctx, c)

			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// Check runs all health checks and returns overall status
func (h *HealthChecker) Check(ctx context.Context) (Status, map[string]CheckResult) {
	results := h.CheckAll(ctx)
	return Overall(results), results
}

// Overall folds component results: any unhealthy wins, then any degraded
func Overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// HealthResponse represents the JSON response for health checks
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
}

// NewCheckResult creates a new check result
func NewCheckResult(component string, status Status, message string, err error) CheckResult {
	result := CheckResult{
		Component: component,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		result.Error = err.Error()
		result.Status = StatusUnhealthy
	}

	return result
}

func NewHealthyResult(component, message string) CheckResult {
	return NewCheckResult(component, StatusHealthy, message, nil)
}

func NewUnhealthyResult(component string, err error) CheckResult {
	return NewCheckResult(component, StatusUnhealthy, "", err)
}

func NewDegradedResult(component, message string) CheckResult {
	return NewCheckResult(component, StatusDegraded, message, nil)
}

// WithMetadata adds metadata to a check result
func (r CheckResult) WithMetadata(key string, value interface{}) CheckResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
	return r
}

// WithDuration adds duration to a check result
func (r CheckResult) WithDuration(d time.Duration) CheckResult {
	r.Duration = d
	return r
}

func runWithTimeout(ctx context.Context, c Checker) CheckResult {
	resultChan := make(chan CheckResult, 1)
	go func() {
		resultChan <- c.Check(ctx)
	}()

	select {
	case result := <-resultChan:
		return result
	case <-ctx.Done():
		return NewUnhealthyResult(c.Name(), fmt.Errorf("health check timed out: %w", ctx.Err()))
	}
}
