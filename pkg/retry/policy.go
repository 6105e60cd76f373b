package retry

import (
	"errors"
	"time"
)

var (
	// ErrMaxRetriesExceeded is returned when max retries are exceeded
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrInvalidMaxRetries is returned when max retries is negative
	ErrInvalidMaxRetries = errors.New("max retries must be non-negative")

	// ErrInvalidInitialBackoff is returned when initial backoff is negative
	ErrInvalidInitialBackoff = errors.New("initial backoff must be non-negative")

	// ErrInvalidMaxBackoff is returned when max backoff is less than initial
	ErrInvalidMaxBackoff = errors.New("max backoff must be greater than initial backoff")

	// ErrInvalidMultiplier is returned when multiplier is less than 1
	ErrInvalidMultiplier = errors.New("multiplier must be at least 1.0")

	// ErrInvalidJitter is returned when jitter is out of range
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")
)

// Policy defines retry behavior. MaxRetries counts retries after the first
// attempt, so a policy with MaxRetries 9 makes at most 10 calls.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	RetryableFunc  func(error) bool
}

// Predefined retry policies
var (
	// PolicyDefault is the default retry policy
	PolicyDefault = Policy{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}

	// PolicyDatabaseTransient is for transient database errors
	PolicyDatabaseTransient = Policy{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}

	// PolicyExternalAPI is for HTTP calls to the oracle and allocation source
	PolicyExternalAPI = Policy{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}

	// PolicySwapSubmit resubmits a swap once, immediately, on a transient gateway error
	PolicySwapSubmit = Policy{
		MaxRetries:     1,
		InitialBackoff: 0,
		Multiplier:     1.0,
	}

	// PolicySettlementPoll checks settlement 10 times, 5 seconds apart
	PolicySettlementPoll = Policy{
		MaxRetries:     9,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     1.0,
	}

	// PolicyNoRetry disables retries
	PolicyNoRetry = Policy{
		MaxRetries: 0,
		Multiplier: 1.0,
	}
)

// MaxAttempts is the total number of calls the policy allows
func (p Policy) MaxAttempts() int {
	return p.MaxRetries + 1
}

// WithMaxRetries creates a new policy with custom max retries
func (p Policy) WithMaxRetries(maxRetries int) Policy {
	p.MaxRetries = maxRetries
	return p
}

// WithInitialBackoff creates a new policy with custom initial backoff
func (p Policy) WithInitialBackoff(duration time.Duration) Policy {
	p.InitialBackoff = duration
	return p
}

// WithMaxBackoff creates a new policy with custom max backoff
func (p Policy) WithMaxBackoff(duration time.Duration) Policy {
	p.MaxBackoff = duration
	return p
}

// WithFixedInterval makes every wait equal to d
func (p Policy) WithFixedInterval(d time.Duration) Policy {
	p.InitialBackoff = d
	p.MaxBackoff = d
	p.Multiplier = 1.0
	p.Jitter = 0
	return p
}

// WithRetryableFunc creates a new policy with custom retryable function
func (p Policy) WithRetryableFunc(fn func(error) bool) Policy {
	p.RetryableFunc = fn
	return p
}

// Validate checks if the policy is valid
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if p.InitialBackoff < 0 {
		return ErrInvalidInitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff && p.MaxBackoff != 0 {
		return ErrInvalidMaxBackoff
	}
	if p.Multiplier < 1.0 {
		return ErrInvalidMultiplier
	}
	if p.Jitter < 0 || p.Jitter > 1.0 {
		return ErrInvalidJitter
	}
	return nil
}
