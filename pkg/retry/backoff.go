package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff calculates retry delays
type Backoff struct {
	policy Policy
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewBackoff creates a new backoff calculator
func NewBackoff(policy Policy) *Backoff {
	return &Backoff{
		policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Calculate computes the delay before the given retry (1-based).
// A multiplier of 1 with no jitter yields a fixed interval.
func (b *Backoff) Calculate(attempt int) time.Duration {
	if attempt <= 0 || b.policy.InitialBackoff <= 0 {
		return 0
	}

	backoff := CalculateExponential(b.policy.InitialBackoff, b.policy.Multiplier, attempt, b.policy.MaxBackoff)

	if b.policy.Jitter > 0 {
		b.mu.Lock()
		r := b.rng.Float64()
		b.mu.Unlock()
		jitter := float64(backoff) * b.policy.Jitter
		return time.Duration(float64(backoff) - jitter + r*2*jitter)
	}

	return backoff
}

// CalculateExponential calculates exponential backoff without jitter
func CalculateExponential(initialBackoff time.Duration, multiplier float64, attempt int, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := float64(initialBackoff) * math.Pow(multiplier, float64(attempt-1))

	if maxBackoff > 0 && backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	return time.Duration(backoff)
}

// AddJitter adds random jitter to a duration
func AddJitter(duration time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || jitterFactor > 1.0 {
		return duration
	}

	jitter := float64(duration) * jitterFactor
	base := float64(duration) - jitter
	random := rand.Float64() * 2 * jitter

	return time.Duration(base + random)
}
