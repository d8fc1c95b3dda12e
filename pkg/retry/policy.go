package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMultiplier  = 2.0
	DefaultMaxDelay    = 10 * time.Second
	DefaultJitter      = 0.2
)

// Policy bounds the retry loop: how many attempts, and how long to wait
// between them.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// MaxDelay caps the computed delay before jitter.
	MaxDelay time.Duration

	// Jitter is the fraction of the delay added as uniform random noise,
	// in [0, 1).
	Jitter float64
}

// DefaultPolicy returns the standard bounded-backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
}

// Validate checks policy invariants.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts %d, need at least 1", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry: negative base delay %v", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry: multiplier %v below 1", p.Multiplier)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry: max delay %v below base delay %v", p.MaxDelay, p.BaseDelay)
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		return fmt.Errorf("retry: jitter %v outside [0, 1)", p.Jitter)
	}
	return nil
}

// delay computes the wait before attempt+1: capped exponential growth plus
// uniform jitter. Never negative.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	d += p.Jitter * d * rand.Float64()
	return time.Duration(d)
}
