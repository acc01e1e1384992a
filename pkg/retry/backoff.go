package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before the attempt after the given one
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor adds up to ±JitterFactor of the delay (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	return jitter(delay, eb.JitterFactor)
}

// LinearBackoff grows the delay by Increment on every attempt
type LinearBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Increment    time.Duration
	JitterFactor float64
}

func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(lb.BaseDelay + lb.Increment*time.Duration(attempt-1))
	if lb.MaxDelay > 0 && delay > float64(lb.MaxDelay) {
		delay = float64(lb.MaxDelay)
	}

	return jitter(delay, lb.JitterFactor)
}

// ConstantBackoff waits the same Delay between every attempt
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Backoff strategy names accepted by NewBackoff
const (
	BackoffConstant    = "constant"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// NewBackoff builds the named strategy around base. An exponential strategy
// with no base delay uses DefaultExponentialBackoff.
func NewBackoff(strategy string, base time.Duration) (BackoffStrategy, error) {
	switch strategy {
	case BackoffConstant:
		return &ConstantBackoff{Delay: base}, nil
	case BackoffLinear:
		return &LinearBackoff{BaseDelay: base, Increment: base, MaxDelay: 30 * time.Second}, nil
	case BackoffExponential, "":
		if base <= 0 {
			return DefaultExponentialBackoff(), nil
		}
		return &ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}, nil
	}
	return nil, fmt.Errorf("unknown backoff strategy %q", strategy)
}

func jitter(delay, factor float64) time.Duration {
	if factor > 0 {
		spread := delay * factor
		delay += (rand.Float64() * 2 * spread) - spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
