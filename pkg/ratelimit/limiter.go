package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow takes a token if one is available
	Allow() bool
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
}

// New returns a token bucket allowing perMinute requests per minute, or an
// unlimited limiter when perMinute is zero or negative.
func New(perMinute int) Limiter {
	if perMinute <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(perMinute, time.Minute)
}

// TokenBucket holds up to capacity tokens and refills completely once
// refillPeriod has elapsed since the last refill.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          func() time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
		now:          time.Now,
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - tb.now().Sub(tb.lastRefill)
		tb.mu.Unlock()

		if untilRefill <= 0 {
			untilRefill = 10 * time.Millisecond
		}

		timer := time.NewTimer(untilRefill)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
