package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/logger"
)

// Operation performs one attempt. attempt starts at 1, so callers can widen
// what they ask for on later attempts.
type Operation func(ctx context.Context, attempt int) error

// OperationWithResult is an Operation that also produces a value
type OperationWithResult[T any] func(ctx context.Context, attempt int) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts, must be at least 1
	MaxAttempts int
	// Backoff decides how long to wait before the next attempt
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts, may be nil
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		if typed.Type == errs.ErrorTypeHTTPStatus {
			return errs.IsRetryableStatusCode(typed.Code)
		}
		return errs.IsRetryable(typed.Type)
	}

	return true
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The error from the last attempt is wrapped in the
// returned error.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			log.DebugWithFields("error is not retryable", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}

		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": maxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts":   maxAttempts,
		"last_error": lastErr.Error(),
	})
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context, attempt int) error {
		var opErr error
		result, opErr = op(ctx, attempt)
		return opErr
	}, cfg)

	return result, err
}
