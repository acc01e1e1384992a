// Package retry runs an operation a bounded number of times with a backoff
// between attempts.
//
// The operation receives the attempt number, which lets callers change what
// each attempt asks for. The image fetcher uses this to widen the search
// result limit on every retry:
//
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//		return fetchCandidate(ctx, name, attempt)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		Logger:      log,
//	})
//
// DefaultRetryIf consults the error types in animalfacts/pkg/errors and never
// retries context cancellation.
package retry
