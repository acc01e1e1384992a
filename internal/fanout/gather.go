package fanout

import (
	"context"
	"sync"
	"time"

	"animalfacts/pkg/logger"
)

// Func processes one input. A returned error is recorded on that input's
// Result and never stops the other goroutines.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Result is the outcome for the input at Index
type Result[Out any] struct {
	Index    int
	Value    Out
	Err      error
	Duration time.Duration
}

// Gather runs fn once per input, each in its own goroutine, and waits for
// all of them. The returned slice is in input order regardless of the order
// in which the goroutines finish.
func Gather[In, Out any](ctx context.Context, inputs []In, fn Func[In, Out], log logger.Logger) []Result[Out] {
	if log == nil {
		log = logger.NewNopLogger()
	}

	results := make([]Result[Out], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	log.DebugWithFields("Starting fan-out", map[string]interface{}{
		"tasks": len(inputs),
	})

	resultQueue := make(chan Result[Out], len(inputs))
	var wg sync.WaitGroup

	for i, in := range inputs {
		wg.Add(1)
		go func(index int, in In) {
			defer wg.Done()
			resultQueue <- run(ctx, index, in, fn)
		}(i, in)
	}

	go func() {
		wg.Wait()
		close(resultQueue)
	}()

	failed := 0
	for result := range resultQueue {
		if result.Err != nil {
			failed++
			log.WarnWithFields("Task failed", map[string]interface{}{
				"index":    result.Index,
				"error":    result.Err.Error(),
				"duration": result.Duration,
			})
		}
		results[result.Index] = result
	}

	log.DebugWithFields("Fan-out finished", map[string]interface{}{
		"tasks":  len(inputs),
		"failed": failed,
	})

	return results
}

func run[In, Out any](ctx context.Context, index int, in In, fn Func[In, Out]) Result[Out] {
	start := time.Now()
	value, err := fn(ctx, in)
	return Result[Out]{
		Index:    index,
		Value:    value,
		Err:      err,
		Duration: time.Since(start),
	}
}

// Values returns the Value of every result, in order, including those whose
// Err is set.
func Values[Out any](results []Result[Out]) []Out {
	out := make([]Out, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}
