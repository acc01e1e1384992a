package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"animalfacts/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherPreservesInputOrder(t *testing.T) {
	inputs := []int{50, 10, 30, 0, 20}

	results := Gather(context.Background(), inputs, func(ctx context.Context, delay int) (string, error) {
		time.Sleep(time.Duration(delay) * time.Millisecond)
		return fmt.Sprintf("task-%d", delay), nil
	}, nil)

	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("task-%d", inputs[i]), r.Value)
	}
}

func TestGatherRunsConcurrently(t *testing.T) {
	var running, peak int32
	inputs := make([]int, 20)

	Gather(context.Background(), inputs, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	}, nil)

	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestGatherFailureDoesNotCancelOthers(t *testing.T) {
	log := logger.NewTestLogger()
	var completed int32

	results := Gather(context.Background(), []string{"ok", "fail", "ok"}, func(ctx context.Context, in string) (string, error) {
		if in == "fail" {
			return "", errors.New("boom")
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&completed, 1)
		return in, nil
	}, log)

	assert.Equal(t, int32(2), atomic.LoadInt32(&completed))
	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "boom")
	assert.NoError(t, results[2].Err)
	assert.Equal(t, []string{"ok", "", "ok"}, Values(results))

	warnings := log.GetMessagesByLevel("WARN")
	require.Len(t, warnings, 1)
	assert.Equal(t, 1, warnings[0].Fields["index"])
}

func TestGatherEmpty(t *testing.T) {
	called := false
	results := Gather(context.Background(), nil, func(ctx context.Context, in string) (int, error) {
		called = true
		return 0, nil
	}, nil)

	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.False(t, called)
}

func TestGatherPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Gather(ctx, []int{1, 2}, func(ctx context.Context, in int) (int, error) {
		return in, ctx.Err()
	}, nil)

	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
