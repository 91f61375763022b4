package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_CeilingHolds(t *testing.T) {
	t.Parallel()

	const slots = 3
	const tasks = 40

	lim := New(slots)

	var active atomic.Int64
	var peak atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lim.Do(context.Background(), func() error {
				cur := active.Add(1)
				for {
					prev := peak.Load()
					if cur <= prev || peak.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int64(slots))
	require.Positive(t, peak.Load())
}

func TestLimiter_TaskFailureDoesNotPoison(t *testing.T) {
	t.Parallel()

	lim := New(1)

	err := lim.Do(context.Background(), func() error {
		return errors.New("boom")
	})
	require.Error(t, err)

	// The slot released despite the failure, so the next task runs.
	err = lim.Do(context.Background(), func() error { return nil })
	require.NoError(t, err)
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	lim := New(1)
	require.NoError(t, lim.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := lim.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	lim.Release()
	require.NoError(t, lim.Acquire(context.Background()))
	lim.Release()
}

func TestNew_NonPositiveDefaultsToOne(t *testing.T) {
	t.Parallel()

	lim := New(0)
	require.NoError(t, lim.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, lim.Acquire(ctx))
	lim.Release()
}
