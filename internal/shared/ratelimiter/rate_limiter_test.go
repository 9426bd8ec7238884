package ratelimiter

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinDelay_FirstCallDoesNotWait(t *testing.T) {
	t.Parallel()

	l := NewMinDelay("test", time.Second)
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestMinDelay_SpacesConsecutiveCalls(t *testing.T) {
	t.Parallel()

	delay := 50 * time.Millisecond
	l := NewMinDelay("test", delay)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	first := time.Now()
	require.NoError(t, l.Wait(ctx))
	second := time.Now()
	require.NoError(t, l.Wait(ctx))
	third := time.Now()

	assert.GreaterOrEqual(t, second.Sub(first), delay-5*time.Millisecond)
	assert.GreaterOrEqual(t, third.Sub(second), delay-5*time.Millisecond)
}

func TestMinDelay_ZeroDelayNeverWaits(t *testing.T) {
	t.Parallel()

	l := NewMinDelay("test", 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestMinDelay_ContextCancelled(t *testing.T) {
	t.Parallel()

	l := NewMinDelay("test", time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMinDelay_ConcurrentCallersAreSpaced(t *testing.T) {
	t.Parallel()

	delay := 20 * time.Millisecond
	l := NewMinDelay("test", delay)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Wait(context.Background()))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), delay-5*time.Millisecond)
	}
}
