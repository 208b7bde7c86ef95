package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegativeDelay(t *testing.T) {
	t.Parallel()
	_, err := New(-time.Second)
	assert.Error(t, err)
}

func TestAcquireSpacingUnderConcurrency(t *testing.T) {
	t.Parallel()

	const (
		n        = 5
		minDelay = 20 * time.Millisecond
	)

	limiter, err := New(minDelay)
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)

	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Acquire(context.Background()))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, n)
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })

	// Allow a small scheduling tolerance between the grant and the moment
	// the goroutine records its timestamp.
	const tolerance = 5 * time.Millisecond
	for i := 1; i < n; i++ {
		gap := grants[i].Sub(grants[i-1])
		assert.GreaterOrEqual(t, gap+tolerance, minDelay, "grants %d and %d too close: %v", i-1, i, gap)
	}

	total := time.Since(start)
	assert.GreaterOrEqual(t, total+tolerance, time.Duration(n-1)*minDelay)
}

func TestAcquireZeroDelayDoesNotBlock(t *testing.T) {
	t.Parallel()

	limiter, err := New(0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = limiter.Acquire(context.Background())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero-delay limiter blocked")
	}
}

func TestAcquireHonorsCancellation(t *testing.T) {
	t.Parallel()

	limiter, err := New(time.Hour)
	require.NoError(t, err)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- limiter.Acquire(ctx)
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}
