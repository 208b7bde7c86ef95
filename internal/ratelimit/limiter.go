// Package ratelimit serializes outbound classifier calls against a shared
// external quota.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between successive acquisitions across
// all callers sharing the instance. Both classifier adapters must be handed
// the same Limiter so the whole process consumes one quota budget.
type Limiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	last     time.Time
}

// New returns a Limiter with the given minimum inter-call delay.
// A zero delay disables spacing entirely, which is what tests want.
func New(minDelay time.Duration) (*Limiter, error) {
	if minDelay < 0 {
		return nil, fmt.Errorf("ratelimit: negative min delay %v", minDelay)
	}
	return &Limiter{minDelay: minDelay}, nil
}

// Acquire blocks until at least the configured delay has elapsed since the
// previous successful acquisition by any caller, then records the grant.
// It returns early only when ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		wait := l.minDelay - now.Sub(l.last)
		if wait <= 0 {
			l.last = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Another caller may have been granted while we slept;
			// loop and re-check under the lock.
		}
	}
}

// MinDelay returns the configured spacing.
func (l *Limiter) MinDelay() time.Duration {
	return l.minDelay
}
