// Package limiter provides a bounded concurrency gate.
//
// Three independent instances bound the article, enrichment and relation
// concurrency domains so that saturating one class of work cannot starve
// another. The limiter carries no global error state: a failing task only
// releases its own slot.
package limiter

import (
	"context"
	"fmt"
)

// Limiter bounds the number of tasks running at once to a fixed ceiling.
type Limiter struct {
	permits chan struct{}
}

// New creates a limiter with at most k concurrent slots. A non-positive k
// is treated as 1.
func New(k int) *Limiter {
	if k <= 0 {
		k = 1
	}
	return &Limiter{permits: make(chan struct{}, k)}
}

// Acquire blocks until a slot frees up or the context finishes.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire slot: %w", ctx.Err())
	}
}

// Release frees a slot previously obtained via Acquire.
func (l *Limiter) Release() {
	select {
	case <-l.permits:
	default:
	}
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
