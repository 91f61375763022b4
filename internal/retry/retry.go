// Package retry implements bounded retry with jittered backoff. The same
// wrapper serves both the period and article levels of the pipeline.
package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Policy controls one retry loop.
type Policy struct {
	// Attempts is the total attempt ceiling, including the first run.
	// Values below 1 are treated as 1.
	Attempts int
	// Retryable decides whether a failure is worth another attempt.
	// A nil predicate retries nothing.
	Retryable func(error) bool
	// OnFailure observes every failed attempt, including the last.
	OnFailure func(attempt int, err error)
	// BaseDelay and MaxDelay bound the backoff between attempts.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Do runs fn until it succeeds, the attempt ceiling is reached, or the
// failure is classified as non-retryable. The context aborts waiting
// between attempts but an in-flight fn is responsible for its own deadline.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if p.Retryable == nil || !p.Retryable(err) {
			break
		}
		select {
		case <-time.After(p.backoff(attempt)):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(ceiling) {
		delay = float64(ceiling)
	}
	half := time.Duration(delay) / 2
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
