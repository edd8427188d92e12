// Package resilience retries transient failures of remote calls (Census API
// requests, TIGER/Line downloads) with exponential backoff.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff controls how a call is retried.
type Backoff struct {
	// Attempts is the total number of tries, the first included. Default 3.
	Attempts int
	// Initial is the delay before the first retry. Default 500ms.
	Initial time.Duration
	// Max caps any single delay. Default 30s.
	Max time.Duration
	// Multiplier grows the delay after each retry. Default 2.
	Multiplier float64
	// Jitter randomizes each delay by up to this fraction of it.
	Jitter float64
	// OnRetry, when set, is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultBackoff is used for Census Bureau requests.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts:   3,
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.25,
	}
}

// Do calls fn until it succeeds, returns an error that is not transient,
// runs out of attempts, or ctx is done. The last error is returned.
func Do(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.withDefaults()

	var zero T
	var lastErr error
	for attempt := range b.Attempts {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == b.Attempts-1 {
			break
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (b Backoff) withDefaults() Backoff {
	def := DefaultBackoff()
	if b.Attempts <= 0 {
		b.Attempts = def.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = def.Initial
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Multiplier <= 0 {
		b.Multiplier = def.Multiplier
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

func (b Backoff) delay(attempt int) time.Duration {
	d := math.Min(float64(b.Initial)*math.Pow(b.Multiplier, float64(attempt)), float64(b.Max))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// LogRetry returns an OnRetry callback that logs each retry.
func LogRetry(service string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying request",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
