// Package retry defines the single retry policy used by every network
// call site, instead of per-call ad hoc counters and sleeps.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Retryable classifies whether an error is worth another attempt.
type Retryable func(err error) bool

// Policy defines a bounded retry strategy.
type Policy struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffStrategy BackoffType
	JitterFactor    float64 // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// PageFetchPolicy covers the provider's paged list endpoint: transient
// upstream failures are retried with doubling delays capped at 10s.
func PageFetchPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: BackoffExponential,
	}
}

// ProbePolicy covers HEAD probes, which must never stall the pipeline.
func ProbePolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffStrategy: BackoffExponential,
	}
}

// CalculateDelay returns the wait before the given attempt (1-based).
func (p Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.BackoffStrategy {
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// ExecuteWithResult runs fn until it succeeds, the error is classified as
// permanent, or the attempt budget is exhausted. Sleeps are context-aware.
func ExecuteWithResult[T any](ctx context.Context, policy Policy, retryable Retryable, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries {
			break
		}
		if retryable != nil && !retryable(err) {
			break
		}

		if delay := policy.CalculateDelay(attempt + 1); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

// Execute is ExecuteWithResult for functions without a result value.
func Execute(ctx context.Context, policy Policy, retryable Retryable, fn func(ctx context.Context, attempt int) error) error {
	_, err := ExecuteWithResult(ctx, policy, retryable, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}
