package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// maxJitter is the upper bound of the uniform jitter added to each
// computed backoff delay.
const maxJitter = 500 * time.Millisecond

// Class is the retry classification of an error.
type Class int

const (
	// ClassRetryable errors consume one unit of retry budget.
	ClassRetryable Class = iota
	// ClassPermanent errors fail immediately.
	ClassPermanent
)

// Classifier maps an error to its retry class. A nil Classifier falls
// back to DefaultClassifier.
type Classifier func(error) Class

// DefaultClassifier treats errors wrapped with Permanent as permanent
// and everything else as retryable.
func DefaultClassifier(err error) Class {
	if IsPermanent(err) {
		return ClassPermanent
	}
	return ClassRetryable
}

// Policy configures retry behaviour for one provider.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the first retry delay before multiplication.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay, including retry-after hints.
	MaxDelay time.Duration
	// Multiplier is the geometric growth factor per attempt.
	Multiplier float64
	// Classify decides whether a failure is retried. Nil means
	// DefaultClassifier.
	Classify Classifier
}

// DefaultPolicy returns the policy used when a provider has no tuned
// configuration: 3 retries, 1s base, 30s cap, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
	}
}

// Do runs op under the policy and returns its value.
//
// op is attempted up to MaxRetries+1 times. Permanent failures return
// immediately. Between attempts Do sleeps for the computed delay, or for
// the error's retry-after hint capped at MaxDelay. After the final
// failed attempt Do returns an *ExhaustedError wrapping the last error.
// Cancellation of ctx during a delay returns the context's error.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if classify(err) == ClassPermanent {
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxRetries {
			break
		}
		if sleepErr := sleep(ctx, p.delay(attempt, err)); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, &ExhaustedError{Attempts: p.MaxRetries + 1, Err: lastErr}
}

// Run is Do for operations without a return value.
func Run(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// delay computes the wait before the retry following the given attempt
// (0-indexed). An explicit retry-after hint on the error wins, capped
// at MaxDelay.
func (p Policy) delay(attempt int, err error) time.Duration {
	if hinted, ok := retryAfterHint(err); ok {
		if p.MaxDelay > 0 && hinted > p.MaxDelay {
			return p.MaxDelay
		}
		return hinted
	}

	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	d += time.Duration(rand.Float64() * float64(maxJitter)) //nolint:gosec // jitter intentionally uses non-crypto rand
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
