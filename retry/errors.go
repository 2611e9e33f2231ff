package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetriesExceeded is matched by errors.Is against errors returned
// after a policy's retry budget is exhausted.
var ErrMaxRetriesExceeded = errors.New("retry: max retries exceeded")

// ExhaustedError wraps the last operation error after the retry budget
// is spent.
type ExhaustedError struct {
	// Attempts is the total number of attempts made (MaxRetries + 1).
	Attempts int
	// Err is the error from the final attempt.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is matches ErrMaxRetriesExceeded so callers can branch without
// unwrapping the concrete type.
func (e *ExhaustedError) Is(target error) bool { return target == ErrMaxRetriesExceeded }

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the policy fails immediately instead of
// retrying. Use for validation and non-429 4xx failures.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err is marked non-retryable anywhere in
// its chain.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// retryAfterHint extracts an explicit retry-after delay from the error
// chain, as carried by provider rate-limit responses.
func retryAfterHint(err error) (time.Duration, bool) {
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(err, &ra) {
		return ra.RetryAfter(), true
	}
	return 0, false
}
