// Package retry executes operations with exponential backoff and error
// classification.
//
// A Policy runs an operation up to MaxRetries+1 times. Failures classed
// as permanent fail immediately without consuming the retry budget.
// Errors carrying an explicit retry-after hint (provider 429 responses)
// override the computed backoff, capped at MaxDelay. All other failures
// back off exponentially with jitter. When the budget is exhausted the
// last error is wrapped in an ExhaustedError.
//
// Policies are plain values; each provider gets its own tuned instance.
package retry
