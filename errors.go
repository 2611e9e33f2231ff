package outreach

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Store errors.
	ErrNoStore     = errors.New("outreach: no store configured")
	ErrStoreClosed = errors.New("outreach: store closed")

	// Not found errors.
	ErrLeadNotFound = errors.New("outreach: lead not found")
	ErrTaskNotFound = errors.New("outreach: task not found")

	// Conflict errors.
	ErrLeadAlreadyExists = errors.New("outreach: lead already exists")

	// State errors.
	ErrInvalidTransition = errors.New("outreach: invalid lead state transition")
	ErrNotApproved       = errors.New("outreach: lead is not approved for sending")
	ErrAlreadySent       = errors.New("outreach: lead was already sent")

	// Provider errors.
	ErrAuthExpired = errors.New("outreach: provider auth expired")

	// Campaign errors.
	ErrCampaignRunning = errors.New("outreach: a campaign run is already active")
)

// RateLimitedError reports a provider-side throttle (e.g. HTTP 429).
// After, when non-zero, is honored as the retry delay hint.
type RateLimitedError struct {
	Provider string
	After    time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("outreach: provider %s rate limited, retry after %s", e.Provider, e.After)
	}
	return fmt.Sprintf("outreach: provider %s rate limited", e.Provider)
}

// RetryAfter returns the provider's requested backoff.
func (e *RateLimitedError) RetryAfter() time.Duration { return e.After }

// SendFailedError reports a hard send failure with provider detail.
type SendFailedError struct {
	Detail string
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("outreach: send failed: %s", e.Detail)
}
