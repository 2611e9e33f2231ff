package outreach

import (
	"time"

	"github.com/liftoffhq/outreach/id"
)

// Provider keys identify the external services the engine talks to.
// The rate limiter keeps one sliding window per key.
const (
	ProviderMailSend   = "mail-send"
	ProviderMailRead   = "mail-read"
	ProviderContentGen = "content-gen"
	ProviderSheetWrite = "sheet-write"
	ProviderVerify     = "email-verify"
	ProviderSocial     = "social-post"
)

// Action describes one externally visible provider call made on behalf
// of a lead. It is threaded through the middleware chain so logging,
// tracing, and metrics can attribute the call.
type Action struct {
	// Name identifies the operation, e.g. "email.send" or "content.draft".
	Name string

	// Provider is the rate-limit provider key for this call.
	Provider string

	// LeadID is the lead this call acts on behalf of. May be Nil for
	// calls not tied to a single lead (e.g. audit sheet writes).
	LeadID id.LeadID

	// Timeout is the maximum duration the call may run before its
	// context is cancelled. Zero means no per-action deadline.
	Timeout time.Duration
}
