// Package hook defines the extension system for the outreach engine.
// Extensions are notified of lifecycle events (campaign started, lead
// sent, reply detected, etc.) and can react to them — logging, metrics,
// audit trails.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/schedule"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Campaign lifecycle hooks
// ──────────────────────────────────────────────────

// CampaignStarted is called when a campaign run begins.
type CampaignStarted interface {
	OnCampaignStarted(ctx context.Context, campaign string, leadCount int) error
}

// CampaignCompleted is called after a campaign run finishes, whether it
// completed, failed, or was cancelled.
type CampaignCompleted interface {
	OnCampaignCompleted(ctx context.Context, campaign string, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Lead lifecycle hooks
// ──────────────────────────────────────────────────

// LeadDrafted is called after content is generated for a lead.
type LeadDrafted interface {
	OnLeadDrafted(ctx context.Context, l *lead.Lead) error
}

// LeadSent is called after a message is accepted by the mail provider.
type LeadSent interface {
	OnLeadSent(ctx context.Context, l *lead.Lead, messageID string) error
}

// LeadSkipped is called when a lead is deliberately skipped, with the
// human-readable reason (compliance block, missing draft, etc.).
type LeadSkipped interface {
	OnLeadSkipped(ctx context.Context, l *lead.Lead, reason string) error
}

// LeadFailed is called when an action against a lead fails terminally
// (retries exhausted or a permanent error).
type LeadFailed interface {
	OnLeadFailed(ctx context.Context, l *lead.Lead, err error) error
}

// ReplyDetected is called when reply checking matches an inbound
// message to a lead.
type ReplyDetected interface {
	OnReplyDetected(ctx context.Context, l *lead.Lead, messageRef string) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// TaskFired is called after the scheduler fires a task, successfully or
// not.
type TaskFired interface {
	OnTaskFired(ctx context.Context, t *schedule.Task, err error) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
