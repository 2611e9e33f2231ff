package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/schedule"
)

// Compile-time interface checks.
var (
	_ hook.Extension         = (*Extension)(nil)
	_ hook.CampaignStarted   = (*Extension)(nil)
	_ hook.CampaignCompleted = (*Extension)(nil)
	_ hook.LeadDrafted       = (*Extension)(nil)
	_ hook.LeadSent          = (*Extension)(nil)
	_ hook.LeadSkipped       = (*Extension)(nil)
	_ hook.LeadFailed        = (*Extension)(nil)
	_ hook.ReplyDetected     = (*Extension)(nil)
	_ hook.TaskFired         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so callers can bridge to any trail: a database table,
// an append-only log, or a spreadsheet.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Event is one entry in the audit trail.
type Event struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges outreach lifecycle events to an audit trail
// backend. Each lifecycle hook emits a structured audit event through
// the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Extension.
func (e *Extension) Name() string { return "audit" }

// ── Campaign lifecycle hooks ─────────────────────────

// OnCampaignStarted implements hook.CampaignStarted.
func (e *Extension) OnCampaignStarted(ctx context.Context, campaign string, leadCount int) error {
	return e.record(ctx, ActionCampaignStarted, SeverityInfo, OutcomeSuccess,
		ResourceCampaign, campaign, CategoryCampaign, nil,
		"lead_count", leadCount,
	)
}

// OnCampaignCompleted implements hook.CampaignCompleted.
func (e *Extension) OnCampaignCompleted(ctx context.Context, campaign string, elapsed time.Duration) error {
	return e.record(ctx, ActionCampaignCompleted, SeverityInfo, OutcomeSuccess,
		ResourceCampaign, campaign, CategoryCampaign, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ── Lead lifecycle hooks ─────────────────────────────

// OnLeadDrafted implements hook.LeadDrafted.
func (e *Extension) OnLeadDrafted(ctx context.Context, l *lead.Lead) error {
	return e.record(ctx, ActionLeadDrafted, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"email", l.Email,
	)
}

// OnLeadSent implements hook.LeadSent.
func (e *Extension) OnLeadSent(ctx context.Context, l *lead.Lead, messageID string) error {
	return e.record(ctx, ActionLeadSent, SeverityInfo, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"email", l.Email,
		"message_id", messageID,
		"status", string(l.Status),
	)
}

// OnLeadSkipped implements hook.LeadSkipped.
func (e *Extension) OnLeadSkipped(ctx context.Context, l *lead.Lead, reason string) error {
	return e.record(ctx, ActionLeadSkipped, SeverityWarning, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"email", l.Email,
		"skip_reason", reason,
	)
}

// OnLeadFailed implements hook.LeadFailed.
func (e *Extension) OnLeadFailed(ctx context.Context, l *lead.Lead, leadErr error) error {
	return e.record(ctx, ActionLeadFailed, SeverityCritical, OutcomeFailure,
		ResourceLead, l.ID.String(), CategoryLead, leadErr,
		"email", l.Email,
	)
}

// OnReplyDetected implements hook.ReplyDetected.
func (e *Extension) OnReplyDetected(ctx context.Context, l *lead.Lead, messageRef string) error {
	severity := SeverityInfo
	if l.OptedOut {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionReplyDetected, severity, OutcomeSuccess,
		ResourceLead, l.ID.String(), CategoryLead, nil,
		"email", l.Email,
		"message_ref", messageRef,
		"opted_out", l.OptedOut,
	)
}

// ── Task lifecycle hooks ─────────────────────────────

// OnTaskFired implements hook.TaskFired.
func (e *Extension) OnTaskFired(ctx context.Context, t *schedule.Task, taskErr error) error {
	severity := SeverityInfo
	outcome := OutcomeSuccess
	if taskErr != nil {
		severity = SeverityCritical
		outcome = OutcomeFailure
	}
	return e.record(ctx, ActionTaskFired, severity, outcome,
		ResourceTask, t.ID.String(), CategoryTask, taskErr,
		"task_type", string(t.Type),
		"recurring", t.Recurring,
	)
}

// record builds and persists one audit event. kvPairs alternate key and
// value; a non-string key is stringified.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}
	if rerr := e.recorder.Record(ctx, evt); rerr != nil {
		e.logger.Warn("audit record failed", "action", action, "error", rerr)
		return rerr
	}
	return nil
}
