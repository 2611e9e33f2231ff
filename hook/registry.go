package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/schedule"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type campaignStartedEntry struct {
	name string
	hook CampaignStarted
}

type campaignCompletedEntry struct {
	name string
	hook CampaignCompleted
}

type leadDraftedEntry struct {
	name string
	hook LeadDrafted
}

type leadSentEntry struct {
	name string
	hook LeadSent
}

type leadSkippedEntry struct {
	name string
	hook LeadSkipped
}

type leadFailedEntry struct {
	name string
	hook LeadFailed
}

type replyDetectedEntry struct {
	name string
	hook ReplyDetected
}

type taskFiredEntry struct {
	name string
	hook TaskFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	campaignStarted   []campaignStartedEntry
	campaignCompleted []campaignCompletedEntry
	leadDrafted       []leadDraftedEntry
	leadSent          []leadSentEntry
	leadSkipped       []leadSkippedEntry
	leadFailed        []leadFailedEntry
	replyDetected     []replyDetectedEntry
	taskFired         []taskFiredEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(CampaignStarted); ok {
		r.campaignStarted = append(r.campaignStarted, campaignStartedEntry{name, h})
	}
	if h, ok := e.(CampaignCompleted); ok {
		r.campaignCompleted = append(r.campaignCompleted, campaignCompletedEntry{name, h})
	}
	if h, ok := e.(LeadDrafted); ok {
		r.leadDrafted = append(r.leadDrafted, leadDraftedEntry{name, h})
	}
	if h, ok := e.(LeadSent); ok {
		r.leadSent = append(r.leadSent, leadSentEntry{name, h})
	}
	if h, ok := e.(LeadSkipped); ok {
		r.leadSkipped = append(r.leadSkipped, leadSkippedEntry{name, h})
	}
	if h, ok := e.(LeadFailed); ok {
		r.leadFailed = append(r.leadFailed, leadFailedEntry{name, h})
	}
	if h, ok := e.(ReplyDetected); ok {
		r.replyDetected = append(r.replyDetected, replyDetectedEntry{name, h})
	}
	if h, ok := e.(TaskFired); ok {
		r.taskFired = append(r.taskFired, taskFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitCampaignStarted notifies all extensions that implement CampaignStarted.
func (r *Registry) EmitCampaignStarted(ctx context.Context, campaign string, leadCount int) {
	for _, e := range r.campaignStarted {
		if err := e.hook.OnCampaignStarted(ctx, campaign, leadCount); err != nil {
			r.logHookError("OnCampaignStarted", e.name, err)
		}
	}
}

// EmitCampaignCompleted notifies all extensions that implement CampaignCompleted.
func (r *Registry) EmitCampaignCompleted(ctx context.Context, campaign string, elapsed time.Duration) {
	for _, e := range r.campaignCompleted {
		if err := e.hook.OnCampaignCompleted(ctx, campaign, elapsed); err != nil {
			r.logHookError("OnCampaignCompleted", e.name, err)
		}
	}
}

// EmitLeadDrafted notifies all extensions that implement LeadDrafted.
func (r *Registry) EmitLeadDrafted(ctx context.Context, l *lead.Lead) {
	for _, e := range r.leadDrafted {
		if err := e.hook.OnLeadDrafted(ctx, l); err != nil {
			r.logHookError("OnLeadDrafted", e.name, err)
		}
	}
}

// EmitLeadSent notifies all extensions that implement LeadSent.
func (r *Registry) EmitLeadSent(ctx context.Context, l *lead.Lead, messageID string) {
	for _, e := range r.leadSent {
		if err := e.hook.OnLeadSent(ctx, l, messageID); err != nil {
			r.logHookError("OnLeadSent", e.name, err)
		}
	}
}

// EmitLeadSkipped notifies all extensions that implement LeadSkipped.
func (r *Registry) EmitLeadSkipped(ctx context.Context, l *lead.Lead, reason string) {
	for _, e := range r.leadSkipped {
		if err := e.hook.OnLeadSkipped(ctx, l, reason); err != nil {
			r.logHookError("OnLeadSkipped", e.name, err)
		}
	}
}

// EmitLeadFailed notifies all extensions that implement LeadFailed.
func (r *Registry) EmitLeadFailed(ctx context.Context, l *lead.Lead, leadErr error) {
	for _, e := range r.leadFailed {
		if err := e.hook.OnLeadFailed(ctx, l, leadErr); err != nil {
			r.logHookError("OnLeadFailed", e.name, err)
		}
	}
}

// EmitReplyDetected notifies all extensions that implement ReplyDetected.
func (r *Registry) EmitReplyDetected(ctx context.Context, l *lead.Lead, messageRef string) {
	for _, e := range r.replyDetected {
		if err := e.hook.OnReplyDetected(ctx, l, messageRef); err != nil {
			r.logHookError("OnReplyDetected", e.name, err)
		}
	}
}

// EmitTaskFired notifies all extensions that implement TaskFired.
func (r *Registry) EmitTaskFired(ctx context.Context, t *schedule.Task, taskErr error) {
	for _, e := range r.taskFired {
		if err := e.hook.OnTaskFired(ctx, t, taskErr); err != nil {
			r.logHookError("OnTaskFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hookName, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hookName),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
