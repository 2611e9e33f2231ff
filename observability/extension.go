package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/schedule"
)

// meterName is the instrumentation scope name for lifecycle counters.
const meterName = "github.com/liftoffhq/outreach/observability"

// Compile-time interface checks.
var (
	_ hook.Extension         = (*MetricsExtension)(nil)
	_ hook.CampaignStarted   = (*MetricsExtension)(nil)
	_ hook.CampaignCompleted = (*MetricsExtension)(nil)
	_ hook.LeadDrafted       = (*MetricsExtension)(nil)
	_ hook.LeadSent          = (*MetricsExtension)(nil)
	_ hook.LeadSkipped       = (*MetricsExtension)(nil)
	_ hook.LeadFailed        = (*MetricsExtension)(nil)
	_ hook.ReplyDetected     = (*MetricsExtension)(nil)
	_ hook.TaskFired         = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters via OTel.
// Register it as an extension to automatically track campaign runs,
// draft and send counts, compliance skips, failures, detected replies,
// and scheduler fires.
type MetricsExtension struct {
	campaignsStarted   metric.Int64Counter
	campaignsCompleted metric.Int64Counter
	leadsDrafted       metric.Int64Counter
	leadsSent          metric.Int64Counter
	leadsSkipped       metric.Int64Counter
	leadsFailed        metric.Int64Counter
	repliesDetected    metric.Int64Counter
	tasksFired         metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. With no provider configured the counters are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Use this variant to inject a test MeterProvider.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		_ = err // noop fallback guaranteed by OTel API contract
		return c
	}
	return &MetricsExtension{
		campaignsStarted:   counter("outreach.campaigns.started", "Campaign runs started"),
		campaignsCompleted: counter("outreach.campaigns.completed", "Campaign runs finished"),
		leadsDrafted:       counter("outreach.leads.drafted", "Drafts generated"),
		leadsSent:          counter("outreach.leads.sent", "Messages accepted by the mail provider"),
		leadsSkipped:       counter("outreach.leads.skipped", "Leads deliberately skipped"),
		leadsFailed:        counter("outreach.leads.failed", "Lead actions failed terminally"),
		repliesDetected:    counter("outreach.replies.detected", "Inbound replies matched to leads"),
		tasksFired:         counter("outreach.tasks.fired", "Scheduled tasks fired"),
	}
}

// Name implements hook.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnCampaignStarted implements hook.CampaignStarted.
func (m *MetricsExtension) OnCampaignStarted(ctx context.Context, _ string, _ int) error {
	m.campaignsStarted.Add(ctx, 1)
	return nil
}

// OnCampaignCompleted implements hook.CampaignCompleted.
func (m *MetricsExtension) OnCampaignCompleted(ctx context.Context, _ string, _ time.Duration) error {
	m.campaignsCompleted.Add(ctx, 1)
	return nil
}

// OnLeadDrafted implements hook.LeadDrafted.
func (m *MetricsExtension) OnLeadDrafted(ctx context.Context, _ *lead.Lead) error {
	m.leadsDrafted.Add(ctx, 1)
	return nil
}

// OnLeadSent implements hook.LeadSent.
func (m *MetricsExtension) OnLeadSent(ctx context.Context, _ *lead.Lead, _ string) error {
	m.leadsSent.Add(ctx, 1)
	return nil
}

// OnLeadSkipped implements hook.LeadSkipped.
func (m *MetricsExtension) OnLeadSkipped(ctx context.Context, _ *lead.Lead, _ string) error {
	m.leadsSkipped.Add(ctx, 1)
	return nil
}

// OnLeadFailed implements hook.LeadFailed.
func (m *MetricsExtension) OnLeadFailed(ctx context.Context, _ *lead.Lead, _ error) error {
	m.leadsFailed.Add(ctx, 1)
	return nil
}

// OnReplyDetected implements hook.ReplyDetected.
func (m *MetricsExtension) OnReplyDetected(ctx context.Context, _ *lead.Lead, _ string) error {
	m.repliesDetected.Add(ctx, 1)
	return nil
}

// OnTaskFired implements hook.TaskFired.
func (m *MetricsExtension) OnTaskFired(ctx context.Context, _ *schedule.Task, _ error) error {
	m.tasksFired.Add(ctx, 1)
	return nil
}
