package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/observability"
	"github.com/liftoffhq/outreach/schedule"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64] data type", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func newTestLead() *lead.Lead {
	return lead.New("Ada", "ada@example.com")
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_CampaignCounters(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()

	if err := e.OnCampaignStarted(ctx, "spring", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnCampaignCompleted(ctx, "spring", time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := counterValue(t, reader, "outreach.campaigns.started"); got != 1 {
		t.Errorf("campaigns.started: want 1, got %d", got)
	}
	if got := counterValue(t, reader, "outreach.campaigns.completed"); got != 1 {
		t.Errorf("campaigns.completed: want 1, got %d", got)
	}
}

func TestMetricsExtension_LeadCounters(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()
	l := newTestLead()

	if err := e.OnLeadDrafted(ctx, l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnLeadSent(ctx, l, "msg-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnLeadSkipped(ctx, l, "opted out"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnLeadFailed(ctx, l, errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnReplyDetected(ctx, l, "msg-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{
		"outreach.leads.drafted",
		"outreach.leads.sent",
		"outreach.leads.skipped",
		"outreach.leads.failed",
		"outreach.replies.detected",
	} {
		if got := counterValue(t, reader, name); got != 1 {
			t.Errorf("%s: want 1, got %d", name, got)
		}
	}
}

func TestMetricsExtension_TaskCounter(t *testing.T) {
	e, reader := newTestExtension()

	if err := e.OnTaskFired(context.Background(), &schedule.Task{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.OnTaskFired(context.Background(), &schedule.Task{}, errors.New("fail")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := counterValue(t, reader, "outreach.tasks.fired"); got != 2 {
		t.Errorf("tasks.fired: want 2, got %d", got)
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()
	r := hook.NewRegistry(slog.Default())
	r.Register(e)

	ctx := context.Background()
	r.EmitLeadSent(ctx, newTestLead(), "msg-1")
	r.EmitLeadSent(ctx, newTestLead(), "msg-2")

	if got := counterValue(t, reader, "outreach.leads.sent"); got != 2 {
		t.Errorf("leads.sent via registry: want 2, got %d", got)
	}
}
