package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liftoffhq/outreach/audit"
	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/schedule"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *mockRecorder) Record(_ context.Context, evt *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Tests ────────────────────────────────────────────

func TestLeadSent_EmitsAuditEvent(t *testing.T) {
	rec := &mockRecorder{}
	ext := audit.New(rec)

	l := lead.New("Alice", "alice@acme.test")
	if err := ext.OnLeadSent(context.Background(), l, "msg-1"); err != nil {
		t.Fatalf("OnLeadSent: %v", err)
	}

	evt := rec.findByAction(audit.ActionLeadSent)
	if evt == nil {
		t.Fatal("no lead.sent event recorded")
	}
	if evt.Resource != audit.ResourceLead || evt.Category != audit.CategoryLead {
		t.Fatalf("resource/category = %s/%s", evt.Resource, evt.Category)
	}
	if evt.ResourceID != l.ID.String() {
		t.Fatalf("resource id = %s, want %s", evt.ResourceID, l.ID)
	}
	if evt.Metadata["email"] != "alice@acme.test" || evt.Metadata["message_id"] != "msg-1" {
		t.Fatalf("metadata = %v", evt.Metadata)
	}
	if evt.Severity != audit.SeverityInfo || evt.Outcome != audit.OutcomeSuccess {
		t.Fatalf("severity/outcome = %s/%s", evt.Severity, evt.Outcome)
	}
}

func TestLeadFailed_IsCritical(t *testing.T) {
	rec := &mockRecorder{}
	ext := audit.New(rec)

	l := lead.New("Alice", "alice@acme.test")
	failure := errors.New("smtp unavailable")
	if err := ext.OnLeadFailed(context.Background(), l, failure); err != nil {
		t.Fatalf("OnLeadFailed: %v", err)
	}

	evt := rec.findByAction(audit.ActionLeadFailed)
	if evt == nil {
		t.Fatal("no lead.failed event recorded")
	}
	if evt.Severity != audit.SeverityCritical || evt.Outcome != audit.OutcomeFailure {
		t.Fatalf("severity/outcome = %s/%s", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "smtp unavailable" {
		t.Fatalf("reason = %q", evt.Reason)
	}
}

func TestTaskFired_SeverityTracksError(t *testing.T) {
	rec := &mockRecorder{}
	ext := audit.New(rec)

	task := &schedule.Task{Type: schedule.TypeFollowUp}
	if err := ext.OnTaskFired(context.Background(), task, nil); err != nil {
		t.Fatalf("OnTaskFired: %v", err)
	}
	if err := ext.OnTaskFired(context.Background(), task, errors.New("boom")); err != nil {
		t.Fatalf("OnTaskFired: %v", err)
	}

	if rec.count() != 2 {
		t.Fatalf("events = %d, want 2", rec.count())
	}
	if rec.events[0].Severity != audit.SeverityInfo {
		t.Fatalf("clean fire severity = %s", rec.events[0].Severity)
	}
	if rec.events[1].Severity != audit.SeverityCritical || rec.events[1].Outcome != audit.OutcomeFailure {
		t.Fatalf("failed fire = %s/%s", rec.events[1].Severity, rec.events[1].Outcome)
	}
}

func TestWithActions_FiltersEvents(t *testing.T) {
	rec := &mockRecorder{}
	ext := audit.New(rec, audit.WithActions(audit.ActionLeadSent))

	l := lead.New("Alice", "alice@acme.test")
	if err := ext.OnLeadDrafted(context.Background(), l); err != nil {
		t.Fatalf("OnLeadDrafted: %v", err)
	}
	if err := ext.OnLeadSent(context.Background(), l, "msg-1"); err != nil {
		t.Fatalf("OnLeadSent: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("events = %d, want 1", rec.count())
	}
	if rec.events[0].Action != audit.ActionLeadSent {
		t.Fatalf("action = %s", rec.events[0].Action)
	}
}

func TestExtension_RegistersAllHooks(t *testing.T) {
	rec := &mockRecorder{}
	reg := hook.NewRegistry(nil)
	reg.Register(audit.New(rec))

	ctx := context.Background()
	l := lead.New("Alice", "alice@acme.test")
	reg.EmitCampaignStarted(ctx, "q", 1)
	reg.EmitLeadDrafted(ctx, l)
	reg.EmitLeadSent(ctx, l, "msg-1")
	reg.EmitCampaignCompleted(ctx, "q", time.Second)

	if rec.count() != 4 {
		t.Fatalf("events = %d, want 4", rec.count())
	}
}
