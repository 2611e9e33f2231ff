package followup

import (
	"testing"
	"time"

	"github.com/liftoffhq/outreach/lead"
)

var scanNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// sentLead builds a lead whose initial send happened daysAgo days before
// scanNow.
func sentLead(name string, daysAgo int) *lead.Lead {
	l := lead.New(name, name+"@example.com")
	l.Status = lead.StatusSent
	at := scanNow.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	l.SentAt = &at
	return l
}

func TestScan_BasicEligibility(t *testing.T) {
	fresh := sentLead("fresh", 1)
	due := sentLead("due", 5)
	unsent := lead.New("unsent", "unsent@example.com")

	followedUp := sentLead("followed", 10)
	fuAt := scanNow.Add(-2 * 24 * time.Hour)
	followedUp.FollowUpSentAt = &fuAt

	got := Scan([]*lead.Lead{fresh, due, unsent, followedUp}, DefaultConfig(), scanNow)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].Name != "due" {
		t.Fatalf("candidate = %q, want %q", got[0].Name, "due")
	}
	if got[0].DaysSinceSent != 5 {
		t.Fatalf("DaysSinceSent = %d, want 5", got[0].DaysSinceSent)
	}
}

func TestScan_ExcludesRepliedAndOptedOut(t *testing.T) {
	replied := sentLead("replied", 5)
	replied.Status = lead.StatusReplied
	replied.ReplyRef = "msg-123"

	optedOut := sentLead("optedout", 5)
	optedOut.OptedOut = true

	ok := sentLead("ok", 5)

	got := Scan([]*lead.Lead{replied, optedOut, ok}, DefaultConfig(), scanNow)
	if len(got) != 1 || got[0].Name != "ok" {
		t.Fatalf("candidates = %+v, want only %q", got, "ok")
	}

	// With exclusions disabled both come back.
	cfg := Config{DaysThreshold: 3}
	got = Scan([]*lead.Lead{replied, optedOut, ok}, cfg, scanNow)
	if len(got) != 3 {
		t.Fatalf("candidates without exclusions = %d, want 3", len(got))
	}
}

func TestScan_PriorityOrdering(t *testing.T) {
	// Barely due, unverified, no secondary channel: lowest score.
	plain := sentLead("plain", 3)

	// Long overdue and verified.
	overdue := sentLead("overdue", 20)
	overdue.EmailVerified = true

	// Due with a LinkedIn profile.
	social := sentLead("social", 4)
	social.LinkedIn = "https://linkedin.com/in/social"

	got := Scan([]*lead.Lead{plain, social, overdue}, DefaultConfig(), scanNow)
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	if got[0].Name != "overdue" || got[1].Name != "social" || got[2].Name != "plain" {
		names := []string{got[0].Name, got[1].Name, got[2].Name}
		t.Fatalf("order = %v, want [overdue social plain]", names)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Priority < got[i].Priority {
			t.Fatalf("priorities not descending: %d before %d", got[i-1].Priority, got[i].Priority)
		}
	}
}

func TestScan_OverdueBoostCapped(t *testing.T) {
	ancient := sentLead("ancient", 365)
	got := Scan([]*lead.Lead{ancient}, DefaultConfig(), scanNow)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	want := basePriority + overdueBoostCap
	if got[0].Priority != want {
		t.Fatalf("priority = %d, want %d", got[0].Priority, want)
	}
}

func TestScan_PureNoMutation(t *testing.T) {
	l := sentLead("pure", 5)
	before := *l
	_ = Scan([]*lead.Lead{l}, DefaultConfig(), scanNow)
	if *l != before {
		t.Fatal("scan mutated the lead")
	}
}
