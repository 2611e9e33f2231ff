package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/retry"
	"github.com/liftoffhq/outreach/store/memory"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeCompanyDiscoverer struct {
	companies []*lead.Company
}

func (f *fakeCompanyDiscoverer) DiscoverCompanies(_ context.Context, _ string, _ int) ([]*lead.Company, error) {
	return f.companies, nil
}

type fakeContactDiscoverer struct {
	// contacts maps company domain to the leads found there.
	contacts map[string][]*lead.Lead
}

func (f *fakeContactDiscoverer) DiscoverContacts(_ context.Context, c *lead.Company) ([]*lead.Lead, error) {
	return f.contacts[c.Domain], nil
}

type fakeVerifier struct {
	mu    sync.Mutex
	calls int
	// reject lists addresses that fail verification.
	reject map[string]bool
}

func (f *fakeVerifier) Verify(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return !f.reject[email], nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	drafted []string
	// block, when non-nil, makes Draft signal started and wait for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Draft(_ context.Context, l *lead.Lead) (*lead.Draft, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafted = append(f.drafted, l.Email)
	return &lead.Draft{Subject: "Hello " + l.Name, Body: "intro"}, nil
}

func (f *fakeGenerator) FollowUp(_ context.Context, l *lead.Lead, _ *lead.Draft) (*lead.Draft, error) {
	return &lead.Draft{Subject: "Following up, " + l.Name, Body: "bump"}, nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	sent  []string
	// failFor returns the mapped error on every send to that address.
	failFor map[string]error
	// authFailures makes the first N calls fail with ErrAuthExpired.
	authFailures int
}

func (f *fakeSender) Send(_ context.Context, to, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.authFailures > 0 {
		f.authFailures--
		return "", outreach.ErrAuthExpired
	}
	if err := f.failFor[to]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, to)
	return fmt.Sprintf("msg-%d", f.calls), nil
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRefresher) Refresh(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeReader struct {
	// results maps the exact search criteria to messages.
	results map[string][]Message
}

func (f *fakeReader) Search(_ context.Context, criteria string) ([]Message, error) {
	return f.results[criteria], nil
}

type fakeSheet struct {
	mu   sync.Mutex
	rows [][]string
}

func (f *fakeSheet) AppendRow(_ context.Context, values []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, values)
	return nil
}

func (f *fakeSheet) ReadRows(_ context.Context, _ string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fastMailPolicy keeps send retries quick in tests: three attempts with
// millisecond backoff, auth failures final.
func fastMailPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Multiplier: 1,
		Classify:   sendClassifier,
	}
}

func testConfig() outreach.Config {
	cfg := outreach.DefaultConfig()
	cfg.VerifyPacing = 0
	return cfg
}

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithConfig(testConfig()),
		WithRetryPolicy(outreach.ProviderMailSend, fastMailPolicy()),
	}
	o, err := New(memory.New(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

// seedApproved inserts a lead ready to send.
func seedApproved(t *testing.T, o *Orchestrator, name, email string) *lead.Lead {
	t.Helper()
	l := lead.New(name, email)
	l.Status = lead.StatusApproved
	l.Approved = true
	l.EmailVerified = true
	l.Draft = &lead.Draft{Subject: "Hello " + name, Body: "intro"}
	if err := o.Store().SaveLead(context.Background(), l); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}
	return l
}

// seedSent inserts a lead whose initial send happened daysAgo days ago.
func seedSent(t *testing.T, o *Orchestrator, name, email string, daysAgo int) *lead.Lead {
	t.Helper()
	l := seedApproved(t, o, name, email)
	if err := l.MarkSent("msg-seed", time.Now().Add(-time.Duration(daysAgo)*24*time.Hour)); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := o.Store().SaveLead(context.Background(), l); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}
	return l
}

func journalContains(o *Orchestrator, level, substr string) bool {
	for _, e := range o.Journal() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Campaign runs
// ---------------------------------------------------------------------------

func TestRunCampaign_EndToEnd(t *testing.T) {
	acme := lead.NewCompany("Acme", "acme.test")
	contacts := &fakeContactDiscoverer{contacts: map[string][]*lead.Lead{
		"acme.test": {
			lead.New("Alice", "alice@acme.test"),
			lead.New("Bob", "bob@acme.test"),
			lead.New("Carol", "carol@acme.test"),
		},
	}}
	sender := &fakeSender{}
	sheet := &fakeSheet{}

	o := newTestOrchestrator(t,
		WithCompanyDiscoverer(&fakeCompanyDiscoverer{companies: []*lead.Company{acme}}),
		WithContactDiscoverer(contacts),
		WithVerifier(&fakeVerifier{}),
		WithContentGenerator(&fakeGenerator{}),
		WithSender(sender),
		WithSheetLogger(sheet),
	)
	o.Gate().AddOptOut("bob@acme.test", "", "unsubscribed previously", "manual")

	sum, err := o.RunCampaign(context.Background(), "saas founders", true)
	if err != nil {
		t.Fatalf("RunCampaign: %v", err)
	}
	if sum.NewCompanies != 1 || sum.NewLeads != 3 {
		t.Fatalf("discovered %d companies / %d leads, want 1 / 3", sum.NewCompanies, sum.NewLeads)
	}
	if sum.Verified != 3 {
		t.Fatalf("Verified = %d, want 3", sum.Verified)
	}
	if sum.Drafted != 2 || sum.Skipped != 1 || sum.Approved != 2 {
		t.Fatalf("Drafted/Skipped/Approved = %d/%d/%d, want 2/1/2", sum.Drafted, sum.Skipped, sum.Approved)
	}
	if !journalContains(o, LevelWarning, "bob@acme.test") {
		t.Fatal("expected a skip journal entry for the opted-out lead")
	}

	report, err := o.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if report.Sent != 2 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 2 sent", report)
	}

	for _, email := range []string{"alice@acme.test", "carol@acme.test"} {
		l, err := o.Store().GetLeadByEmail(context.Background(), email)
		if err != nil {
			t.Fatalf("GetLeadByEmail(%s): %v", email, err)
		}
		if l.Status != lead.StatusSent || l.SentAt == nil {
			t.Fatalf("%s: status %s, SentAt %v, want sent", email, l.Status, l.SentAt)
		}
	}
	bob, err := o.Store().GetLeadByEmail(context.Background(), "bob@acme.test")
	if err != nil {
		t.Fatalf("GetLeadByEmail(bob): %v", err)
	}
	if bob.Status != lead.StatusVerified || bob.SentAt != nil {
		t.Fatalf("bob: status %s, want verified with no send", bob.Status)
	}
	if len(sheet.rows) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(sheet.rows))
	}
}

func TestRunCampaign_PartialFailureContinues(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{
		"alice@acme.test": &outreach.SendFailedError{Detail: "mailbox unavailable"},
	}}
	o := newTestOrchestrator(t, WithSender(sender))
	seedApproved(t, o, "Alice", "alice@acme.test")
	seedApproved(t, o, "Bob", "bob@acme.test")
	seedApproved(t, o, "Carol", "carol@acme.test")

	report, err := o.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if report.Sent != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v, want 2 sent / 1 failed", report)
	}
	if !journalContains(o, LevelError, "alice@acme.test") {
		t.Fatal("expected an error journal entry for the failing lead")
	}

	// The failing lead burned its full retry budget.
	if sender.calls != 3+2 {
		t.Fatalf("sender calls = %d, want 5 (3 attempts for alice + 2 sends)", sender.calls)
	}
	alice, err := o.Store().GetLeadByEmail(context.Background(), "alice@acme.test")
	if err != nil {
		t.Fatalf("GetLeadByEmail: %v", err)
	}
	if alice.Status != lead.StatusApproved || alice.SentAt != nil {
		t.Fatalf("alice: status %s, want approved and unsent", alice.Status)
	}
}

func TestRunCampaign_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(t)
	sum, err := o.RunCampaign(ctx, "anything", false)
	if err != nil {
		t.Fatalf("RunCampaign: %v", err)
	}
	if !sum.WasCancelled {
		t.Fatal("summary should record cancellation")
	}
	if got := o.Progress().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
}

func TestRunCampaign_RejectsConcurrentRun(t *testing.T) {
	gen := &fakeGenerator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(t, WithContentGenerator(gen))

	l := lead.New("Alice", "alice@acme.test")
	l.Status = lead.StatusVerified
	l.EmailVerified = true
	if err := o.Store().SaveLead(context.Background(), l); err != nil {
		t.Fatalf("SaveLead: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.RunCampaign(context.Background(), "first", false)
		done <- err
	}()
	<-gen.started

	if _, err := o.RunCampaign(context.Background(), "second", false); !errors.Is(err, outreach.ErrCampaignRunning) {
		t.Fatalf("err = %v, want ErrCampaignRunning", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Sending
// ---------------------------------------------------------------------------

func TestSendLead_RequiresApproval(t *testing.T) {
	o := newTestOrchestrator(t, WithSender(&fakeSender{}))
	l := lead.New("Alice", "alice@acme.test")
	l.Status = lead.StatusDrafted
	l.Draft = &lead.Draft{Subject: "Hello", Body: "intro"}

	if _, err := o.sendLead(context.Background(), l); !errors.Is(err, outreach.ErrNotApproved) {
		t.Fatalf("err = %v, want ErrNotApproved", err)
	}
}

func TestSendLead_BlockedAtSendTime(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, WithSender(sender))
	l := seedApproved(t, o, "Alice", "alice@acme.test")

	// Opt-out recorded after approval still wins.
	o.Gate().AddOptOut("alice@acme.test", "", "asked to stop", "reply")

	report, err := o.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if report.Skipped != 1 || report.Sent != 0 {
		t.Fatalf("report = %+v, want 1 skipped", report)
	}
	if sender.calls != 0 {
		t.Fatalf("sender calls = %d, want 0", sender.calls)
	}

	got, err := o.Store().GetLead(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.Status != lead.StatusApproved || got.SentAt != nil {
		t.Fatalf("lead = %s, want approved and unsent", got.Status)
	}
}

func TestSendLead_RefreshesExpiredCredentialsOnce(t *testing.T) {
	sender := &fakeSender{authFailures: 1}
	refresher := &fakeRefresher{}
	o := newTestOrchestrator(t, WithSender(sender), WithTokenRefresher(refresher))
	seedApproved(t, o, "Alice", "alice@acme.test")

	report, err := o.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if report.Sent != 1 {
		t.Fatalf("report = %+v, want 1 sent", report)
	}
	if refresher.calls != 1 {
		t.Fatalf("refresher calls = %d, want 1", refresher.calls)
	}
	if sender.calls != 2 {
		t.Fatalf("sender calls = %d, want 2", sender.calls)
	}
}

func TestSendLead_AuthFailureWithoutRefresherIsFinal(t *testing.T) {
	sender := &fakeSender{authFailures: 10}
	o := newTestOrchestrator(t, WithSender(sender))
	seedApproved(t, o, "Alice", "alice@acme.test")

	report, err := o.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v, want 1 failed", report)
	}
	// Permanent classification: no retry storm against dead credentials.
	if sender.calls != 1 {
		t.Fatalf("sender calls = %d, want 1", sender.calls)
	}
}

// ---------------------------------------------------------------------------
// Follow-ups
// ---------------------------------------------------------------------------

func TestScanFollowUps(t *testing.T) {
	o := newTestOrchestrator(t)
	seedSent(t, o, "Due", "due@acme.test", 5)
	seedSent(t, o, "Fresh", "fresh@acme.test", 1)

	candidates, err := o.ScanFollowUps(context.Background())
	if err != nil {
		t.Fatalf("ScanFollowUps: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Email != "due@acme.test" {
		t.Fatalf("candidates = %+v, want just due@acme.test", candidates)
	}
}

func TestSendFollowUp(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, WithSender(sender), WithContentGenerator(&fakeGenerator{}))
	l := seedSent(t, o, "Due", "due@acme.test", 5)

	if err := o.SendFollowUp(context.Background(), l.ID); err != nil {
		t.Fatalf("SendFollowUp: %v", err)
	}

	got, err := o.Store().GetLead(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.Status != lead.StatusFollowUpSent || got.FollowUpSentAt == nil {
		t.Fatalf("status = %s, want followUpSent", got.Status)
	}
	if got.FollowUpDraft == nil {
		t.Fatal("follow-up draft should be recorded")
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.sentTo()))
	}
}

func TestSendFollowUp_SkipsOptedOut(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, WithSender(sender), WithContentGenerator(&fakeGenerator{}))
	l := seedSent(t, o, "Due", "due@acme.test", 5)
	o.Gate().AddOptOut("due@acme.test", "", "asked to stop", "reply")

	if err := o.SendFollowUp(context.Background(), l.ID); err != nil {
		t.Fatalf("SendFollowUp: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("sender calls = %d, want 0", sender.calls)
	}
}

// ---------------------------------------------------------------------------
// Inbound
// ---------------------------------------------------------------------------

func TestCheckReplies(t *testing.T) {
	reader := &fakeReader{results: map[string][]Message{
		"from:happy@acme.test": {{ID: "m1", From: "happy@acme.test", Body: "sounds interesting, tell me more"}},
		"from:angry@acme.test": {{ID: "m2", From: "angry@acme.test", Body: "please unsubscribe me"}},
	}}
	o := newTestOrchestrator(t, WithMailReader(reader))
	happy := seedSent(t, o, "Happy", "happy@acme.test", 2)
	angry := seedSent(t, o, "Angry", "angry@acme.test", 2)
	seedSent(t, o, "Quiet", "quiet@acme.test", 2)

	n, err := o.CheckReplies(context.Background())
	if err != nil {
		t.Fatalf("CheckReplies: %v", err)
	}
	if n != 2 {
		t.Fatalf("detected = %d, want 2", n)
	}

	got, _ := o.Store().GetLead(context.Background(), happy.ID)
	if got.Status != lead.StatusReplied || got.ReplyRef != "m1" {
		t.Fatalf("happy = %s/%s, want replied/m1", got.Status, got.ReplyRef)
	}
	got, _ = o.Store().GetLead(context.Background(), angry.ID)
	if got.Status != lead.StatusOptedOut || !got.OptedOut {
		t.Fatalf("angry = %s, want optedOut", got.Status)
	}
	// The opt-out is durable: the gate now blocks the address.
	if d := o.Gate().CanSend("angry@acme.test", "acme.test"); d.Allowed {
		t.Fatal("gate should block an opted-out address")
	}
}

func TestCheckBounces(t *testing.T) {
	criteria := fmt.Sprintf("from:mailer-daemon %q", "gone@acme.test")
	reader := &fakeReader{results: map[string][]Message{
		criteria: {{ID: "b1", From: "mailer-daemon@mx.test", Body: "550 user unknown"}},
	}}
	o := newTestOrchestrator(t, WithMailReader(reader))
	gone := seedSent(t, o, "Gone", "gone@acme.test", 1)
	seedSent(t, o, "Fine", "fine@acme.test", 1)

	n, err := o.CheckBounces(context.Background())
	if err != nil {
		t.Fatalf("CheckBounces: %v", err)
	}
	if n != 1 {
		t.Fatalf("detected = %d, want 1", n)
	}

	got, _ := o.Store().GetLead(context.Background(), gone.ID)
	if got.Status != lead.StatusBounced || got.DeliveryStatus != "bounced" {
		t.Fatalf("gone = %s/%s, want bounced", got.Status, got.DeliveryStatus)
	}
}

// ---------------------------------------------------------------------------
// Control surface
// ---------------------------------------------------------------------------

func TestPauseResume_RequireMatchingPhase(t *testing.T) {
	o := newTestOrchestrator(t)
	if err := o.Pause(); err == nil {
		t.Fatal("Pause should fail while idle")
	}
	if err := o.Resume(); err == nil {
		t.Fatal("Resume should fail while idle")
	}
}

func TestJournalIsCapped(t *testing.T) {
	cfg := testConfig()
	cfg.JournalLimit = 5
	o := newTestOrchestrator(t, WithConfig(cfg))

	for i := range 20 {
		o.journalf(LevelInfo, "entry %d", i)
	}
	j := o.Journal()
	if len(j) != 5 {
		t.Fatalf("journal length = %d, want 5", len(j))
	}
	if j[len(j)-1].Message != "entry 19" {
		t.Fatalf("newest entry = %q, want %q", j[len(j)-1].Message, "entry 19")
	}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, outreach.ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}
