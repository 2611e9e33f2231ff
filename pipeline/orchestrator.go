package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/compliance"
	"github.com/liftoffhq/outreach/followup"
	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/middleware"
	"github.com/liftoffhq/outreach/ratelimit"
	"github.com/liftoffhq/outreach/retry"
	"github.com/liftoffhq/outreach/schedule"
)

// companyDiscoveryLimit caps how many companies one run asks the
// discoverer for.
const companyDiscoveryLimit = 20

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithConfig replaces the default engine configuration.
func WithConfig(cfg outreach.Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithGate sets the compliance gate consulted before drafting and sending.
func WithGate(g *compliance.Gate) Option {
	return func(o *Orchestrator) { o.gate = g }
}

// WithRateLimiter sets the per-provider rate limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithScheduler sets the task scheduler the orchestrator registers its
// handlers on.
func WithScheduler(s *schedule.Scheduler) Option {
	return func(o *Orchestrator) { o.scheduler = s }
}

// WithHooks sets the extension registry.
func WithHooks(r *hook.Registry) Option {
	return func(o *Orchestrator) { o.hooks = r }
}

// WithMiddleware wraps every provider call in the given middleware,
// outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *Orchestrator) { o.chain = middleware.Chain(mws...) }
}

// WithRetryPolicy overrides the retry policy for one provider key.
func WithRetryPolicy(provider string, p retry.Policy) Option {
	return func(o *Orchestrator) { o.policies[provider] = p }
}

// WithFollowUpConfig overrides the follow-up scan configuration.
func WithFollowUpConfig(cfg followup.Config) Option {
	return func(o *Orchestrator) {
		o.followCfg = cfg
		o.followCfgSet = true
	}
}

// WithClock replaces the orchestrator's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCompanyDiscoverer sets the company discovery collaborator.
func WithCompanyDiscoverer(d CompanyDiscoverer) Option {
	return func(o *Orchestrator) { o.companies = d }
}

// WithContactDiscoverer sets the contact discovery collaborator.
func WithContactDiscoverer(d ContactDiscoverer) Option {
	return func(o *Orchestrator) { o.contacts = d }
}

// WithVerifier sets the email verification collaborator.
func WithVerifier(v EmailVerifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithContentGenerator sets the drafting collaborator.
func WithContentGenerator(g ContentGenerator) Option {
	return func(o *Orchestrator) { o.generator = g }
}

// WithSender sets the mail delivery collaborator.
func WithSender(s MailSender) Option {
	return func(o *Orchestrator) { o.sender = s }
}

// WithTokenRefresher sets the credential refresh collaborator.
func WithTokenRefresher(r TokenRefresher) Option {
	return func(o *Orchestrator) { o.refresher = r }
}

// WithMailReader sets the inbox search collaborator.
func WithMailReader(r MailReader) Option {
	return func(o *Orchestrator) { o.reader = r }
}

// WithSheetLogger sets the audit sheet collaborator.
func WithSheetLogger(s SheetLogger) Option {
	return func(o *Orchestrator) { o.sheet = s }
}

// WithSocialPoster sets the social posting collaborator.
func WithSocialPoster(p SocialPoster) Option {
	return func(o *Orchestrator) { o.social = p }
}

// Orchestrator drives leads through the outreach pipeline. One
// campaign run is active at a time; Pause, Resume, and the read
// accessors are safe to call concurrently with a run.
type Orchestrator struct {
	logger    *slog.Logger
	cfg       outreach.Config
	store     lead.Store
	gate      *compliance.Gate
	limiter   *ratelimit.Limiter
	scheduler *schedule.Scheduler
	hooks     *hook.Registry
	chain     middleware.Middleware
	now       func() time.Time

	companies CompanyDiscoverer
	contacts  ContactDiscoverer
	verifier  EmailVerifier
	generator ContentGenerator
	sender    MailSender
	refresher TokenRefresher
	reader    MailReader
	sheet     SheetLogger
	social    SocialPoster

	policies     map[string]retry.Policy
	followCfg    followup.Config
	followCfgSet bool
	verifyPace   *rate.Limiter

	mu       sync.Mutex
	cond     *sync.Cond
	running  bool
	progress Progress
	journal  []JournalEntry
}

// New creates an Orchestrator over the given store.
func New(store lead.Store, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, outreach.ErrNoStore
	}

	o := &Orchestrator{
		store:    store,
		cfg:      outreach.DefaultConfig(),
		now:      time.Now,
		policies: make(map[string]retry.Policy),
		progress: Progress{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "pipeline")
	if o.gate == nil {
		o.gate = compliance.NewGate(o.logger)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.New(o.cfg.Providers, ratelimit.WithLogger(o.logger))
	}
	if o.hooks == nil {
		o.hooks = hook.NewRegistry(o.logger)
	}
	if !o.followCfgSet {
		o.followCfg = followup.DefaultConfig()
		if days := int(o.cfg.FollowUpAfter.Hours() / 24); days > 0 {
			o.followCfg.DaysThreshold = days
		}
	}
	if _, ok := o.policies[outreach.ProviderMailSend]; !ok {
		p := retry.DefaultPolicy()
		p.Classify = sendClassifier
		o.policies[outreach.ProviderMailSend] = p
	}

	limit := rate.Inf
	if o.cfg.VerifyPacing > 0 {
		limit = rate.Every(o.cfg.VerifyPacing)
	}
	o.verifyPace = rate.NewLimiter(limit, 1)

	o.cond = sync.NewCond(&o.mu)
	return o, nil
}

// sendClassifier keeps expired credentials from burning retry budget:
// the send path already refreshes and retries once inline, so a second
// auth failure is final.
func sendClassifier(err error) retry.Class {
	if errors.Is(err, outreach.ErrAuthExpired) {
		return retry.ClassPermanent
	}
	return retry.DefaultClassifier(err)
}

// Store returns the backing lead store.
func (o *Orchestrator) Store() lead.Store { return o.store }

// Gate returns the compliance gate.
func (o *Orchestrator) Gate() *compliance.Gate { return o.gate }

// Hooks returns the extension registry.
func (o *Orchestrator) Hooks() *hook.Registry { return o.hooks }

// Progress returns a snapshot of the current run state.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Journal returns a copy of the activity journal, oldest first.
func (o *Orchestrator) Journal() []JournalEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]JournalEntry, len(o.journal))
	copy(out, o.journal)
	return out
}

// Pause suspends the active run at its next stage or lead boundary.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress.Phase != PhaseRunning {
		return fmt.Errorf("pipeline: cannot pause while %s", o.progress.Phase)
	}
	o.progress.Phase = PhasePaused
	o.journalLocked(LevelWarning, "campaign paused")
	return nil
}

// Resume continues a paused run.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress.Phase != PhasePaused {
		return fmt.Errorf("pipeline: cannot resume while %s", o.progress.Phase)
	}
	o.progress.Phase = PhaseRunning
	o.journalLocked(LevelInfo, "campaign resumed")
	o.cond.Broadcast()
	return nil
}

// RunCampaign executes one campaign run: discover companies and
// contacts for the query, verify addresses, draft outreach, and
// optionally approve every draft. Sending stays a separate step; see
// SendAll and ScheduleSends.
//
// Individual lead failures are journaled and counted in the summary
// without aborting the run. Cancelling ctx stops the run at the next
// stage or lead boundary and marks the summary cancelled.
func (o *Orchestrator) RunCampaign(ctx context.Context, query string, autoApprove bool) (*Summary, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, outreach.ErrCampaignRunning
	}
	o.running = true
	o.progress = Progress{Phase: PhaseRunning}
	o.mu.Unlock()

	// Wake a paused checkpoint when the caller gives up.
	stopWatch := context.AfterFunc(ctx, func() {
		o.mu.Lock()
		o.cond.Broadcast()
		o.mu.Unlock()
	})
	defer stopWatch()

	summary := &Summary{Query: query, StartedAt: o.now().UTC()}
	leadCount, _ := o.store.CountLeads(ctx, lead.CountOpts{})
	o.hooks.EmitCampaignStarted(ctx, query, int(leadCount))
	o.journalf(LevelInfo, "campaign started: %s", query)
	o.logger.Info("campaign started", "query", query, "auto_approve", autoApprove)

	type stage struct {
		name string
		run  func(context.Context) error
	}
	stages := []stage{
		{"discovering companies", func(ctx context.Context) error {
			return o.discoverCompanies(ctx, query, summary)
		}},
		{"discovering contacts", func(ctx context.Context) error {
			return o.discoverContacts(ctx, summary)
		}},
		{"verifying emails", func(ctx context.Context) error {
			return o.verifyLeads(ctx, summary)
		}},
		{"drafting outreach", func(ctx context.Context) error {
			return o.draftLeads(ctx, summary)
		}},
	}
	if autoApprove {
		stages = append(stages, stage{"approving drafts", func(ctx context.Context) error {
			n, err := o.ApproveAll(ctx)
			summary.Approved = n
			return err
		}})
	}

	var runErr error
	for _, st := range stages {
		if err := o.checkpoint(ctx); err != nil {
			summary.WasCancelled = true
			break
		}
		o.setStep(st.name, 0, 0)
		if err := st.run(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				summary.WasCancelled = true
				break
			}
			runErr = fmt.Errorf("pipeline: %s: %w", st.name, err)
			break
		}
	}

	summary.FinishedAt = o.now().UTC()
	o.hooks.EmitCampaignCompleted(ctx, query, summary.FinishedAt.Sub(summary.StartedAt))

	o.mu.Lock()
	o.running = false
	if runErr != nil {
		o.progress.Phase = PhaseFailed
		o.progress.Error = runErr.Error()
	} else {
		o.progress.Phase = PhaseCompleted
	}
	o.mu.Unlock()

	switch {
	case runErr != nil:
		o.journalf(LevelError, "campaign failed: %v", runErr)
		o.logger.Error("campaign failed", "query", query, "error", runErr)
		return summary, runErr
	case summary.WasCancelled:
		o.journalf(LevelWarning, "campaign cancelled: %s", query)
		o.logger.Warn("campaign cancelled", "query", query)
	default:
		o.journalf(LevelSuccess, "campaign completed: %d new leads, %d drafted", summary.NewLeads, summary.Drafted)
		o.logger.Info("campaign completed",
			"query", query,
			"new_leads", summary.NewLeads,
			"verified", summary.Verified,
			"drafted", summary.Drafted,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// Stages
// ---------------------------------------------------------------------------

func (o *Orchestrator) discoverCompanies(ctx context.Context, query string, sum *Summary) error {
	if o.companies == nil {
		o.journalf(LevelInfo, "company discovery not configured, using stored companies")
		return nil
	}

	existing, err := o.store.ListCompanies(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		if c.Domain != "" {
			known[c.Domain] = true
		}
	}

	found, err := retry.Do(ctx, o.policyFor("discovery"), func(ctx context.Context) ([]*lead.Company, error) {
		return o.companies.DiscoverCompanies(ctx, query, companyDiscoveryLimit)
	})
	if err != nil {
		return fmt.Errorf("discovering companies: %w", err)
	}

	for _, c := range found {
		if c.Domain != "" && known[c.Domain] {
			continue
		}
		if err := o.store.SaveCompany(ctx, c); err != nil {
			return err
		}
		if c.Domain != "" {
			known[c.Domain] = true
		}
		sum.NewCompanies++
	}
	o.journalf(LevelInfo, "discovered %d new companies", sum.NewCompanies)
	return nil
}

// discoverContacts fans out over companies with bounded concurrency.
// Each company is handled by exactly one goroutine, so no two
// goroutines write the same lead.
func (o *Orchestrator) discoverContacts(ctx context.Context, sum *Summary) error {
	if o.contacts == nil {
		o.journalf(LevelInfo, "contact discovery not configured")
		return nil
	}

	companies, err := o.store.ListCompanies(ctx)
	if err != nil {
		return err
	}
	o.setStep("discovering contacts", 0, len(companies))

	concurrency := o.cfg.DiscoveryConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		sumMu sync.Mutex
		done  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, c := range companies {
		g.Go(func() error {
			contacts, err := o.contacts.DiscoverContacts(gctx, c)

			sumMu.Lock()
			done++
			o.setStep("discovering contacts", done, len(companies))
			sumMu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.journalf(LevelError, "contact discovery failed for %s: %v", c.Name, err)
				sumMu.Lock()
				sum.Failed++
				sumMu.Unlock()
				return nil
			}

			for _, l := range contacts {
				if _, err := o.store.GetLeadByEmail(gctx, l.Email); err == nil {
					continue
				} else if !errors.Is(err, outreach.ErrLeadNotFound) {
					return err
				}
				if l.CompanyID.IsNil() {
					l.CompanyID = c.ID
				}
				if err := o.store.SaveLead(gctx, l); err != nil {
					if errors.Is(err, outreach.ErrLeadAlreadyExists) {
						continue
					}
					return err
				}
				sumMu.Lock()
				sum.NewLeads++
				sumMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	o.journalf(LevelInfo, "discovered %d new leads", sum.NewLeads)
	return nil
}

func (o *Orchestrator) verifyLeads(ctx context.Context, sum *Summary) error {
	if o.verifier == nil {
		o.journalf(LevelInfo, "email verification not configured")
		return nil
	}

	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusIdentified, lead.ListOpts{})
	if err != nil {
		return err
	}
	o.setStep("verifying emails", 0, len(leads))

	for i, l := range leads {
		if err := o.checkpoint(ctx); err != nil {
			return err
		}
		if err := o.verifyPace.Wait(ctx); err != nil {
			return err
		}
		if err := o.limiter.Acquire(ctx, outreach.ProviderVerify); err != nil {
			return err
		}

		a := &outreach.Action{Name: "email.verify", Provider: outreach.ProviderVerify, LeadID: l.ID}
		ok, err := runAction(ctx, o, a, func(ctx context.Context) (bool, error) {
			return retry.Do(ctx, o.policyFor(outreach.ProviderVerify), func(ctx context.Context) (bool, error) {
				return o.verifier.Verify(ctx, l.Email)
			})
		})
		switch {
		case err != nil:
			o.journalf(LevelError, "verification errored for %s: %v", l.Email, err)
			sum.Failed++
		case !ok:
			o.journalf(LevelWarning, "verification failed for %s", l.Email)
		default:
			l.EmailVerified = true
			if err := l.Transition(lead.StatusVerified); err != nil {
				return err
			}
			if err := o.store.SaveLead(ctx, l); err != nil {
				return err
			}
			sum.Verified++
		}
		o.setStep("verifying emails", i+1, len(leads))
	}
	o.journalf(LevelInfo, "verified %d of %d leads", sum.Verified, len(leads))
	return nil
}

func (o *Orchestrator) draftLeads(ctx context.Context, sum *Summary) error {
	if o.generator == nil {
		o.journalf(LevelInfo, "content generation not configured")
		return nil
	}

	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusVerified, lead.ListOpts{})
	if err != nil {
		return err
	}
	o.setStep("drafting outreach", 0, len(leads))

	for i, l := range leads {
		if err := o.checkpoint(ctx); err != nil {
			return err
		}

		if d := o.gate.CanSend(l.Email, l.Domain); !d.Allowed {
			o.journalf(LevelWarning, "skipping %s: %s", l.Email, d.Reason)
			o.hooks.EmitLeadSkipped(ctx, l, d.Reason)
			sum.Skipped++
			o.setStep("drafting outreach", i+1, len(leads))
			continue
		}

		if err := o.limiter.Acquire(ctx, outreach.ProviderContentGen); err != nil {
			return err
		}

		a := &outreach.Action{Name: "content.draft", Provider: outreach.ProviderContentGen, LeadID: l.ID}
		draft, err := runAction(ctx, o, a, func(ctx context.Context) (*lead.Draft, error) {
			return retry.Do(ctx, o.policyFor(outreach.ProviderContentGen), func(ctx context.Context) (*lead.Draft, error) {
				return o.generator.Draft(ctx, l)
			})
		})
		if err != nil {
			o.journalf(LevelError, "drafting failed for %s: %v", l.Email, err)
			o.hooks.EmitLeadFailed(ctx, l, err)
			sum.Failed++
			o.setStep("drafting outreach", i+1, len(leads))
			continue
		}

		l.Draft = draft
		if err := l.Transition(lead.StatusDrafted); err != nil {
			return err
		}
		if err := o.store.SaveLead(ctx, l); err != nil {
			return err
		}
		o.hooks.EmitLeadDrafted(ctx, l)
		sum.Drafted++
		o.setStep("drafting outreach", i+1, len(leads))
	}
	o.journalf(LevelInfo, "drafted %d of %d leads", sum.Drafted, len(leads))
	return nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// checkpoint blocks while the run is paused and reports context
// cancellation. Stages call it at every lead boundary.
func (o *Orchestrator) checkpoint(ctx context.Context) error {
	o.mu.Lock()
	for o.progress.Phase == PhasePaused && ctx.Err() == nil {
		o.cond.Wait()
	}
	o.mu.Unlock()
	return ctx.Err()
}

func (o *Orchestrator) setStep(step string, current, total int) {
	o.mu.Lock()
	o.progress.Step = step
	o.progress.Current = current
	o.progress.Total = total
	o.mu.Unlock()
}

func (o *Orchestrator) policyFor(provider string) retry.Policy {
	if p, ok := o.policies[provider]; ok {
		return p
	}
	return retry.DefaultPolicy()
}

func (o *Orchestrator) journalf(level, format string, args ...any) {
	o.mu.Lock()
	o.journalLocked(level, fmt.Sprintf(format, args...))
	o.mu.Unlock()
}

func (o *Orchestrator) journalLocked(level, msg string) {
	o.journal = append(o.journal, JournalEntry{Level: level, Message: msg, At: o.now().UTC()})
	if limit := o.cfg.JournalLimit; limit > 0 && len(o.journal) > limit {
		o.journal = o.journal[len(o.journal)-limit:]
	}
}

// runAction funnels one provider call through the middleware chain.
func runAction[T any](ctx context.Context, o *Orchestrator, a *outreach.Action, fn func(context.Context) (T, error)) (T, error) {
	if o.chain == nil {
		return fn(ctx)
	}
	var out T
	err := o.chain(ctx, a, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
