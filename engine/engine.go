package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/compliance"
	"github.com/liftoffhq/outreach/hook"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/mail"
	mw "github.com/liftoffhq/outreach/middleware"
	"github.com/liftoffhq/outreach/observability"
	"github.com/liftoffhq/outreach/pipeline"
	"github.com/liftoffhq/outreach/ratelimit"
	"github.com/liftoffhq/outreach/schedule"
	"github.com/liftoffhq/outreach/store/memory"
)

// Engine owns the wired subsystems and their lifecycle.
type Engine struct {
	cfg       outreach.Config
	logger    *slog.Logger
	store     lead.Store
	gate      *compliance.Gate
	limiter   *ratelimit.Limiter
	scheduler *schedule.Scheduler
	hooks     *hook.Registry
	orch      *pipeline.Orchestrator

	extensions []hook.Extension
	mws        []mw.Middleware
	pipeOpts   []pipeline.Option
	noMetrics  bool

	mu      sync.Mutex
	started bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger shared by all subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore sets the lead store. Defaults to the in-memory store.
func WithStore(s lead.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithExtension registers an extension with the engine.
func WithExtension(ext hook.Extension) Option {
	return func(e *Engine) { e.extensions = append(e.extensions, ext) }
}

// WithMiddleware appends middleware to the engine's default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithPipelineOptions passes extra options through to the orchestrator,
// typically the discovery, verification, and generation collaborators.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(e *Engine) { e.pipeOpts = append(e.pipeOpts, opts...) }
}

// WithoutMetrics disables the built-in observability extension.
func WithoutMetrics() Option {
	return func(e *Engine) { e.noMetrics = true }
}

// New builds an Engine from the given configuration. The engine is
// inert until Start.
func New(cfg outreach.Config, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.store == nil {
		e.store = memory.New()
	}

	e.gate = compliance.NewGate(e.logger)
	e.limiter = ratelimit.New(cfg.Providers, ratelimit.WithLogger(e.logger))
	e.scheduler = schedule.NewScheduler(e.logger,
		schedule.WithTickInterval(cfg.TickInterval),
		schedule.WithRetention(cfg.TaskRetention),
	)

	e.hooks = hook.NewRegistry(e.logger)
	if !e.noMetrics {
		e.hooks.Register(observability.NewMetricsExtension())
	}
	for _, ext := range e.extensions {
		e.hooks.Register(ext)
	}

	chain := append([]mw.Middleware{
		mw.Recover(e.logger),
		mw.Timeout(e.logger),
		mw.Logging(e.logger),
		mw.Tracing(),
		mw.Metrics(),
	}, e.mws...)

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithConfig(cfg),
		pipeline.WithGate(e.gate),
		pipeline.WithRateLimiter(e.limiter),
		pipeline.WithScheduler(e.scheduler),
		pipeline.WithHooks(e.hooks),
		pipeline.WithMiddleware(chain...),
	}
	if cfg.SMTP.Host != "" {
		pipeOpts = append(pipeOpts, pipeline.WithSender(mail.NewSender(cfg.SMTP)))
	}
	pipeOpts = append(pipeOpts, e.pipeOpts...)

	orch, err := pipeline.New(e.store, pipeOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: building orchestrator: %w", err)
	}
	e.orch = orch
	return e, nil
}

// Start migrates the store, registers the scheduler handlers, and
// starts the tick loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}

	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("engine: migrating store: %w", err)
	}
	if err := e.orch.RegisterHandlers(); err != nil {
		return err
	}
	if err := e.scheduler.Start(ctx); err != nil {
		return err
	}
	e.started = true
	e.logger.Info("engine started")
	return nil
}

// Stop drains the scheduler, notifies extensions, and closes the store.
// It waits at most ShutdownTimeout.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}

	if e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := e.scheduler.Stop(ctx); err != nil {
		return err
	}
	e.hooks.EmitShutdown(ctx)
	if err := e.store.Close(); err != nil {
		return err
	}
	e.started = false
	e.logger.Info("engine stopped")
	return nil
}

// Orchestrator returns the pipeline orchestrator.
func (e *Engine) Orchestrator() *pipeline.Orchestrator { return e.orch }

// Scheduler returns the task scheduler.
func (e *Engine) Scheduler() *schedule.Scheduler { return e.scheduler }

// Store returns the lead store.
func (e *Engine) Store() lead.Store { return e.store }

// Gate returns the compliance gate.
func (e *Engine) Gate() *compliance.Gate { return e.gate }

// Hooks returns the extension registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }
