package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/liftoffhq/outreach"
)

// Stat is a read-only snapshot of one provider window.
type Stat struct {
	MaxRequests int
	Window      time.Duration
	// InWindow is the number of recorded requests inside the trailing window.
	InWindow int
	// Waiting is the number of callers queued for admission.
	Waiting int
}

// window holds the sliding-window state for a single provider key.
// All access is serialized through mu, so concurrent callers can never
// both observe spare capacity and overshoot the limit.
type window struct {
	max  int
	span time.Duration

	mu      sync.Mutex
	stamps  []time.Time
	waiters []chan struct{}
	// timerPending is true while a wake-up goroutine is scheduled for
	// the head waiter.
	timerPending bool
}

// Limiter enforces one sliding window per provider key.
// Keys without a configured window are admitted without limit.
type Limiter struct {
	logger  *slog.Logger
	clock   Clock
	windows map[string]*window
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithLogger sets the limiter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter with one window per configured provider key.
func New(providers map[string]outreach.WindowConfig, opts ...Option) *Limiter {
	l := &Limiter{
		logger:  slog.Default(),
		clock:   realClock{},
		windows: make(map[string]*window, len(providers)),
	}
	for key, cfg := range providers {
		l.windows[key] = &window{max: cfg.MaxRequests, span: cfg.Window}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the provider's window admits one request, records
// it, and returns. Callers for the same key are admitted in arrival
// order. Returns the context's error if it is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	w := l.windows[key]
	if w == nil {
		return ctx.Err()
	}

	w.mu.Lock()
	now := l.clock.Now()
	w.prune(now)

	// Fast path: capacity available and nobody queued ahead.
	if len(w.waiters) == 0 && len(w.stamps) < w.max {
		w.stamps = append(w.stamps, now)
		w.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	w.waiters = append(w.waiters, ready)
	wait := w.headWait(now)
	w.scheduleWake(l.clock)
	w.mu.Unlock()

	l.logger.Debug("rate limit wait",
		slog.String("provider", key),
		slog.Duration("wait", wait),
	)

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		if !w.abandon(ready) {
			// Admission raced the cancellation; the slot was already
			// consumed on this caller's behalf. Still honor the context.
			return ctx.Err()
		}
		return ctx.Err()
	}
}

// Remaining returns how many requests the provider's window currently
// admits without waiting. Unknown keys report zero. Does not mutate state.
func (l *Limiter) Remaining(key string) int {
	w := l.windows[key]
	if w == nil {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	free := w.max - w.inWindow(l.clock.Now()) - len(w.waiters)
	if free < 0 {
		return 0
	}
	return free
}

// Stats returns a read-only snapshot of every provider window.
func (l *Limiter) Stats() map[string]Stat {
	out := make(map[string]Stat, len(l.windows))
	now := l.clock.Now()
	for key, w := range l.windows {
		w.mu.Lock()
		out[key] = Stat{
			MaxRequests: w.max,
			Window:      w.span,
			InWindow:    w.inWindow(now),
			Waiting:     len(w.waiters),
		}
		w.mu.Unlock()
	}
	return out
}

// prune drops timestamps older than now-span. Caller holds mu.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// inWindow counts timestamps inside the trailing window without
// mutating the slice. Caller holds mu.
func (w *window) inWindow(now time.Time) int {
	cutoff := now.Add(-w.span)
	n := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// headWait computes how long the head waiter must wait for capacity.
// Caller holds mu.
func (w *window) headWait(now time.Time) time.Duration {
	if len(w.stamps) < w.max {
		return 0
	}
	wait := w.stamps[0].Add(w.span).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// scheduleWake arranges a wake-up for the head waiter once the oldest
// timestamp leaves the window. Caller holds mu.
func (w *window) scheduleWake(c Clock) {
	if w.timerPending || len(w.waiters) == 0 {
		return
	}
	w.timerPending = true
	wait := w.headWait(c.Now())

	go func() {
		<-c.After(wait)
		w.mu.Lock()
		w.timerPending = false
		w.admit(c)
		w.mu.Unlock()
	}()
}

// admit re-prunes and admits queued waiters in FIFO order while capacity
// lasts, then schedules the next wake-up if anyone is still waiting.
// Caller holds mu.
func (w *window) admit(c Clock) {
	now := c.Now()
	w.prune(now)
	for len(w.waiters) > 0 && len(w.stamps) < w.max {
		w.stamps = append(w.stamps, now)
		close(w.waiters[0])
		w.waiters = append(w.waiters[:0], w.waiters[1:]...)
	}
	w.scheduleWake(c)
}

// abandon removes a cancelled waiter from the queue. Returns false if
// the waiter had already been admitted.
func (w *window) abandon(ready chan struct{}) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, ch := range w.waiters {
		if ch == ready {
			w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
			return true
		}
	}
	return false
}
