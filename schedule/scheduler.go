package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
)

// HandlerFunc executes one due task. The orchestrator registers one per
// task type; returning an error marks the task failed.
type HandlerFunc func(ctx context.Context, t *Task) error

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSpec parses a cron expression and returns the schedule.
func ParseSpec(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due tasks.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithRetention sets how long completed and cancelled tasks are kept
// before pruning.
func WithRetention(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.retention = d }
}

// WithNow replaces the scheduler's clock, for tests.
func WithNow(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// TaskOption configures a task at scheduling time.
type TaskOption func(*Task)

// WithPriority sets the task priority. Higher fires first among due tasks.
func WithPriority(p int) TaskOption {
	return func(t *Task) { t.Priority = p }
}

// WithRecurring makes the task spawn a successor every interval.
func WithRecurring(interval time.Duration) TaskOption {
	return func(t *Task) {
		t.Recurring = true
		t.Interval = interval
	}
}

// WithCronSpec makes the task recur on a cron expression instead of a
// fixed interval.
func WithCronSpec(expr string) TaskOption {
	return func(t *Task) {
		t.Recurring = true
		t.Spec = expr
	}
}

// Scheduler holds the task collection and fires due work on a tick loop.
type Scheduler struct {
	logger       *slog.Logger
	tickInterval time.Duration
	retention    time.Duration
	now          func() time.Time

	mu       sync.Mutex
	tasks    map[string]*Task
	handlers map[Type]HandlerFunc

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:       logger,
		tickInterval: time.Minute,
		retention:    7 * 24 * time.Hour,
		now:          func() time.Time { return time.Now().UTC() },
		tasks:        make(map[string]*Task),
		handlers:     make(map[Type]HandlerFunc),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandler sets the handler invoked for due tasks of the given
// type. Call before Start.
func (s *Scheduler) RegisterHandler(taskType Type, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[taskType] = h
}

// Schedule inserts one task into the queue.
func (s *Scheduler) Schedule(taskType Type, referenceID id.ID, dueAt time.Time, opts ...TaskOption) (*Task, error) {
	t := &Task{
		Entity:      outreach.NewEntity(),
		ID:          id.NewTaskID(),
		Type:        taskType,
		ReferenceID: referenceID,
		DueAt:       dueAt.UTC(),
		Status:      StatusPending,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.Spec != "" {
		if _, err := ParseSpec(t.Spec); err != nil {
			return nil, fmt.Errorf("schedule: invalid cron spec %q: %w", t.Spec, err)
		}
	}

	s.mu.Lock()
	s.tasks[t.ID.String()] = t
	cp := s.snapshot(t)
	s.mu.Unlock()

	s.logger.Debug("task scheduled",
		slog.String("task_id", t.ID.String()),
		slog.String("type", string(t.Type)),
		slog.Time("due_at", t.DueAt),
		slog.Bool("recurring", t.Recurring),
	)
	return cp, nil
}

// ScheduleSend queues the initial send for a lead at the given time.
func (s *Scheduler) ScheduleSend(leadID id.LeadID, at time.Time) (*Task, error) {
	return s.Schedule(TypeSend, leadID, at)
}

// ScheduleFollowUp queues a follow-up for a lead after the given delay.
func (s *Scheduler) ScheduleFollowUp(leadID id.LeadID, delay time.Duration) (*Task, error) {
	return s.Schedule(TypeFollowUp, leadID, s.now().Add(delay))
}

// Cancel marks a pending task cancelled. Tasks past the pending state
// cannot be cancelled.
func (s *Scheduler) Cancel(taskID id.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID.String()]
	if !ok {
		return outreach.ErrTaskNotFound
	}
	if t.Status != StatusPending {
		return fmt.Errorf("schedule: cannot cancel task in state %q", t.Status)
	}
	t.Status = StatusCancelled
	t.Touch()
	return nil
}

// PendingTasks returns copies of all pending tasks ordered by due time,
// then by descending priority.
func (s *Scheduler) PendingTasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Task
	for _, t := range s.tasks {
		if t.Status == StatusPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].DueAt.Equal(out[k].DueAt) {
			return out[i].DueAt.Before(out[k].DueAt)
		}
		return out[i].Priority > out[k].Priority
	})
	return out
}

// Task returns a copy of the task with the given ID.
func (s *Scheduler) Task(taskID id.TaskID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID.String()]
	if !ok {
		return nil, outreach.ErrTaskNotFound
	}
	return s.snapshot(t), nil
}

// Start launches the tick loop.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the tick loop to stop and waits for it to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.CheckAndExecuteDueTasks(context.Background())
		}
	}
}

// CheckAndExecuteDueTasks fires every pending task whose due time has
// passed, in priority order, then prunes expired completed tasks. It is
// called by the tick loop and may be called directly (tests, manual
// trigger).
func (s *Scheduler) CheckAndExecuteDueTasks(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*Task
	for _, t := range s.tasks {
		if t.Status == StatusPending && !t.DueAt.After(now) {
			t.Status = StatusExecuting
			t.Touch()
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, k int) bool {
		if due[i].Priority != due[k].Priority {
			return due[i].Priority > due[k].Priority
		}
		return due[i].DueAt.Before(due[k].DueAt)
	})

	for _, t := range due {
		s.fire(ctx, t)
	}

	s.pruneExpired(now)
}

// fire runs one task's handler and finalizes its state. The handler is
// invoked without holding the scheduler lock.
func (s *Scheduler) fire(ctx context.Context, t *Task) {
	s.mu.Lock()
	handler := s.handlers[t.Type]
	s.mu.Unlock()

	firedAt := s.now()

	var handlerErr error
	if handler == nil {
		handlerErr = fmt.Errorf("schedule: no handler registered for task type %q", t.Type)
	} else {
		handlerErr = handler(ctx, s.snapshot(t))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	executed := s.now()
	t.ExecutedAt = &executed
	t.Touch()

	if handlerErr != nil {
		t.Status = StatusFailed
		t.LastError = handlerErr.Error()
		s.logger.Error("task failed",
			slog.String("task_id", t.ID.String()),
			slog.String("type", string(t.Type)),
			slog.String("error", handlerErr.Error()),
		)
	} else {
		t.Status = StatusCompleted
		s.logger.Info("task fired",
			slog.String("task_id", t.ID.String()),
			slog.String("type", string(t.Type)),
		)
	}

	// Recurring tasks spawn exactly one pending successor, whether the
	// handler succeeded or not; the fired task itself is terminal.
	if t.Recurring {
		s.spawnSuccessorLocked(t, firedAt)
	}
}

// spawnSuccessorLocked enqueues the next occurrence of a recurring task.
// Caller holds mu.
func (s *Scheduler) spawnSuccessorLocked(t *Task, firedAt time.Time) {
	next := firedAt.Add(t.Interval)
	if t.Spec != "" {
		sched, err := ParseSpec(t.Spec)
		if err != nil {
			// Validated at Schedule time; a parse failure here means the
			// task was mutated out-of-band. Log and skip the successor.
			s.logger.Error("recurring task has invalid spec",
				slog.String("task_id", t.ID.String()),
				slog.String("spec", t.Spec),
			)
			return
		}
		next = sched.Next(firedAt)
	}

	successor := &Task{
		Entity:      outreach.NewEntity(),
		ID:          id.NewTaskID(),
		Type:        t.Type,
		ReferenceID: t.ReferenceID,
		DueAt:       next.UTC(),
		Priority:    t.Priority,
		Status:      StatusPending,
		Recurring:   true,
		Interval:    t.Interval,
		Spec:        t.Spec,
	}
	s.tasks[successor.ID.String()] = successor

	s.logger.Debug("recurring successor scheduled",
		slog.String("task_id", successor.ID.String()),
		slog.String("parent_id", t.ID.String()),
		slog.Time("due_at", successor.DueAt),
	)
}

// pruneExpired removes completed and cancelled tasks older than the
// retention window.
func (s *Scheduler) pruneExpired(now time.Time) {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		if t.Status != StatusCompleted && t.Status != StatusCancelled {
			continue
		}
		ref := t.UpdatedAt
		if t.ExecutedAt != nil {
			ref = *t.ExecutedAt
		}
		if ref.Before(cutoff) {
			delete(s.tasks, key)
		}
	}
}

// snapshot returns a copy of t so callers cannot race with the fire loop.
// Caller may or may not hold mu; t's fields are read without further
// synchronization, so call only from paths that own t or hold mu.
func (s *Scheduler) snapshot(t *Task) *Task {
	cp := *t
	return &cp
}
