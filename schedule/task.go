package schedule

import (
	"time"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
)

// Type identifies the kind of deferred work a task triggers. The
// orchestrator registers one handler per type.
type Type string

const (
	// TypeSend dispatches the initial email for the referenced lead.
	TypeSend Type = "send"
	// TypeFollowUp drafts and sends a follow-up for the referenced lead.
	TypeFollowUp Type = "follow-up"
	// TypeSocialPost publishes a social post for the referenced lead.
	TypeSocialPost Type = "social-post"
	// TypeRecurringScan runs a follow-up candidate scan over all leads.
	TypeRecurringScan Type = "recurring-scan"
)

// Status represents the lifecycle state of a scheduled task.
type Status string

const (
	// StatusPending means the task is waiting for its due time.
	StatusPending Status = "pending"
	// StatusExecuting means the fire loop is running the task's handler.
	StatusExecuting Status = "executing"
	// StatusCompleted means the handler finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the handler returned an error.
	StatusFailed Status = "failed"
	// StatusCancelled means the task was cancelled before firing.
	StatusCancelled Status = "cancelled"
)

// Task is one unit of deferred or recurring work.
type Task struct {
	outreach.Entity

	ID          id.TaskID `json:"id"`
	Type        Type      `json:"type"`
	ReferenceID id.ID     `json:"reference_id,omitempty"`
	DueAt       time.Time `json:"due_at"`
	Priority    int       `json:"priority"`
	Status      Status    `json:"status"`

	// Recurring tasks spawn a successor at fire time.
	Recurring bool `json:"recurring"`
	// Interval is the successor offset for interval recurrence.
	Interval time.Duration `json:"interval,omitempty"`
	// Spec is an optional cron expression. When set it overrides
	// Interval for computing the successor's due time.
	Spec string `json:"spec,omitempty"`

	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}
