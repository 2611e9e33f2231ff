package pipeline

import (
	"time"
)

// Phase is the coarse state of the orchestrator's current campaign run.
type Phase string

const (
	// PhaseIdle means no campaign has run yet.
	PhaseIdle Phase = "idle"
	// PhaseRunning means a campaign run is in progress.
	PhaseRunning Phase = "running"
	// PhasePaused means an operator paused the run. Only Resume leaves
	// this phase; the automated path never enters it.
	PhasePaused Phase = "paused"
	// PhaseCompleted means the last run finished, cancelled or not.
	PhaseCompleted Phase = "completed"
	// PhaseFailed means the last run aborted with an error.
	PhaseFailed Phase = "failed"
)

// Progress is a point-in-time snapshot of the current run.
type Progress struct {
	Phase Phase `json:"phase"`

	// Step names the stage in flight, e.g. "verifying emails".
	Step string `json:"step,omitempty"`

	// Current and Total track per-stage item progress. Total is zero
	// when the stage size is unknown up front.
	Current int `json:"current"`
	Total   int `json:"total"`

	// Error holds the failure message when Phase is failed.
	Error string `json:"error,omitempty"`
}

// Journal entry levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// JournalEntry is one line of the orchestrator's activity journal.
type JournalEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Summary reports what one campaign run accomplished.
type Summary struct {
	Query        string    `json:"query"`
	NewCompanies int       `json:"new_companies"`
	NewLeads     int       `json:"new_leads"`
	Verified     int       `json:"verified"`
	Drafted      int       `json:"drafted"`
	Approved     int       `json:"approved"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	WasCancelled bool      `json:"was_cancelled"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// SendReport reports the outcome of a send sweep.
type SendReport struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
