// Package schedule provides the time-ordered task queue that defers
// pipeline work: scheduled sends, follow-ups, social posts, and
// recurring scans.
//
// A Scheduler runs a tick loop that fires every due pending task
// through a handler registered per task type. Recurring tasks spawn a
// successor at fire time — either a fixed interval ahead or at the next
// occurrence of a cron expression — and the fired task completes.
// Completed tasks older than the retention window are pruned.
//
// The fire loop is the only mutator of task lifecycle state; Schedule
// and Cancel may be called concurrently from any goroutine.
package schedule
