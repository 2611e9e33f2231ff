// Package followup derives prioritized follow-up candidates from a lead
// snapshot. Scan is a pure function with no side effects, so the
// orchestrator can run it on every recurring-scan tick without extra
// bookkeeping.
package followup
