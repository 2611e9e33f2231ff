// Package observability provides an OpenTelemetry-based metrics
// extension for the outreach engine. The MetricsExtension implements
// lifecycle hooks to record system-wide counters for campaign runs,
// drafts, sends, skips, failures, replies, and fired tasks.
//
// For per-call tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
