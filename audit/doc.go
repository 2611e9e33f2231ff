// Package audit is an extension that bridges outreach lifecycle events
// to an immutable audit trail backend.
//
// Every campaign, lead, and task lifecycle hook emits a structured
// audit event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, warning for
// skips and opt-outs, critical for terminal failures) and rich metadata
// (lead email, campaign query, task type, errors).
//
// # Selective filtering
//
//	audit.New(recorder,
//	    audit.WithActions(
//	        audit.ActionLeadSent,
//	        audit.ActionLeadFailed,
//	    ),
//	)
package audit
