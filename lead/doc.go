// Package lead defines the Lead entity, its lifecycle state machine, and
// the persistence contract backing it.
//
// A lead advances one-directionally through
// identified → verified → drafted → approved → sent, then either the
// follow-up arc (followUpDrafted → followUpSent) or replied. Opt-out is a
// terminal state reachable from any non-terminal state; bounced is a
// terminal sibling reachable only from sent. The only sanctioned reversal
// is deleting a draft, which returns drafted to verified.
package lead
