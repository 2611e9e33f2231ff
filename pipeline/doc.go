// Package pipeline contains the campaign orchestrator: the component
// that drives leads through discovery, verification, drafting,
// approval, sending, and follow-up.
//
// The orchestrator owns no external integrations itself. Discovery,
// verification, content generation, and mail delivery are collaborator
// interfaces injected at construction time; every externally visible
// call goes through the compliance gate, the per-provider rate limiter,
// and the retry policy, in that order.
//
// One orchestrator instance supports one active campaign run at a time.
package pipeline
