// Package outreach provides a composable engine for automated outbound
// B2B communication: lead lifecycle management, compliance-gated sending,
// sliding-window rate limiting, retry with backoff, and time-deferred
// scheduling of sends and follow-ups.
//
// Outreach is designed as a library, not a service. Import it, configure
// a store and the provider collaborators, and drive campaigns through the
// pipeline package.
//
// # Quick Start
//
//	eng, err := engine.New(outreach.DefaultConfig(),
//	    engine.WithPipelineOptions(
//	        pipeline.WithSender(sender),
//	        pipeline.WithContentGenerator(generator),
//	    ),
//	)
//	if err := eng.Start(ctx); err != nil { ... }
//	summary, err := eng.Orchestrator().RunCampaign(ctx, "saas founders", true)
//
// # Architecture
//
// Each subsystem lives in its own package (lead, compliance, ratelimit,
// retry, schedule, followup) and owns its own state. The pipeline package
// sits above all of them and composes a campaign run; the engine package
// wires everything together. Persistence is behind the lead.Store
// contract with memory, sqlite, and redis backends under store/.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package outreach
