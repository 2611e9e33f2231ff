// Package engine wires all outreach subsystems together: store,
// compliance gate, rate limiter, scheduler, extension registry,
// middleware chain, and the pipeline orchestrator.
//
// This package exists to break the import cycle: the root outreach
// package defines Entity and Config (imported by lead, schedule, etc.)
// and so cannot import those packages back. The engine package sits
// above all subsystem packages and below the application layer.
package engine
