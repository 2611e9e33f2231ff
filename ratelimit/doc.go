// Package ratelimit provides sliding-window admission control, one
// window per external provider key.
//
// Acquire blocks until the provider's trailing window has capacity, then
// records the request. Within one key, callers are admitted strictly in
// arrival order (FIFO) as capacity frees up. Remaining and Stats are
// read-only diagnostics and never mutate window state.
//
// Limiter state lives for the process lifetime; construct one instance
// at startup and pass it by reference.
package ratelimit
