// Package compliance implements the opt-out gate every send passes
// through. The gate owns an append-only log of opt-out records and keeps
// the live blocklist (normalized email and domain sets) as a derived
// projection of that log. It also detects opt-out signals in reply text
// against a fixed multilingual keyword list.
//
// Gate state lives for the process lifetime; construct one instance at
// startup and pass it by reference.
package compliance
