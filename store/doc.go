// Package store documents the available persistence backends. The
// contract itself is [lead.Store]; a backend need only implement it to
// serve the whole engine.
//
// # Available Backends
//
//   - store/memory — in-memory store for development and testing
//   - store/sqlite — SQLite backend (modernc.org/sqlite, no cgo)
//   - store/redis — Redis backend
//
// # Usage
//
//	import "github.com/liftoffhq/outreach/store/sqlite"
//
//	s, err := sqlite.New(ctx, "outreach.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
// # Migrations
//
// Call Migrate once at startup to create or update the schema:
//
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package store
