package lead

import (
	"context"

	"github.com/liftoffhq/outreach/id"
)

// ListOpts controls pagination and filtering for lead list queries.
type ListOpts struct {
	// Limit is the maximum number of leads to return. Zero means no limit.
	Limit int
	// Offset is the number of leads to skip.
	Offset int
	// Domain filters by email domain. Empty means all domains.
	Domain string
}

// CountOpts controls filtering for lead count queries.
type CountOpts struct {
	// Status filters by lifecycle status. Empty means all statuses.
	Status Status
	// Domain filters by email domain. Empty means all domains.
	Domain string
}

// Store defines the persistence contract for leads and companies.
// The engine treats it as durable and synchronous; implementations live
// under store/.
type Store interface {
	// SaveLead persists a lead, inserting or replacing by ID.
	SaveLead(ctx context.Context, l *Lead) error

	// GetLead retrieves a lead by ID.
	GetLead(ctx context.Context, leadID id.LeadID) (*Lead, error)

	// GetLeadByEmail retrieves a lead by normalized email address.
	GetLeadByEmail(ctx context.Context, email string) (*Lead, error)

	// DeleteLead removes a lead by ID.
	DeleteLead(ctx context.Context, leadID id.LeadID) error

	// ListLeads returns leads matching the given options, ordered by
	// creation time.
	ListLeads(ctx context.Context, opts ListOpts) ([]*Lead, error)

	// ListLeadsByStatus returns leads in the given lifecycle status.
	ListLeadsByStatus(ctx context.Context, status Status, opts ListOpts) ([]*Lead, error)

	// CountLeads returns the number of leads matching the given options.
	CountLeads(ctx context.Context, opts CountOpts) (int64, error)

	// SaveCompany persists a company, inserting or replacing by ID.
	SaveCompany(ctx context.Context, c *Company) error

	// ListCompanies returns all companies ordered by creation time.
	ListCompanies(ctx context.Context) ([]*Company, error)

	// Migrate prepares the backing schema. No-op for memory stores.
	Migrate(ctx context.Context) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
