package lead

import (
	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
)

// Company represents an organization discovered as an outreach target.
// Leads reference their company through CompanyID.
type Company struct {
	outreach.Entity

	ID      id.CompanyID `json:"id"`
	Name    string       `json:"name"`
	Domain  string       `json:"domain,omitempty"`
	Website string       `json:"website,omitempty"`
}

// NewCompany creates a Company.
func NewCompany(name, domain string) *Company {
	return &Company{
		Entity: outreach.NewEntity(),
		ID:     id.NewCompanyID(),
		Name:   name,
		Domain: domain,
	}
}
