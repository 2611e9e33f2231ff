package pipeline

import (
	"context"
	"time"

	"github.com/liftoffhq/outreach/lead"
)

// CompanyDiscoverer finds companies matching a free-text query.
type CompanyDiscoverer interface {
	DiscoverCompanies(ctx context.Context, query string, limit int) ([]*lead.Company, error)
}

// ContactDiscoverer finds prospective contacts at a single company.
type ContactDiscoverer interface {
	DiscoverContacts(ctx context.Context, company *lead.Company) ([]*lead.Lead, error)
}

// EmailVerifier checks whether an address is deliverable.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (bool, error)
}

// ContentGenerator produces outreach copy for a lead. FollowUp is
// called with the original draft so the generated message can reference
// the first touch.
type ContentGenerator interface {
	Draft(ctx context.Context, l *lead.Lead) (*lead.Draft, error)
	FollowUp(ctx context.Context, l *lead.Lead, original *lead.Draft) (*lead.Draft, error)
}

// MailSender delivers a single message and returns the provider's
// message id.
type MailSender interface {
	Send(ctx context.Context, to, from, subject, body string) (string, error)
}

// TokenRefresher renews expired provider credentials. The orchestrator
// invokes it at most once per send attempt when the sender reports an
// authentication failure.
type TokenRefresher interface {
	Refresh(ctx context.Context) error
}

// Message is an inbound mail message surfaced by a MailReader.
type Message struct {
	ID      string
	From    string
	Subject string
	Body    string
	At      time.Time
}

// MailReader searches the connected mailbox. The criteria string uses
// the provider's native search syntax.
type MailReader interface {
	Search(ctx context.Context, criteria string) ([]Message, error)
}

// SheetLogger appends audit rows to an external spreadsheet.
type SheetLogger interface {
	AppendRow(ctx context.Context, values []string) error
	ReadRows(ctx context.Context, rng string) ([][]string, error)
}

// SocialPoster publishes a post and returns its id.
type SocialPoster interface {
	Post(ctx context.Context, text string) (string, error)
}
