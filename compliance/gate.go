package compliance

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// Record is one append-only opt-out log entry. The live blocklist is
// derived from these records and never diverges from them.
type Record struct {
	ID     id.OptOutID `json:"id"`
	Email  string      `json:"email"`
	Domain string      `json:"domain,omitempty"`
	Reason string      `json:"reason"`
	Source string      `json:"source"`
	At     time.Time   `json:"at"`
}

// Decision is the outcome of a CanSend check.
type Decision struct {
	Allowed bool
	// Reason explains a denial in human-readable form. Empty when allowed.
	Reason string
}

// optOutKeywords is the fixed multilingual signal list scanned by
// DetectOptOutSignal. Matching is case-insensitive substring.
var optOutKeywords = []string{
	// English
	"unsubscribe",
	"opt out",
	"opt-out",
	"remove me",
	"stop emailing",
	"do not contact",
	"gdpr",
	// German
	"abmelden",
	"austragen",
	"keine weiteren e-mails",
	"dsgvo",
	// French
	"désabonner",
	"se désinscrire",
	// Spanish
	"darse de baja",
	"no deseo recibir",
}

// Gate answers whether a recipient may be contacted. Safe for concurrent
// use; reads observe a consistent snapshot of the blocklist.
type Gate struct {
	logger *slog.Logger

	mu      sync.RWMutex
	records []Record
	emails  map[string]struct{}
	domains map[string]struct{}
}

// NewGate creates an empty Gate.
func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		logger:  logger,
		emails:  make(map[string]struct{}),
		domains: make(map[string]struct{}),
	}
}

// CanSend reports whether the given recipient may be emailed. Both the
// normalized email and its domain are checked against the blocklist.
// Callers must invoke this synchronously immediately before dispatch:
// opt-out state may have changed since the send was queued.
func (g *Gate) CanSend(email, domain string) Decision {
	email = lead.NormalizeEmail(email)
	if domain == "" {
		domain = lead.DomainOf(email)
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, blocked := g.emails[email]; blocked {
		return Decision{Reason: "recipient opted out: " + email}
	}
	if domain != "" {
		if _, blocked := g.domains[domain]; blocked {
			return Decision{Reason: "recipient domain blocked: " + domain}
		}
	}
	return Decision{Allowed: true}
}

// AddOptOut appends an opt-out record and inserts the email (and domain,
// if given) into the blocklist. Adding an already-blocked email is a
// no-op: the record log and the derived sets are left untouched.
func (g *Gate) AddOptOut(email, domain, reason, source string) {
	email = lead.NormalizeEmail(email)
	domain = strings.ToLower(strings.TrimSpace(domain))

	g.mu.Lock()
	defer g.mu.Unlock()

	_, emailBlocked := g.emails[email]
	domainCovered := domain == ""
	if !domainCovered {
		_, domainCovered = g.domains[domain]
	}
	if emailBlocked && domainCovered {
		return
	}

	g.records = append(g.records, Record{
		ID:     id.NewOptOutID(),
		Email:  email,
		Domain: domain,
		Reason: reason,
		Source: source,
		At:     time.Now().UTC(),
	})
	g.emails[email] = struct{}{}
	if domain != "" {
		g.domains[domain] = struct{}{}
	}

	g.logger.Info("opt-out recorded",
		slog.String("email", email),
		slog.String("domain", domain),
		slog.String("reason", reason),
		slog.String("source", source),
	)
}

// DetectOptOutSignal scans reply text for opt-out keywords. On a match
// it records an opt-out for the sender and returns true.
func (g *Gate) DetectOptOutSignal(replyText, senderEmail string) bool {
	lowered := strings.ToLower(replyText)
	for _, kw := range optOutKeywords {
		if strings.Contains(lowered, kw) {
			g.AddOptOut(senderEmail, "", "opt-out signal in reply: "+kw, "reply-scan")
			return true
		}
	}
	return false
}

// Records returns a copy of the append-only opt-out log.
func (g *Gate) Records() []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Record, len(g.records))
	copy(out, g.records)
	return out
}

// BlockedEmails returns the number of individually blocked addresses.
func (g *Gate) BlockedEmails() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.emails)
}

// BlockedDomains returns the number of blocked domains.
func (g *Gate) BlockedDomains() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.domains)
}
