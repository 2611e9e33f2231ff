// Package memory provides a fully in-memory lead store. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// Ensure Store implements lead.Store at compile time.
var _ lead.Store = (*Store)(nil)

// Store is an in-memory implementation of lead.Store. All reads and
// writes copy records so callers cannot race on shared state.
type Store struct {
	mu sync.RWMutex

	leads     map[string]*lead.Lead
	byEmail   map[string]string // normalized email -> lead ID
	companies map[string]*lead.Company
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		leads:     make(map[string]*lead.Lead),
		byEmail:   make(map[string]string),
		companies: make(map[string]*lead.Company),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// SaveLead inserts or replaces a lead by ID.
func (m *Store) SaveLead(_ context.Context, l *lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := l.ID.String()
	email := lead.NormalizeEmail(l.Email)

	// A different lead already holding this email is a conflict.
	if existing, ok := m.byEmail[email]; ok && existing != key {
		return outreach.ErrLeadAlreadyExists
	}

	if prev, ok := m.leads[key]; ok {
		prevEmail := lead.NormalizeEmail(prev.Email)
		if prevEmail != email {
			delete(m.byEmail, prevEmail)
		}
	}

	cp := *l
	m.leads[key] = &cp
	m.byEmail[email] = key
	return nil
}

// GetLead retrieves a lead by ID.
func (m *Store) GetLead(_ context.Context, leadID id.LeadID) (*lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[leadID.String()]
	if !ok {
		return nil, outreach.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

// GetLeadByEmail retrieves a lead by normalized email.
func (m *Store) GetLeadByEmail(_ context.Context, email string) (*lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.byEmail[lead.NormalizeEmail(email)]
	if !ok {
		return nil, outreach.ErrLeadNotFound
	}
	cp := *m.leads[key]
	return &cp, nil
}

// DeleteLead removes a lead by ID.
func (m *Store) DeleteLead(_ context.Context, leadID id.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := leadID.String()
	l, ok := m.leads[key]
	if !ok {
		return outreach.ErrLeadNotFound
	}
	delete(m.byEmail, lead.NormalizeEmail(l.Email))
	delete(m.leads, key)
	return nil
}

// ListLeads returns leads matching opts, ordered by creation time.
func (m *Store) ListLeads(_ context.Context, opts lead.ListOpts) ([]*lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l *lead.Lead) bool {
		return opts.Domain == "" || l.Domain == opts.Domain
	}, opts), nil
}

// ListLeadsByStatus returns leads in the given lifecycle status.
func (m *Store) ListLeadsByStatus(_ context.Context, status lead.Status, opts lead.ListOpts) ([]*lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(l *lead.Lead) bool {
		if l.Status != status {
			return false
		}
		return opts.Domain == "" || l.Domain == opts.Domain
	}, opts), nil
}

// CountLeads returns the number of leads matching opts.
func (m *Store) CountLeads(_ context.Context, opts lead.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, l := range m.leads {
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		if opts.Domain != "" && l.Domain != opts.Domain {
			continue
		}
		n++
	}
	return n, nil
}

// SaveCompany inserts or replaces a company by ID.
func (m *Store) SaveCompany(_ context.Context, c *lead.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.companies[c.ID.String()] = &cp
	return nil
}

// ListCompanies returns all companies ordered by creation time.
func (m *Store) ListCompanies(_ context.Context) ([]*lead.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*lead.Company, 0, len(m.companies))
	for _, c := range m.companies {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// collect filters, sorts, and paginates leads. Caller holds mu.
func (m *Store) collect(match func(*lead.Lead) bool, opts lead.ListOpts) []*lead.Lead {
	result := make([]*lead.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		if match(l) {
			cp := *l
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}
