package sqlite

import (
	"context"
	"fmt"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// SaveLead inserts or replaces a lead by ID.
func (s *Store) SaveLead(ctx context.Context, l *lead.Lead) error {
	draft, err := encodeDraft(l.Draft)
	if err != nil {
		return fmt.Errorf("outreach/sqlite: encode draft: %w", err)
	}
	followUpDraft, err := encodeDraft(l.FollowUpDraft)
	if err != nil {
		return fmt.Errorf("outreach/sqlite: encode follow-up draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outreach_leads (
			id, company_id, name, email, domain, title, linkedin,
			status, email_verified, approved, opted_out,
			draft, follow_up_draft, delivery_status, provider_message_id, reply_ref,
			sent_at, follow_up_sent_at, scheduled_send_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name,
			email = excluded.email,
			domain = excluded.domain,
			title = excluded.title,
			linkedin = excluded.linkedin,
			status = excluded.status,
			email_verified = excluded.email_verified,
			approved = excluded.approved,
			opted_out = excluded.opted_out,
			draft = excluded.draft,
			follow_up_draft = excluded.follow_up_draft,
			delivery_status = excluded.delivery_status,
			provider_message_id = excluded.provider_message_id,
			reply_ref = excluded.reply_ref,
			sent_at = excluded.sent_at,
			follow_up_sent_at = excluded.follow_up_sent_at,
			scheduled_send_at = excluded.scheduled_send_at,
			updated_at = excluded.updated_at`,
		l.ID.String(), companyIDValue(l.CompanyID), l.Name, lead.NormalizeEmail(l.Email),
		l.Domain, l.Title, l.LinkedIn,
		string(l.Status), l.EmailVerified, l.Approved, l.OptedOut,
		draft, followUpDraft, l.DeliveryStatus, l.ProviderMessageID, l.ReplyRef,
		encodeTimePtr(l.SentAt), encodeTimePtr(l.FollowUpSentAt), encodeTimePtr(l.ScheduledSendAt),
		encodeTime(l.CreatedAt), encodeTime(l.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return outreach.ErrLeadAlreadyExists
		}
		return fmt.Errorf("outreach/sqlite: save lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by ID.
func (s *Store) GetLead(ctx context.Context, leadID id.LeadID) (*lead.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM outreach_leads WHERE id = ?`,
		leadID.String(),
	)
	return scanLead(row)
}

// GetLeadByEmail retrieves a lead by normalized email.
func (s *Store) GetLeadByEmail(ctx context.Context, email string) (*lead.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM outreach_leads WHERE email = ?`,
		lead.NormalizeEmail(email),
	)
	return scanLead(row)
}

// DeleteLead removes a lead by ID.
func (s *Store) DeleteLead(ctx context.Context, leadID id.LeadID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outreach_leads WHERE id = ?`, leadID.String())
	if err != nil {
		return fmt.Errorf("outreach/sqlite: delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outreach/sqlite: delete lead: %w", err)
	}
	if n == 0 {
		return outreach.ErrLeadNotFound
	}
	return nil
}

// ListLeads returns leads matching opts, ordered by creation time.
func (s *Store) ListLeads(ctx context.Context, opts lead.ListOpts) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM outreach_leads`
	var args []any
	if opts.Domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, opts.Domain)
	}
	query += ` ORDER BY created_at ASC`
	query, args = applyPagination(query, args, opts)

	return s.queryLeads(ctx, query, args...)
}

// ListLeadsByStatus returns leads in the given lifecycle status.
func (s *Store) ListLeadsByStatus(ctx context.Context, status lead.Status, opts lead.ListOpts) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM outreach_leads WHERE status = ?`
	args := []any{string(status)}
	if opts.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, opts.Domain)
	}
	query += ` ORDER BY created_at ASC`
	query, args = applyPagination(query, args, opts)

	return s.queryLeads(ctx, query, args...)
}

// CountLeads returns the number of leads matching opts.
func (s *Store) CountLeads(ctx context.Context, opts lead.CountOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM outreach_leads WHERE 1=1`
	var args []any
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	if opts.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, opts.Domain)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("outreach/sqlite: count leads: %w", err)
	}
	return n, nil
}

// SaveCompany inserts or replaces a company by ID.
func (s *Store) SaveCompany(ctx context.Context, c *lead.Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outreach_companies (id, name, domain, website, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			website = excluded.website,
			updated_at = excluded.updated_at`,
		c.ID.String(), c.Name, c.Domain, c.Website,
		encodeTime(c.CreatedAt), encodeTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("outreach/sqlite: save company: %w", err)
	}
	return nil
}

// ListCompanies returns all companies ordered by creation time.
func (s *Store) ListCompanies(ctx context.Context) ([]*lead.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, domain, website, created_at, updated_at
		FROM outreach_companies ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("outreach/sqlite: list companies: %w", err)
	}
	defer rows.Close()

	var result []*lead.Company
	for rows.Next() {
		var (
			c                    lead.Company
			cid                  string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&cid, &c.Name, &c.Domain, &c.Website, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("outreach/sqlite: scan company: %w", err)
		}
		if c.ID, err = id.Parse(cid); err != nil {
			return nil, fmt.Errorf("outreach/sqlite: company id: %w", err)
		}
		if c.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("outreach/sqlite: created_at: %w", err)
		}
		if c.UpdatedAt, err = decodeTime(updatedAt); err != nil {
			return nil, fmt.Errorf("outreach/sqlite: updated_at: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// queryLeads runs a multi-row lead query.
func (s *Store) queryLeads(ctx context.Context, query string, args ...any) ([]*lead.Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("outreach/sqlite: query leads: %w", err)
	}
	defer rows.Close()

	var result []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// applyPagination appends LIMIT/OFFSET clauses. SQLite requires a LIMIT
// when OFFSET is used.
func applyPagination(query string, args []any, opts lead.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += ` LIMIT -1`
	}
	if opts.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}
	return query, args
}
