package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// SaveLead stores the lead as JSON and maintains the email, status, and
// creation-time indexes.
func (s *Store) SaveLead(ctx context.Context, l *lead.Lead) error {
	lID := l.ID.String()
	email := lead.NormalizeEmail(l.Email)

	// A different lead already holding this email is a conflict.
	owner, err := s.client.HGet(ctx, leadEmailKey, email).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("outreach/redis: save check email: %w", err)
	}
	if owner != "" && owner != lID {
		return outreach.ErrLeadAlreadyExists
	}

	// Load the previous version to clean up stale index entries.
	prev, err := s.getLeadByKey(ctx, leadKey(lID))
	if err != nil && !errors.Is(err, outreach.ErrLeadNotFound) {
		return err
	}

	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("outreach/redis: marshal lead: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, leadKey(lID), data, 0)
	pipe.ZAdd(ctx, leadIDsKey, goredis.Z{
		Score:  float64(l.CreatedAt.UnixNano()),
		Member: lID,
	})
	pipe.HSet(ctx, leadEmailKey, email, lID)
	if prev != nil {
		if prevEmail := lead.NormalizeEmail(prev.Email); prevEmail != email {
			pipe.HDel(ctx, leadEmailKey, prevEmail)
		}
		if prev.Status != l.Status {
			pipe.SRem(ctx, statusKey(string(prev.Status)), lID)
		}
	}
	pipe.SAdd(ctx, statusKey(string(l.Status)), lID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("outreach/redis: save lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by ID.
func (s *Store) GetLead(ctx context.Context, leadID id.LeadID) (*lead.Lead, error) {
	l, err := s.getLeadByKey(ctx, leadKey(leadID.String()))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetLeadByEmail retrieves a lead by normalized email.
func (s *Store) GetLeadByEmail(ctx context.Context, email string) (*lead.Lead, error) {
	lID, err := s.client.HGet(ctx, leadEmailKey, lead.NormalizeEmail(email)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, outreach.ErrLeadNotFound
		}
		return nil, fmt.Errorf("outreach/redis: get by email: %w", err)
	}
	return s.getLeadByKey(ctx, leadKey(lID))
}

// DeleteLead removes a lead and its index entries.
func (s *Store) DeleteLead(ctx context.Context, leadID id.LeadID) error {
	lID := leadID.String()
	l, err := s.getLeadByKey(ctx, leadKey(lID))
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, leadKey(lID))
	pipe.ZRem(ctx, leadIDsKey, lID)
	pipe.HDel(ctx, leadEmailKey, lead.NormalizeEmail(l.Email))
	pipe.SRem(ctx, statusKey(string(l.Status)), lID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("outreach/redis: delete lead: %w", err)
	}
	return nil
}

// ListLeads returns leads matching opts, ordered by creation time.
func (s *Store) ListLeads(ctx context.Context, opts lead.ListOpts) ([]*lead.Lead, error) {
	ids, err := s.client.ZRange(ctx, leadIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("outreach/redis: list lead ids: %w", err)
	}
	return s.loadLeads(ctx, ids, func(l *lead.Lead) bool {
		return opts.Domain == "" || l.Domain == opts.Domain
	}, opts)
}

// ListLeadsByStatus returns leads in the given lifecycle status.
func (s *Store) ListLeadsByStatus(ctx context.Context, status lead.Status, opts lead.ListOpts) ([]*lead.Lead, error) {
	// Intersect the status set with the creation-time ordering.
	ids, err := s.client.ZRange(ctx, leadIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("outreach/redis: list lead ids: %w", err)
	}
	members, err := s.client.SMembers(ctx, statusKey(string(status))).Result()
	if err != nil {
		return nil, fmt.Errorf("outreach/redis: list status members: %w", err)
	}
	inStatus := make(map[string]struct{}, len(members))
	for _, m := range members {
		inStatus[m] = struct{}{}
	}

	ordered := make([]string, 0, len(members))
	for _, lID := range ids {
		if _, ok := inStatus[lID]; ok {
			ordered = append(ordered, lID)
		}
	}
	return s.loadLeads(ctx, ordered, func(l *lead.Lead) bool {
		return opts.Domain == "" || l.Domain == opts.Domain
	}, opts)
}

// CountLeads returns the number of leads matching opts.
func (s *Store) CountLeads(ctx context.Context, opts lead.CountOpts) (int64, error) {
	// Domain filtering needs a load; pure status/total counts are O(1).
	if opts.Domain == "" {
		if opts.Status != "" {
			return s.client.SCard(ctx, statusKey(string(opts.Status))).Result()
		}
		return s.client.ZCard(ctx, leadIDsKey).Result()
	}

	leads, err := s.ListLeads(ctx, lead.ListOpts{Domain: opts.Domain})
	if err != nil {
		return 0, err
	}
	var n int64
	for _, l := range leads {
		if opts.Status == "" || l.Status == opts.Status {
			n++
		}
	}
	return n, nil
}

// SaveCompany stores the company as JSON and indexes it by creation time.
func (s *Store) SaveCompany(ctx context.Context, c *lead.Company) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("outreach/redis: marshal company: %w", err)
	}

	cID := c.ID.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, companyKey(cID), data, 0)
	pipe.ZAdd(ctx, companyIDsKey, goredis.Z{
		Score:  float64(c.CreatedAt.UnixNano()),
		Member: cID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("outreach/redis: save company: %w", err)
	}
	return nil
}

// ListCompanies returns all companies ordered by creation time.
func (s *Store) ListCompanies(ctx context.Context) ([]*lead.Company, error) {
	ids, err := s.client.ZRange(ctx, companyIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("outreach/redis: list company ids: %w", err)
	}

	result := make([]*lead.Company, 0, len(ids))
	for _, cID := range ids {
		data, err := s.client.Get(ctx, companyKey(cID)).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue // index lag, skip
			}
			return nil, fmt.Errorf("outreach/redis: get company: %w", err)
		}
		var c lead.Company
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("outreach/redis: unmarshal company: %w", err)
		}
		result = append(result, &c)
	}
	return result, nil
}

// getLeadByKey loads and decodes one lead.
func (s *Store) getLeadByKey(ctx context.Context, key string) (*lead.Lead, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, outreach.ErrLeadNotFound
		}
		return nil, fmt.Errorf("outreach/redis: get lead: %w", err)
	}
	var l lead.Lead
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return nil, fmt.Errorf("outreach/redis: unmarshal lead: %w", err)
	}
	return &l, nil
}

// loadLeads fetches leads by ID in order, applying filter and pagination.
func (s *Store) loadLeads(ctx context.Context, ids []string, match func(*lead.Lead) bool, opts lead.ListOpts) ([]*lead.Lead, error) {
	var result []*lead.Lead
	for _, lID := range ids {
		l, err := s.getLeadByKey(ctx, leadKey(lID))
		if err != nil {
			if errors.Is(err, outreach.ErrLeadNotFound) {
				continue // index lag, skip
			}
			return nil, err
		}
		if match(l) {
			result = append(result, l)
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}
