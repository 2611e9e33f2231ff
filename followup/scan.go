package followup

import (
	"sort"
	"time"

	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// Priority scoring weights. The base score marks a lead as merely due;
// the boosts bias the queue toward contacts most likely to respond.
const (
	basePriority    = 50
	overduePerDay   = 2
	overdueBoostCap = 30
	verifiedBoost   = 10
	secondaryBoost  = 15
)

// Config controls which leads qualify for a follow-up.
type Config struct {
	// DaysThreshold is the minimum whole days since the initial send.
	DaysThreshold int
	// ExcludeReplied skips leads that already replied.
	ExcludeReplied bool
	// ExcludeOptedOut skips leads that opted out.
	ExcludeOptedOut bool
}

// DefaultConfig waits three days, and never follows up on replied or
// opted-out leads.
func DefaultConfig() Config {
	return Config{
		DaysThreshold:   3,
		ExcludeReplied:  true,
		ExcludeOptedOut: true,
	}
}

// Candidate is one lead due for a follow-up, with a computed priority.
type Candidate struct {
	LeadID        id.LeadID
	Email         string
	Name          string
	DaysSinceSent int
	Priority      int
}

// Scan walks the lead snapshot and returns follow-up candidates sorted
// by descending priority. Leads qualify when they were sent, have no
// follow-up yet, and the initial send is at least DaysThreshold days
// old.
func Scan(leads []*lead.Lead, cfg Config, now time.Time) []Candidate {
	var out []Candidate
	for _, l := range leads {
		if l.SentAt == nil || l.FollowUpSentAt != nil {
			continue
		}
		if cfg.ExcludeOptedOut && l.OptedOut {
			continue
		}
		if cfg.ExcludeReplied && (l.Status == lead.StatusReplied || l.ReplyRef != "") {
			continue
		}
		days := l.DaysSinceSent(now)
		if days < cfg.DaysThreshold {
			continue
		}
		out = append(out, Candidate{
			LeadID:        l.ID,
			Email:         l.Email,
			Name:          l.Name,
			DaysSinceSent: days,
			Priority:      score(l, days, cfg.DaysThreshold),
		})
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Priority > out[k].Priority
	})
	return out
}

// score computes the candidate priority: a base value plus boosts for
// how overdue the follow-up is, a verified address, and a secondary
// contact channel.
func score(l *lead.Lead, days, threshold int) int {
	p := basePriority

	overdue := (days - threshold) * overduePerDay
	if overdue > overdueBoostCap {
		overdue = overdueBoostCap
	}
	p += overdue

	if l.EmailVerified {
		p += verifiedBoost
	}
	if l.LinkedIn != "" {
		p += secondaryBoost
	}
	return p
}
