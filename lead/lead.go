package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
)

// Status represents the lifecycle state of a lead.
type Status string

const (
	// StatusIdentified means the contact was discovered but not yet verified.
	StatusIdentified Status = "identified"
	// StatusVerified means the email address passed verification.
	StatusVerified Status = "verified"
	// StatusDrafted means outreach content has been generated.
	StatusDrafted Status = "drafted"
	// StatusApproved means the draft was approved for sending.
	StatusApproved Status = "approved"
	// StatusSent means the initial email was dispatched.
	StatusSent Status = "sent"
	// StatusFollowUpDrafted means a follow-up draft exists.
	StatusFollowUpDrafted Status = "followUpDrafted"
	// StatusFollowUpSent means the follow-up was dispatched.
	StatusFollowUpSent Status = "followUpSent"
	// StatusReplied means the contact answered. Terminal.
	StatusReplied Status = "replied"
	// StatusOptedOut means the contact must never be emailed again. Terminal.
	StatusOptedOut Status = "optedOut"
	// StatusBounced means delivery failed hard. Terminal, reachable from sent only.
	StatusBounced Status = "bounced"
)

// transitions lists the legal forward edges of the lifecycle.
// Opt-out from non-terminal states is handled separately in CanTransition.
var transitions = map[Status][]Status{
	StatusIdentified:      {StatusVerified},
	StatusVerified:        {StatusDrafted},
	StatusDrafted:         {StatusApproved, StatusVerified}, // back-edge: manual draft deletion
	StatusApproved:        {StatusSent},
	StatusSent:            {StatusFollowUpDrafted, StatusReplied, StatusBounced},
	StatusFollowUpDrafted: {StatusFollowUpSent, StatusReplied},
	StatusFollowUpSent:    {StatusReplied},
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusReplied || s == StatusOptedOut || s == StatusBounced
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another. Any non-terminal status may move to optedOut.
func CanTransition(from, to Status) bool {
	if to == StatusOptedOut {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Draft holds generated outreach content for a lead.
type Draft struct {
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Lead represents one contact progressing through the outreach lifecycle.
type Lead struct {
	outreach.Entity

	ID        id.LeadID    `json:"id"`
	CompanyID id.CompanyID `json:"company_id,omitempty"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Domain    string       `json:"domain,omitempty"`
	Title     string       `json:"title,omitempty"`
	LinkedIn  string       `json:"linkedin,omitempty"`

	Status        Status `json:"status"`
	EmailVerified bool   `json:"email_verified"`
	Approved      bool   `json:"approved"`
	OptedOut      bool   `json:"opted_out"`

	Draft          *Draft `json:"draft,omitempty"`
	FollowUpDraft  *Draft `json:"follow_up_draft,omitempty"`
	DeliveryStatus string `json:"delivery_status,omitempty"`

	// ProviderMessageID is the mail provider's identifier for the sent
	// message, recorded by the send action.
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	// ReplyRef references the inbound message detected as a reply.
	ReplyRef string `json:"reply_ref,omitempty"`

	SentAt          *time.Time `json:"sent_at,omitempty"`
	FollowUpSentAt  *time.Time `json:"follow_up_sent_at,omitempty"`
	ScheduledSendAt *time.Time `json:"scheduled_send_at,omitempty"`
}

// New creates a Lead in the identified state.
func New(name, email string) *Lead {
	email = NormalizeEmail(email)
	return &Lead{
		Entity: outreach.NewEntity(),
		ID:     id.NewLeadID(),
		Name:   name,
		Email:  email,
		Domain: DomainOf(email),
		Status: StatusIdentified,
	}
}

// Transition moves the lead to the given status, enforcing the lifecycle
// rules. Moving to optedOut also sets the monotonic OptedOut flag.
func (l *Lead) Transition(to Status) error {
	if !CanTransition(l.Status, to) {
		return fmt.Errorf("%w: %s -> %s", outreach.ErrInvalidTransition, l.Status, to)
	}
	l.Status = to
	if to == StatusOptedOut {
		l.OptedOut = true
	}
	l.Touch()
	return nil
}

// MarkSent records the initial send. It enforces the send invariants:
// the lead must be approved and must not have been sent before. SentAt
// is set exactly once, only through this method.
func (l *Lead) MarkSent(messageID string, at time.Time) error {
	if !l.Approved {
		return outreach.ErrNotApproved
	}
	if l.SentAt != nil {
		return outreach.ErrAlreadySent
	}
	if err := l.Transition(StatusSent); err != nil {
		return err
	}
	sentAt := at.UTC()
	l.SentAt = &sentAt
	l.ProviderMessageID = messageID
	l.DeliveryStatus = "accepted"
	l.ScheduledSendAt = nil
	return nil
}

// MarkFollowUpSent records the follow-up send.
func (l *Lead) MarkFollowUpSent(at time.Time) error {
	if err := l.Transition(StatusFollowUpSent); err != nil {
		return err
	}
	sentAt := at.UTC()
	l.FollowUpSentAt = &sentAt
	return nil
}

// DeleteDraft discards the current draft and returns the lead to
// verified. This is the only sanctioned backward transition.
func (l *Lead) DeleteDraft() error {
	if err := l.Transition(StatusVerified); err != nil {
		return err
	}
	l.Draft = nil
	l.Approved = false
	return nil
}

// DaysSinceSent returns the whole days elapsed since the initial send,
// or -1 if the lead has not been sent.
func (l *Lead) DaysSinceSent(now time.Time) int {
	if l.SentAt == nil {
		return -1
	}
	return int(now.UTC().Sub(*l.SentAt).Hours() / 24)
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// stored keys use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DomainOf extracts the domain part of an email address, normalized.
// Returns an empty string if the address has no domain part.
func DomainOf(email string) string {
	email = NormalizeEmail(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
