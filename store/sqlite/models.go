package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

// timeFormat is RFC 3339 with sub-second precision, sortable as text.
const timeFormat = time.RFC3339Nano

// leadColumns is the column list shared by all lead queries, in the
// order scanLead expects.
const leadColumns = `id, company_id, name, email, domain, title, linkedin,
	status, email_verified, approved, opted_out,
	draft, follow_up_draft, delivery_status, provider_message_id, reply_ref,
	sent_at, follow_up_sent_at, scheduled_send_at, created_at, updated_at`

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func encodeTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func decodeTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := decodeTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeDraft(d *lead.Draft) (sql.NullString, error) {
	if d == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeDraft(ns sql.NullString) (*lead.Draft, error) {
	if !ns.Valid {
		return nil, nil
	}
	var d lead.Draft
	if err := json.Unmarshal([]byte(ns.String), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLead reads one lead row. Column order must match leadColumns.
func scanLead(row rowScanner) (*lead.Lead, error) {
	var (
		l                                       lead.Lead
		leadID, companyID                       string
		draft, followUpDraft                    sql.NullString
		domain, title, linkedin                 sql.NullString
		deliveryStatus, providerMsgID, replyRef sql.NullString
		sentAt, followUpSentAt, scheduledSendAt sql.NullString
		createdAt, updatedAt                    string
	)

	err := row.Scan(
		&leadID, &companyID, &l.Name, &l.Email, &domain, &title, &linkedin,
		&l.Status, &l.EmailVerified, &l.Approved, &l.OptedOut,
		&draft, &followUpDraft, &deliveryStatus, &providerMsgID, &replyRef,
		&sentAt, &followUpSentAt, &scheduledSendAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, outreach.ErrLeadNotFound
		}
		return nil, fmt.Errorf("outreach/sqlite: scan lead: %w", err)
	}

	if l.ID, err = id.Parse(leadID); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: lead id: %w", err)
	}
	if companyID != "" {
		if l.CompanyID, err = id.Parse(companyID); err != nil {
			return nil, fmt.Errorf("outreach/sqlite: company id: %w", err)
		}
	}
	l.Domain = domain.String
	l.Title = title.String
	l.LinkedIn = linkedin.String
	l.DeliveryStatus = deliveryStatus.String
	l.ProviderMessageID = providerMsgID.String
	l.ReplyRef = replyRef.String

	if l.Draft, err = decodeDraft(draft); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: decode draft: %w", err)
	}
	if l.FollowUpDraft, err = decodeDraft(followUpDraft); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: decode follow-up draft: %w", err)
	}

	if l.SentAt, err = decodeTimePtr(sentAt); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: sent_at: %w", err)
	}
	if l.FollowUpSentAt, err = decodeTimePtr(followUpSentAt); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: follow_up_sent_at: %w", err)
	}
	if l.ScheduledSendAt, err = decodeTimePtr(scheduledSendAt); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: scheduled_send_at: %w", err)
	}
	if l.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: created_at: %w", err)
	}
	if l.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("outreach/sqlite: updated_at: %w", err)
	}
	return &l, nil
}

// companyIDValue encodes a possibly-nil company reference.
func companyIDValue(cid id.CompanyID) string {
	if cid.IsNil() {
		return ""
	}
	return cid.String()
}
