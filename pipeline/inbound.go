package pipeline

import (
	"context"
	"fmt"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/lead"
)

// awaitingReply lists the statuses in which an inbound reply is
// meaningful.
var awaitingReply = []lead.Status{
	lead.StatusSent,
	lead.StatusFollowUpDrafted,
	lead.StatusFollowUpSent,
}

// CheckReplies searches the mailbox for replies from contacted leads.
// A reply carrying an opt-out signal moves the lead to optedOut and
// records the opt-out with the compliance gate; any other reply moves
// it to replied. Returns the number of replies detected.
func (o *Orchestrator) CheckReplies(ctx context.Context) (int, error) {
	if o.reader == nil {
		return 0, nil
	}

	detected := 0
	for _, status := range awaitingReply {
		leads, err := o.store.ListLeadsByStatus(ctx, status, lead.ListOpts{})
		if err != nil {
			return detected, err
		}
		for _, l := range leads {
			if err := ctx.Err(); err != nil {
				return detected, err
			}
			if err := o.limiter.Acquire(ctx, outreach.ProviderMailRead); err != nil {
				return detected, err
			}

			msgs, err := o.reader.Search(ctx, "from:"+l.Email)
			if err != nil {
				o.journalf(LevelError, "reply search failed for %s: %v", l.Email, err)
				continue
			}
			if len(msgs) == 0 {
				continue
			}

			msg := msgs[0]
			l.ReplyRef = msg.ID
			if o.gate.DetectOptOutSignal(msg.Body, l.Email) {
				o.gate.AddOptOut(l.Email, "", "opt-out reply", "reply")
				if err := l.Transition(lead.StatusOptedOut); err != nil {
					return detected, err
				}
				o.journalf(LevelWarning, "%s opted out", l.Email)
			} else {
				if err := l.Transition(lead.StatusReplied); err != nil {
					return detected, err
				}
				o.journalf(LevelSuccess, "%s replied", l.Email)
			}
			if err := o.store.SaveLead(ctx, l); err != nil {
				return detected, err
			}
			o.hooks.EmitReplyDetected(ctx, l, msg.ID)
			o.appendAuditRow(ctx, l, "reply")
			detected++
		}
	}
	return detected, nil
}

// CheckBounces searches the mailbox for delivery failure notices and
// moves affected leads from sent to bounced. Returns the number of
// bounces detected.
func (o *Orchestrator) CheckBounces(ctx context.Context) (int, error) {
	if o.reader == nil {
		return 0, nil
	}

	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusSent, lead.ListOpts{})
	if err != nil {
		return 0, err
	}

	detected := 0
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return detected, err
		}
		if err := o.limiter.Acquire(ctx, outreach.ProviderMailRead); err != nil {
			return detected, err
		}

		criteria := fmt.Sprintf("from:mailer-daemon %q", l.Email)
		msgs, err := o.reader.Search(ctx, criteria)
		if err != nil {
			o.journalf(LevelError, "bounce search failed for %s: %v", l.Email, err)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		if err := l.Transition(lead.StatusBounced); err != nil {
			return detected, err
		}
		l.DeliveryStatus = "bounced"
		if err := o.store.SaveLead(ctx, l); err != nil {
			return detected, err
		}
		o.journalf(LevelWarning, "delivery bounced for %s", l.Email)
		o.appendAuditRow(ctx, l, "bounce")
		detected++
	}
	return detected, nil
}
