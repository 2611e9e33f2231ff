package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/followup"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
	"github.com/liftoffhq/outreach/retry"
	"github.com/liftoffhq/outreach/schedule"
)

// Approve marks a drafted lead as approved for sending.
func (o *Orchestrator) Approve(ctx context.Context, leadID id.LeadID) error {
	l, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return err
	}
	if err := l.Transition(lead.StatusApproved); err != nil {
		return err
	}
	l.Approved = true
	if err := o.store.SaveLead(ctx, l); err != nil {
		return err
	}
	o.journalf(LevelInfo, "approved %s", l.Email)
	return nil
}

// ApproveAll approves every drafted lead and returns the count.
func (o *Orchestrator) ApproveAll(ctx context.Context) (int, error) {
	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusDrafted, lead.ListOpts{})
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, l := range leads {
		if err := o.Approve(ctx, l.ID); err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}

// SendAll sends the initial email for every approved lead, immediately
// and regardless of the send window. A lead blocked by the compliance
// gate is skipped; a lead whose delivery fails after retries is counted
// as failed and the sweep continues.
func (o *Orchestrator) SendAll(ctx context.Context) (*SendReport, error) {
	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusApproved, lead.ListOpts{})
	if err != nil {
		return nil, err
	}

	report := &SendReport{}
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		skipped, err := o.sendLead(ctx, l)
		switch {
		case err != nil:
			o.journalf(LevelError, "send failed for %s: %v", l.Email, err)
			o.hooks.EmitLeadFailed(ctx, l, err)
			report.Failed++
		case skipped:
			report.Skipped++
		default:
			report.Sent++
		}
	}
	o.journalf(LevelInfo, "send sweep: %d sent, %d skipped, %d failed", report.Sent, report.Skipped, report.Failed)
	return report, nil
}

// ScheduleSends queues a send task for every approved lead at the next
// time inside the configured send window. Leads already queued keep
// their slot.
func (o *Orchestrator) ScheduleSends(ctx context.Context) (int, error) {
	if o.scheduler == nil {
		return 0, fmt.Errorf("pipeline: no scheduler configured")
	}
	leads, err := o.store.ListLeadsByStatus(ctx, lead.StatusApproved, lead.ListOpts{})
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, l := range leads {
		if l.ScheduledSendAt != nil {
			continue
		}
		at := schedule.NextSendTime(o.now(), o.cfg.SendWindowStart, o.cfg.SendWindowEnd)
		if _, err := o.scheduler.ScheduleSend(l.ID, at); err != nil {
			return queued, err
		}
		l.ScheduledSendAt = &at
		if err := o.store.SaveLead(ctx, l); err != nil {
			return queued, err
		}
		queued++
	}
	o.journalf(LevelInfo, "queued %d sends", queued)
	return queued, nil
}

// sendLead dispatches the initial email for one lead. The compliance
// gate is consulted again at send time: approval does not outlive an
// opt-out recorded after it.
func (o *Orchestrator) sendLead(ctx context.Context, l *lead.Lead) (skipped bool, err error) {
	if !l.Approved || l.Status != lead.StatusApproved {
		return false, outreach.ErrNotApproved
	}
	if l.Draft == nil {
		return false, fmt.Errorf("pipeline: lead %s has no draft", l.ID)
	}

	if d := o.gate.CanSend(l.Email, l.Domain); !d.Allowed {
		o.journalf(LevelWarning, "skipping %s: %s", l.Email, d.Reason)
		o.hooks.EmitLeadSkipped(ctx, l, d.Reason)
		return true, nil
	}

	msgID, err := o.sendMessage(ctx, l, "email.send", l.Email, l.Draft.Subject, l.Draft.Body)
	if err != nil {
		return false, err
	}

	if err := l.MarkSent(msgID, o.now()); err != nil {
		return false, err
	}
	if err := o.store.SaveLead(ctx, l); err != nil {
		return false, err
	}

	o.hooks.EmitLeadSent(ctx, l, msgID)
	o.journalf(LevelSuccess, "sent to %s", l.Email)
	o.logger.Info("email sent", "lead_id", l.ID, "email", l.Email, "message_id", msgID)
	o.appendAuditRow(ctx, l, "sent")
	return false, nil
}

// sendMessage runs one delivery through the limiter, the middleware
// chain, and the retry policy. An authentication failure triggers at
// most one credential refresh and re-send before propagating.
func (o *Orchestrator) sendMessage(ctx context.Context, l *lead.Lead, name, to, subject, body string) (string, error) {
	if o.sender == nil {
		return "", fmt.Errorf("pipeline: no mail sender configured")
	}
	if err := o.limiter.Acquire(ctx, outreach.ProviderMailSend); err != nil {
		return "", err
	}

	a := &outreach.Action{Name: name, Provider: outreach.ProviderMailSend, LeadID: l.ID}
	return runAction(ctx, o, a, func(ctx context.Context) (string, error) {
		return retry.Do(ctx, o.policyFor(outreach.ProviderMailSend), func(ctx context.Context) (string, error) {
			msgID, err := o.sender.Send(ctx, to, o.cfg.SMTP.From, subject, body)
			if err != nil && errors.Is(err, outreach.ErrAuthExpired) && o.refresher != nil {
				o.logger.Warn("credentials expired, refreshing", "lead_id", l.ID)
				if rerr := o.refresher.Refresh(ctx); rerr != nil {
					return "", fmt.Errorf("refreshing credentials: %w", rerr)
				}
				return o.sender.Send(ctx, to, o.cfg.SMTP.From, subject, body)
			}
			return msgID, err
		})
	})
}

// ScanFollowUps walks the full lead snapshot and returns follow-up
// candidates in priority order. The scan reads every lead rather than
// an index so a lead whose state changed since the last scan is never
// missed.
func (o *Orchestrator) ScanFollowUps(ctx context.Context) ([]followup.Candidate, error) {
	leads, err := o.store.ListLeads(ctx, lead.ListOpts{})
	if err != nil {
		return nil, err
	}
	return followup.Scan(leads, o.followCfg, o.now()), nil
}

// SendFollowUp drafts (if needed) and sends the follow-up for one lead.
func (o *Orchestrator) SendFollowUp(ctx context.Context, leadID id.LeadID) error {
	l, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return err
	}

	if l.Status == lead.StatusSent {
		if err := o.draftFollowUp(ctx, l); err != nil {
			return err
		}
	}
	if l.Status != lead.StatusFollowUpDrafted {
		return fmt.Errorf("%w: follow-up from %s", outreach.ErrInvalidTransition, l.Status)
	}

	if d := o.gate.CanSend(l.Email, l.Domain); !d.Allowed {
		o.journalf(LevelWarning, "skipping follow-up for %s: %s", l.Email, d.Reason)
		o.hooks.EmitLeadSkipped(ctx, l, d.Reason)
		return nil
	}

	msgID, err := o.sendMessage(ctx, l, "email.follow-up", l.Email, l.FollowUpDraft.Subject, l.FollowUpDraft.Body)
	if err != nil {
		o.hooks.EmitLeadFailed(ctx, l, err)
		return err
	}

	if err := l.MarkFollowUpSent(o.now()); err != nil {
		return err
	}
	if err := o.store.SaveLead(ctx, l); err != nil {
		return err
	}

	o.hooks.EmitLeadSent(ctx, l, msgID)
	o.journalf(LevelSuccess, "follow-up sent to %s", l.Email)
	o.appendAuditRow(ctx, l, "follow-up-sent")
	return nil
}

func (o *Orchestrator) draftFollowUp(ctx context.Context, l *lead.Lead) error {
	if o.generator == nil {
		return fmt.Errorf("pipeline: no content generator configured")
	}
	if err := o.limiter.Acquire(ctx, outreach.ProviderContentGen); err != nil {
		return err
	}

	a := &outreach.Action{Name: "content.follow-up", Provider: outreach.ProviderContentGen, LeadID: l.ID}
	draft, err := runAction(ctx, o, a, func(ctx context.Context) (*lead.Draft, error) {
		return retry.Do(ctx, o.policyFor(outreach.ProviderContentGen), func(ctx context.Context) (*lead.Draft, error) {
			return o.generator.FollowUp(ctx, l, l.Draft)
		})
	})
	if err != nil {
		return err
	}

	l.FollowUpDraft = draft
	if err := l.Transition(lead.StatusFollowUpDrafted); err != nil {
		return err
	}
	return o.store.SaveLead(ctx, l)
}

// appendAuditRow records one lifecycle event on the audit sheet. Sheet
// failures degrade to a journal warning; the pipeline never blocks on
// the audit trail.
func (o *Orchestrator) appendAuditRow(ctx context.Context, l *lead.Lead, event string) {
	if o.sheet == nil {
		return
	}
	if err := o.limiter.Acquire(ctx, outreach.ProviderSheetWrite); err != nil {
		o.journalf(LevelWarning, "audit row dropped for %s: %v", l.Email, err)
		return
	}
	row := []string{
		o.now().UTC().Format(time.RFC3339),
		event,
		l.Email,
		l.Name,
		string(l.Status),
		l.ProviderMessageID,
	}
	if err := o.sheet.AppendRow(ctx, row); err != nil {
		o.journalf(LevelWarning, "audit row failed for %s: %v", l.Email, err)
	}
}
