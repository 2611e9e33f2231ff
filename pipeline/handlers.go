package pipeline

import (
	"context"
	"fmt"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/retry"
	"github.com/liftoffhq/outreach/schedule"
)

// RegisterHandlers wires the orchestrator's handlers into the
// scheduler, one per task type, and queues the recurring follow-up
// scan. Call it once before starting the scheduler.
func (o *Orchestrator) RegisterHandlers() error {
	if o.scheduler == nil {
		return fmt.Errorf("pipeline: no scheduler configured")
	}

	o.scheduler.RegisterHandler(schedule.TypeSend, o.taskHandler(o.handleSendTask))
	o.scheduler.RegisterHandler(schedule.TypeFollowUp, o.taskHandler(o.handleFollowUpTask))
	o.scheduler.RegisterHandler(schedule.TypeRecurringScan, o.taskHandler(o.handleScanTask))
	o.scheduler.RegisterHandler(schedule.TypeSocialPost, o.taskHandler(o.handleSocialTask))

	_, err := o.scheduler.Schedule(
		schedule.TypeRecurringScan,
		id.ID{},
		o.now().Add(o.cfg.TickInterval),
		schedule.WithRecurring(o.cfg.FollowUpAfter/2),
	)
	return err
}

// taskHandler wraps a handler so every fire, successful or not, reaches
// the extension registry.
func (o *Orchestrator) taskHandler(fn func(context.Context, *schedule.Task) error) schedule.HandlerFunc {
	return func(ctx context.Context, t *schedule.Task) error {
		err := fn(ctx, t)
		o.hooks.EmitTaskFired(ctx, t, err)
		return err
	}
}

func (o *Orchestrator) handleSendTask(ctx context.Context, t *schedule.Task) error {
	l, err := o.store.GetLead(ctx, t.ReferenceID)
	if err != nil {
		return err
	}
	skipped, err := o.sendLead(ctx, l)
	if err != nil {
		o.hooks.EmitLeadFailed(ctx, l, err)
		return err
	}
	if skipped {
		o.logger.Info("scheduled send skipped", "lead_id", l.ID)
	}
	return nil
}

func (o *Orchestrator) handleFollowUpTask(ctx context.Context, t *schedule.Task) error {
	return o.SendFollowUp(ctx, t.ReferenceID)
}

// handleScanTask turns follow-up candidates into follow-up tasks. A
// lead with a pending follow-up task keeps it; the scan never queues a
// duplicate.
func (o *Orchestrator) handleScanTask(ctx context.Context, _ *schedule.Task) error {
	candidates, err := o.ScanFollowUps(ctx)
	if err != nil {
		return err
	}

	queued := make(map[string]bool)
	for _, t := range o.scheduler.PendingTasks() {
		if t.Type == schedule.TypeFollowUp {
			queued[t.ReferenceID.String()] = true
		}
	}

	for _, c := range candidates {
		if queued[c.LeadID.String()] {
			continue
		}
		_, err := o.scheduler.Schedule(
			schedule.TypeFollowUp,
			c.LeadID,
			schedule.NextSendTime(o.now(), o.cfg.SendWindowStart, o.cfg.SendWindowEnd),
			schedule.WithPriority(c.Priority),
		)
		if err != nil {
			return err
		}
		o.journalf(LevelInfo, "follow-up queued for %s (%d days since send)", c.Email, c.DaysSinceSent)
	}
	return nil
}

func (o *Orchestrator) handleSocialTask(ctx context.Context, t *schedule.Task) error {
	if o.social == nil {
		return fmt.Errorf("pipeline: no social poster configured")
	}
	l, err := o.store.GetLead(ctx, t.ReferenceID)
	if err != nil {
		return err
	}
	if l.Draft == nil {
		return fmt.Errorf("pipeline: lead %s has no draft to post about", l.ID)
	}

	if err := o.limiter.Acquire(ctx, outreach.ProviderSocial); err != nil {
		return err
	}
	a := &outreach.Action{Name: "social.post", Provider: outreach.ProviderSocial, LeadID: l.ID}
	postID, err := runAction(ctx, o, a, func(ctx context.Context) (string, error) {
		return retry.Do(ctx, o.policyFor(outreach.ProviderSocial), func(ctx context.Context) (string, error) {
			return o.social.Post(ctx, l.Draft.Subject)
		})
	})
	if err != nil {
		return err
	}
	o.journalf(LevelSuccess, "social post published: %s", postID)
	return nil
}
