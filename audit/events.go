package audit

// Audit event actions. Each constant corresponds to one lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionCampaignStarted   = "campaign.started"
	ActionCampaignCompleted = "campaign.completed"
	ActionLeadDrafted       = "lead.drafted"
	ActionLeadSent          = "lead.sent"
	ActionLeadSkipped       = "lead.skipped"
	ActionLeadFailed        = "lead.failed"
	ActionReplyDetected     = "reply.detected"
	ActionTaskFired         = "task.fired"
)

// Audit event categories group related actions.
const (
	CategoryCampaign = "outreach.campaign"
	CategoryLead     = "outreach.lead"
	CategoryTask     = "outreach.task"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceCampaign = "campaign"
	ResourceLead     = "lead"
	ResourceTask     = "task"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionCampaignStarted,
		ActionCampaignCompleted,
		ActionLeadDrafted,
		ActionLeadSent,
		ActionLeadSkipped,
		ActionLeadFailed,
		ActionReplyDetected,
		ActionTaskFired,
	}
}
