package sqlite

// migrations are applied in order by Migrate. Statements are idempotent
// so Migrate is safe to call at every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS outreach_leads (
		id                  TEXT PRIMARY KEY,
		company_id          TEXT,
		name                TEXT NOT NULL,
		email               TEXT NOT NULL UNIQUE,
		domain              TEXT,
		title               TEXT,
		linkedin            TEXT,
		status              TEXT NOT NULL DEFAULT 'identified',
		email_verified      INTEGER NOT NULL DEFAULT 0,
		approved            INTEGER NOT NULL DEFAULT 0,
		opted_out           INTEGER NOT NULL DEFAULT 0,
		draft               TEXT,
		follow_up_draft     TEXT,
		delivery_status     TEXT,
		provider_message_id TEXT,
		reply_ref           TEXT,
		sent_at             TEXT,
		follow_up_sent_at   TEXT,
		scheduled_send_at   TEXT,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_outreach_leads_status
		ON outreach_leads (status)`,

	`CREATE INDEX IF NOT EXISTS idx_outreach_leads_domain
		ON outreach_leads (domain)`,

	`CREATE TABLE IF NOT EXISTS outreach_companies (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		domain     TEXT,
		website    TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}
