package redis

// Redis key naming conventions for outreach data.
// All keys are prefixed with "outreach:" to avoid collisions.

const keyPrefix = "outreach:"

// ── Lead keys ──

// leadKey returns the key for a lead entity: outreach:lead:{id}
func leadKey(id string) string { return keyPrefix + "lead:" + id }

// leadIDsKey is the Sorted Set of all lead IDs scored by creation time.
const leadIDsKey = keyPrefix + "lead_ids"

// leadEmailKey is the Hash mapping normalized emails to lead IDs.
const leadEmailKey = keyPrefix + "lead_emails"

// statusKey returns the Set of lead IDs in a status: outreach:leads_status:{status}
func statusKey(status string) string { return keyPrefix + "leads_status:" + status }

// ── Company keys ──

// companyKey returns the key for a company entity: outreach:company:{id}
func companyKey(id string) string { return keyPrefix + "company:" + id }

// companyIDsKey is the Sorted Set of all company IDs scored by creation time.
const companyIDsKey = keyPrefix + "company_ids"
