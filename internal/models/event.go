package models

import "time"

// Run event actions.
const (
	EventRunStored   = "run.stored"
	EventRunRejected = "run.rejected"
	EventRunDeleted  = "run.deleted"
)

// RunEvent is one entry in a tenant's match run history.
type RunEvent struct {
	ID        int64          `json:"id"`
	TenantID  string         `json:"-"`
	Action    string         `json:"action"`
	RunID     string         `json:"run_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventQueryOpts filters a run event listing.
type EventQueryOpts struct {
	RunID  string
	Action string
	Since  *time.Time
	Limit  int
	Offset int
}
