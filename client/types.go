package client

import "time"

// On-invalid policies for SubmitRequest.
const (
	OnInvalidAbort = "abort"
	OnInvalidSkip  = "skip"
)

// NodePair maps one query-pattern node to the matched database node.
type NodePair struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// Embedding is one occurrence of the pattern. Index defaults to its position.
type Embedding struct {
	Index string     `json:"index,omitempty"`
	Pairs []NodePair `json:"pairs"`
}

// NodeRequest registers a node id that match references may resolve against.
type NodeRequest struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// Node is an entry in the node registry.
type Node struct {
	ID        string    `json:"id"`
	Type      string    `json:"type,omitempty"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeListOptions filters and pages a node listing.
type NodeListOptions struct {
	Type   string
	Limit  int
	Offset int
}

// SubmitRequest carries the embeddings found by a matching engine.
type SubmitRequest struct {
	Pattern    string      `json:"pattern,omitempty"`
	Embeddings []Embedding `json:"embeddings"`
	OnInvalid  string      `json:"on_invalid,omitempty"`
	Source     string      `json:"source,omitempty"`
}

// MatchRecord is one matched node pair. All four fields are strings.
type MatchRecord struct {
	ResultNodeID       string `json:"resultNodeId"`
	QueryNodeID        string `json:"queryNodeId"`
	SubgraphIndex      string `json:"subgraphIndex"`
	TotalSubgraphCount string `json:"totalSubgraphCount"`
}

// MatchRun is a stored submission with its records.
type MatchRun struct {
	ID             string        `json:"id"`
	Pattern        string        `json:"pattern,omitempty"`
	TotalSubgraphs int           `json:"total_subgraphs"`
	SkippedRecords int           `json:"skipped_records"`
	Records        []MatchRecord `json:"records"`
	CreatedAt      time.Time     `json:"created_at"`
}

// MatchRunSummary is a run without its records.
type MatchRunSummary struct {
	ID             string    `json:"id"`
	Pattern        string    `json:"pattern,omitempty"`
	TotalSubgraphs int       `json:"total_subgraphs"`
	SkippedRecords int       `json:"skipped_records"`
	RecordCount    int       `json:"record_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordTable is the tabular form of a run's records.
type RecordTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ListOptions controls pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// RunEvent is one entry in the run history.
type RunEvent struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	RunID     string         `json:"run_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventQueryOptions filters the run history.
type EventQueryOptions struct {
	RunID  string
	Action string
	Since  *time.Time
	Limit  int
	Offset int
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	GraphBackend  string  `json:"graph_backend"`
	SchemaVersion int     `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
