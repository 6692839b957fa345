package models

import "time"

// MatchRun is the persisted output of one submitted search.
type MatchRun struct {
	ID             string        `json:"id"`
	Pattern        string        `json:"pattern,omitempty"`
	TotalSubgraphs int           `json:"total_subgraphs"`
	SkippedRecords int           `json:"skipped_records"`
	Records        []MatchRecord `json:"records"`
	CreatedAt      time.Time     `json:"created_at"`
}

// MatchRunSummary is a MatchRun without its records, for listings.
type MatchRunSummary struct {
	ID             string    `json:"id"`
	Pattern        string    `json:"pattern,omitempty"`
	TotalSubgraphs int       `json:"total_subgraphs"`
	SkippedRecords int       `json:"skipped_records"`
	RecordCount    int       `json:"record_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordTable is the tabular projection of a run's records.
type RecordTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Table projects the run's records into MatchColumns order.
func (r *MatchRun) Table() RecordTable {
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		rows = append(rows, rec.Row())
	}

	cols := make([]string, len(MatchColumns))
	copy(cols, MatchColumns)

	return RecordTable{Columns: cols, Rows: rows}
}
