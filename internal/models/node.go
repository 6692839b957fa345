package models

import (
	"fmt"
	"time"
)

// MaxBulkNodes caps one bulk registration request.
const MaxBulkNodes = 1000

const maxNodeTextLength = 255

// Node is one entry in the tenant's node registry. Match references resolve
// against these ids when the graph lives in Postgres.
type Node struct {
	ID        string    `json:"id"`
	Type      string    `json:"type,omitempty"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterNodeRequest adds a node to the registry or updates its type and label.
type RegisterNodeRequest struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// Validate checks the fields of a RegisterNodeRequest.
func (r *RegisterNodeRequest) Validate() error {
	if r.ID == "" {
		return ErrMissingNodeID
	}

	if len(r.ID) > maxIDLength {
		return ErrFieldTooLong("id", maxIDLength)
	}

	if len(r.Type) > maxNodeTextLength {
		return ErrFieldTooLong("type", maxNodeTextLength)
	}

	if len(r.Label) > maxNodeTextLength {
		return ErrFieldTooLong("label", maxNodeTextLength)
	}

	return nil
}

// ValidateNodeBatch checks a bulk registration.
func ValidateNodeBatch(reqs []RegisterNodeRequest) error {
	if len(reqs) == 0 {
		return ErrNoNodes
	}

	if len(reqs) > MaxBulkNodes {
		return ErrTooMany("nodes", MaxBulkNodes)
	}

	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}

	return nil
}

// DedupeNodes keeps the last request for each id, in first-seen order.
func DedupeNodes(reqs []RegisterNodeRequest) []RegisterNodeRequest {
	pos := make(map[string]int, len(reqs))
	out := make([]RegisterNodeRequest, 0, len(reqs))

	for _, r := range reqs {
		if i, ok := pos[r.ID]; ok {
			out[i] = r

			continue
		}

		pos[r.ID] = len(out)
		out = append(out, r)
	}

	return out
}
