// Package models defines data types for subgraph match results.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// NodeHandle is the one capability match records need from a graph data source:
// a stable textual identifier, read once at record construction.
type NodeHandle interface {
	ID() (string, error)
}

// NodeID is a node identifier already resolved at the matching boundary.
type NodeID string

// ID returns the identifier; an empty NodeID is not a valid reference.
func (n NodeID) ID() (string, error) {
	if n == "" {
		return "", ErrInvalidReference
	}

	return string(n), nil
}

// LegacyNodeID is a native integer node identifier (e.g. Neo4j id(n)).
type LegacyNodeID int64

// ID returns the identifier in plain decimal.
func (n LegacyNodeID) ID() (string, error) {
	if n < 0 {
		return "", fmt.Errorf("negative id %d: %w", int64(n), ErrInvalidReference)
	}

	return strconv.FormatInt(int64(n), 10), nil
}

// disposedNode stands in for a node that no longer exists in the data source.
type disposedNode struct {
	id string
}

// DisposedNode returns a handle whose identifier can no longer be resolved.
func DisposedNode(id string) NodeHandle {
	return disposedNode{id: id}
}

func (d disposedNode) ID() (string, error) {
	return "", fmt.Errorf("node %q no longer exists: %w", d.id, ErrInvalidReference)
}

// MatchColumns are the output column names of a match record, in field order.
var MatchColumns = []string{"resultNodeId", "queryNodeId", "subgraphIndex", "totalSubgraphCount"}

// MatchRecord is one matched (result node, query node) pair of a subgraph
// embedding. It is an immutable snapshot: fields are fixed at construction.
type MatchRecord struct {
	resultNodeID       string
	queryNodeID        string
	subgraphIndex      string
	totalSubgraphCount string
}

// NewMatchRecord captures the identifiers of result and query as text together
// with the embedding label and the total number of embeddings in the search.
func NewMatchRecord(result, query NodeHandle, subgraphIndex string, totalSubgraphs int) (MatchRecord, error) {
	if totalSubgraphs < 0 {
		return MatchRecord{}, fmt.Errorf("%w: got %d", ErrInvalidCount, totalSubgraphs)
	}

	if subgraphIndex == "" {
		return MatchRecord{}, ErrMissingSubgraphIndex
	}

	resultID, err := resolveHandle("result", result)
	if err != nil {
		return MatchRecord{}, err
	}

	queryID, err := resolveHandle("query", query)
	if err != nil {
		return MatchRecord{}, err
	}

	return MatchRecord{
		resultNodeID:       resultID,
		queryNodeID:        queryID,
		subgraphIndex:      subgraphIndex,
		totalSubgraphCount: strconv.Itoa(totalSubgraphs),
	}, nil
}

func resolveHandle(role string, h NodeHandle) (string, error) {
	if h == nil {
		return "", invalidReference(role, "")
	}

	id, err := h.ID()
	if err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return "", fmt.Errorf("%s node: %w", role, err)
		}

		return "", fmt.Errorf("%s node: %w: %w", role, ErrInvalidReference, err)
	}

	if id == "" {
		return "", invalidReference(role, "")
	}

	return id, nil
}

// MatchRecordFromRow rebuilds a record from its four column values, as
// produced by Row. Used when reading persisted records back.
func MatchRecordFromRow(row []string) (MatchRecord, error) {
	if len(row) != len(MatchColumns) {
		return MatchRecord{}, fmt.Errorf("match record row has %d columns, want %d", len(row), len(MatchColumns))
	}

	for i, v := range row {
		if v == "" {
			return MatchRecord{}, fmt.Errorf("match record column %s is empty", MatchColumns[i])
		}
	}

	total, err := strconv.Atoi(row[3])
	if err != nil || total < 0 {
		return MatchRecord{}, fmt.Errorf("%w: %q", ErrInvalidCount, row[3])
	}

	return MatchRecord{
		resultNodeID:       row[0],
		queryNodeID:        row[1],
		subgraphIndex:      row[2],
		totalSubgraphCount: row[3],
	}, nil
}

// ResultNodeID returns the textual id of the matched database node.
func (r MatchRecord) ResultNodeID() string { return r.resultNodeID }

// QueryNodeID returns the textual id of the corresponding query node.
func (r MatchRecord) QueryNodeID() string { return r.queryNodeID }

// SubgraphIndex returns the label of the embedding this match belongs to.
func (r MatchRecord) SubgraphIndex() string { return r.subgraphIndex }

// TotalSubgraphCount returns the decimal total of embeddings in the search.
func (r MatchRecord) TotalSubgraphCount() string { return r.totalSubgraphCount }

// Row returns the record's values in MatchColumns order.
func (r MatchRecord) Row() []string {
	return []string{r.resultNodeID, r.queryNodeID, r.subgraphIndex, r.totalSubgraphCount}
}

// matchRecordJSON fixes the wire names and order of the four fields.
type matchRecordJSON struct {
	ResultNodeID       string `json:"resultNodeId"`
	QueryNodeID        string `json:"queryNodeId"`
	SubgraphIndex      string `json:"subgraphIndex"`
	TotalSubgraphCount string `json:"totalSubgraphCount"`
}

// MarshalJSON implements json.Marshaler.
func (r MatchRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(matchRecordJSON{
		ResultNodeID:       r.resultNodeID,
		QueryNodeID:        r.queryNodeID,
		SubgraphIndex:      r.subgraphIndex,
		TotalSubgraphCount: r.totalSubgraphCount,
	})
}

// UnmarshalJSON implements json.Unmarshaler, applying the same checks as MatchRecordFromRow.
func (r *MatchRecord) UnmarshalJSON(data []byte) error {
	var raw matchRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec, err := MatchRecordFromRow([]string{raw.ResultNodeID, raw.QueryNodeID, raw.SubgraphIndex, raw.TotalSubgraphCount})
	if err != nil {
		return err
	}

	*r = rec

	return nil
}
