package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for match record construction.
var (
	// ErrInvalidReference reports a node handle that cannot yield a stable identifier,
	// e.g. a node deleted before its match was recorded.
	ErrInvalidReference = errors.New("invalid node reference")

	// ErrInvalidCount reports a negative total subgraph count.
	ErrInvalidCount = errors.New("total subgraph count must be non-negative")

	// ErrMissingSubgraphIndex reports a record built without a subgraph index.
	ErrMissingSubgraphIndex = errors.New("subgraph index is required")
)

// Sentinel errors for submission validation.
var (
	ErrNoEmbeddings      = errors.New("at least one embedding is required")
	ErrEmptyEmbedding    = errors.New("embedding must contain at least one node pair")
	ErrMissingQueryNode  = errors.New("query node id is required")
	ErrMissingResultNode = errors.New("result node id is required")
)

// Sentinel errors for node registration.
var (
	ErrNoNodes       = errors.New("at least one node is required")
	ErrMissingNodeID = errors.New("node id is required")
)

// Sentinel errors for entity lookups.
var (
	ErrRunNotFound  = errors.New("match run not found")
	ErrNodeNotFound = errors.New("node not found")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

// ErrTooMany returns an error indicating a collection exceeds its maximum size.
func ErrTooMany(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum of %d entries", field, maxLen)
}

// invalidReference wraps ErrInvalidReference with the offending identifier.
func invalidReference(role, id string) error {
	if id == "" {
		return fmt.Errorf("%s node: %w", role, ErrInvalidReference)
	}

	return fmt.Errorf("%s node %q: %w", role, id, ErrInvalidReference)
}
