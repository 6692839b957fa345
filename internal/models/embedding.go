package models

import (
	"fmt"
	"slices"
	"strconv"
)

// Submission limits.
const (
	MaxEmbeddings        = 10000
	MaxPairsPerEmbedding = 1000
	maxIDLength          = 255
)

// Recovery policies for node references that fail to resolve.
const (
	OnInvalidAbort = "abort"
	OnInvalidSkip  = "skip"
)

// NodePair maps one query-pattern node to the database node it matched.
type NodePair struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// Embedding is one occurrence of the query pattern in the target graph.
type Embedding struct {
	Index string     `json:"index,omitempty"`
	Pairs []NodePair `json:"pairs"`
}

// SubmitMatchesRequest is the payload an external matching engine posts
// after a search completes.
type SubmitMatchesRequest struct {
	Pattern    string      `json:"pattern,omitempty"`
	Embeddings []Embedding `json:"embeddings"`
	OnInvalid  string      `json:"on_invalid,omitempty"`
	// Source names the engine or client that produced the embeddings.
	Source     string      `json:"source,omitempty"`
}

// Validate checks limits and fills defaults: an empty OnInvalid becomes
// "abort" and embeddings without an index are labelled by their position.
// Labelling works on a copy of Embeddings, so a caller holding the original
// slice never sees it change.
func (r *SubmitMatchesRequest) Validate() error {
	return r.ValidateWithLimit(MaxEmbeddings)
}

// ValidateWithLimit is Validate with a caller-chosen embedding cap.
func (r *SubmitMatchesRequest) ValidateWithLimit(maxEmbeddings int) error {
	if maxEmbeddings <= 0 || maxEmbeddings > MaxEmbeddings {
		maxEmbeddings = MaxEmbeddings
	}

	if len(r.Pattern) > maxIDLength {
		return ErrFieldTooLong("pattern", maxIDLength)
	}

	if len(r.Source) > maxIDLength {
		return ErrFieldTooLong("source", maxIDLength)
	}

	switch r.OnInvalid {
	case "":
		r.OnInvalid = OnInvalidAbort
	case OnInvalidAbort, OnInvalidSkip:
	default:
		return fmt.Errorf("on_invalid must be %q or %q, got %q", OnInvalidAbort, OnInvalidSkip, r.OnInvalid)
	}

	if len(r.Embeddings) == 0 {
		return ErrNoEmbeddings
	}

	if len(r.Embeddings) > maxEmbeddings {
		return ErrTooMany("embeddings", maxEmbeddings)
	}

	seen := make(map[string]int, len(r.Embeddings))
	copied := false

	for i := range r.Embeddings {
		if r.Embeddings[i].Index == "" && !copied {
			r.Embeddings = slices.Clone(r.Embeddings)
			copied = true
		}

		e := &r.Embeddings[i]
		if e.Index == "" {
			e.Index = strconv.Itoa(i)
		}

		if len(e.Index) > maxIDLength {
			return ErrFieldTooLong("embeddings["+strconv.Itoa(i)+"].index", maxIDLength)
		}

		if prev, dup := seen[e.Index]; dup {
			return fmt.Errorf("embeddings[%d] repeats index %q of embeddings[%d]", i, e.Index, prev)
		}
		seen[e.Index] = i

		if err := e.validate(); err != nil {
			return fmt.Errorf("embeddings[%d]: %w", i, err)
		}
	}

	return nil
}

func (e *Embedding) validate() error {
	if len(e.Pairs) == 0 {
		return ErrEmptyEmbedding
	}

	if len(e.Pairs) > MaxPairsPerEmbedding {
		return ErrTooMany("pairs", MaxPairsPerEmbedding)
	}

	for j, p := range e.Pairs {
		switch {
		case p.Query == "":
			return fmt.Errorf("pairs[%d]: %w", j, ErrMissingQueryNode)
		case p.Result == "":
			return fmt.Errorf("pairs[%d]: %w", j, ErrMissingResultNode)
		case len(p.Query) > maxIDLength:
			return ErrFieldTooLong(fmt.Sprintf("pairs[%d].query", j), maxIDLength)
		case len(p.Result) > maxIDLength:
			return ErrFieldTooLong(fmt.Sprintf("pairs[%d].result", j), maxIDLength)
		}
	}

	return nil
}

// DistinctNodeIDs returns the distinct query ids and result ids referenced by
// the embeddings, each in first-seen order.
func DistinctNodeIDs(embeddings []Embedding) (queryIDs, resultIDs []string) {
	seenQuery := make(map[string]struct{})
	seenResult := make(map[string]struct{})

	for _, e := range embeddings {
		for _, p := range e.Pairs {
			if _, ok := seenQuery[p.Query]; !ok {
				seenQuery[p.Query] = struct{}{}
				queryIDs = append(queryIDs, p.Query)
			}

			if _, ok := seenResult[p.Result]; !ok {
				seenResult[p.Result] = struct{}{}
				resultIDs = append(resultIDs, p.Result)
			}
		}
	}

	return queryIDs, resultIDs
}
