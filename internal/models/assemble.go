package models

import (
	"errors"
	"fmt"
)

// AssembleRecords builds one MatchRecord per node pair, embedding by embedding
// in submission order. Every record carries len(embeddings) as its total.
//
// Ids missing from the handle maps are treated as disposed nodes. With
// skipInvalid, records whose nodes fail to resolve are dropped and counted;
// otherwise the first failure aborts assembly.
func AssembleRecords(
	embeddings []Embedding,
	queryHandles, resultHandles map[string]NodeHandle,
	skipInvalid bool,
) ([]MatchRecord, int, error) {
	total := len(embeddings)

	size := 0
	for _, e := range embeddings {
		size += len(e.Pairs)
	}

	records := make([]MatchRecord, 0, size)
	skipped := 0

	for _, e := range embeddings {
		for _, p := range e.Pairs {
			rec, err := NewMatchRecord(lookupHandle(resultHandles, p.Result), lookupHandle(queryHandles, p.Query), e.Index, total)
			if err != nil {
				if skipInvalid && errors.Is(err, ErrInvalidReference) {
					skipped++

					continue
				}

				return nil, skipped, fmt.Errorf("subgraph %s: %w", e.Index, err)
			}

			records = append(records, rec)
		}
	}

	return records, skipped, nil
}

func lookupHandle(handles map[string]NodeHandle, id string) NodeHandle {
	if h, ok := handles[id]; ok && h != nil {
		return h
	}

	return DisposedNode(id)
}
