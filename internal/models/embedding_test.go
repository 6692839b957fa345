package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/persistorai/isomatch/internal/models"
)

func pairs(kv ...string) []models.NodePair {
	out := make([]models.NodePair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, models.NodePair{Query: kv[i], Result: kv[i+1]})
	}

	return out
}

func TestSubmitMatchesRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.SubmitMatchesRequest
		wantErr string
	}{
		{name: "valid", req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{{Pairs: pairs("q1", "r1")}}}},
		{name: "valid skip", req: models.SubmitMatchesRequest{OnInvalid: "skip", Embeddings: []models.Embedding{{Pairs: pairs("q1", "r1")}}}},
		{name: "no embeddings", req: models.SubmitMatchesRequest{}, wantErr: "at least one embedding"},
		{name: "empty embedding", req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{{}}}, wantErr: "at least one node pair"},
		{name: "missing query", req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{{Pairs: pairs("", "r1")}}}, wantErr: "query node id is required"},
		{name: "missing result", req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{{Pairs: pairs("q1", "")}}}, wantErr: "result node id is required"},
		{name: "bad policy", req: models.SubmitMatchesRequest{OnInvalid: "retry", Embeddings: []models.Embedding{{Pairs: pairs("q1", "r1")}}}, wantErr: "on_invalid must be"},
		{name: "pattern too long", req: models.SubmitMatchesRequest{Pattern: strings.Repeat("p", 256), Embeddings: []models.Embedding{{Pairs: pairs("q1", "r1")}}}, wantErr: "exceeds maximum length"},
		{name: "id too long", req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{{Pairs: pairs("q1", strings.Repeat("r", 256))}}}, wantErr: "exceeds maximum length"},
		{
			name: "duplicate index",
			req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{
				{Index: "a", Pairs: pairs("q1", "r1")},
				{Index: "a", Pairs: pairs("q1", "r2")},
			}},
			wantErr: "repeats index",
		},
		{
			name: "default index collides with explicit one",
			req: models.SubmitMatchesRequest{Embeddings: []models.Embedding{
				{Index: "1", Pairs: pairs("q1", "r1")},
				{Pairs: pairs("q1", "r2")},
			}},
			wantErr: "repeats index",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestSubmitMatchesRequest_Defaults(t *testing.T) {
	req := models.SubmitMatchesRequest{Embeddings: []models.Embedding{
		{Pairs: pairs("q1", "r1")},
		{Index: "custom", Pairs: pairs("q1", "r2")},
		{Pairs: pairs("q1", "r3")},
	}}
	assertNoError(t, req.Validate())

	if req.OnInvalid != models.OnInvalidAbort {
		t.Errorf("OnInvalid = %q, want %q", req.OnInvalid, models.OnInvalidAbort)
	}

	want := []string{"0", "custom", "2"}
	for i, e := range req.Embeddings {
		if e.Index != want[i] {
			t.Errorf("embeddings[%d].Index = %q, want %q", i, e.Index, want[i])
		}
	}
}

func TestSubmitMatchesRequest_DefaultsLeaveCallerSliceAlone(t *testing.T) {
	embeddings := []models.Embedding{
		{Pairs: pairs("q1", "r1")},
		{Pairs: pairs("q1", "r2")},
	}

	// A by-value copy still shares the backing array with the caller.
	req := models.SubmitMatchesRequest{Embeddings: embeddings}
	assertNoError(t, req.Validate())

	for i, e := range embeddings {
		if e.Index != "" {
			t.Errorf("caller embeddings[%d].Index = %q, want empty", i, e.Index)
		}
	}

	if req.Embeddings[1].Index != "1" {
		t.Errorf("validated embeddings[1].Index = %q, want 1", req.Embeddings[1].Index)
	}
}

func TestSubmitMatchesRequest_ValidateWithLimit(t *testing.T) {
	req := models.SubmitMatchesRequest{Embeddings: []models.Embedding{
		{Pairs: pairs("q1", "r1")},
		{Pairs: pairs("q1", "r2")},
	}}

	assertErrorContains(t, req.ValidateWithLimit(1), "exceeds maximum of 1")
}

func TestDistinctNodeIDs(t *testing.T) {
	queryIDs, resultIDs := models.DistinctNodeIDs([]models.Embedding{
		{Pairs: pairs("q1", "r1", "q2", "r2")},
		{Pairs: pairs("q1", "r3", "q2", "r1")},
	})

	if strings.Join(queryIDs, ",") != "q1,q2" {
		t.Errorf("queryIDs = %v", queryIDs)
	}

	if strings.Join(resultIDs, ",") != "r1,r2,r3" {
		t.Errorf("resultIDs = %v", resultIDs)
	}
}

func handles(ids ...string) map[string]models.NodeHandle {
	m := make(map[string]models.NodeHandle, len(ids))
	for _, id := range ids {
		m[id] = models.NodeID(id)
	}

	return m
}

func TestAssembleRecords_SharedTotal(t *testing.T) {
	embeddings := []models.Embedding{
		{Index: "0", Pairs: pairs("q1", "r1", "q2", "r2")},
		{Index: "1", Pairs: pairs("q1", "r3", "q2", "r4")},
		{Index: "2", Pairs: pairs("q1", "r5", "q2", "r6")},
	}

	records, skipped, err := models.AssembleRecords(embeddings, handles("q1", "q2"), handles("r1", "r2", "r3", "r4", "r5", "r6"), false)
	assertNoError(t, err)

	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}

	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}

	for i, rec := range records {
		if rec.TotalSubgraphCount() != "3" {
			t.Errorf("records[%d].TotalSubgraphCount = %q, want 3", i, rec.TotalSubgraphCount())
		}
	}

	if records[2].ResultNodeID() != "r3" || records[2].SubgraphIndex() != "1" || records[2].QueryNodeID() != "q1" {
		t.Errorf("records[2] = %v", records[2].Row())
	}
}

func TestAssembleRecords_MissingNode(t *testing.T) {
	embeddings := []models.Embedding{
		{Index: "0", Pairs: pairs("q1", "r1")},
		{Index: "1", Pairs: pairs("q1", "gone")},
		{Index: "2", Pairs: pairs("q1", "r3")},
	}

	t.Run("abort", func(t *testing.T) {
		records, _, err := models.AssembleRecords(embeddings, handles("q1"), handles("r1", "r3"), false)
		if !errors.Is(err, models.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference, got %v", err)
		}

		if records != nil {
			t.Errorf("expected no records, got %d", len(records))
		}

		assertErrorContains(t, err, "subgraph 1")
	})

	t.Run("skip", func(t *testing.T) {
		records, skipped, err := models.AssembleRecords(embeddings, handles("q1"), handles("r1", "r3"), true)
		assertNoError(t, err)

		if skipped != 1 {
			t.Errorf("skipped = %d, want 1", skipped)
		}

		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}

		// The total still counts every embedding found by the search.
		if records[1].TotalSubgraphCount() != "3" {
			t.Errorf("total = %q, want 3", records[1].TotalSubgraphCount())
		}
	})
}

func TestMatchRun_Table(t *testing.T) {
	rec, err := models.NewMatchRecord(models.NodeID("42"), models.NodeID("7"), "0", 1)
	assertNoError(t, err)

	run := models.MatchRun{ID: "run-1", TotalSubgraphs: 1, Records: []models.MatchRecord{rec}}
	table := run.Table()

	if strings.Join(table.Columns, ",") != "resultNodeId,queryNodeId,subgraphIndex,totalSubgraphCount" {
		t.Errorf("columns = %v", table.Columns)
	}

	if len(table.Rows) != 1 || strings.Join(table.Rows[0], ",") != "42,7,0,1" {
		t.Errorf("rows = %v", table.Rows)
	}
}
