package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithAPIKey("test-key"))
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "1.2.0", GraphBackend: "neo4j", SchemaVersion: 2})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.0" {
		t.Errorf("got %+v", resp)
	}
	if resp.GraphBackend != "neo4j" || resp.SchemaVersion != 2 {
		t.Errorf("got backend %q schema %d", resp.GraphBackend, resp.SchemaVersion)
	}
}

func TestMatchesSubmit(t *testing.T) {
	var got SubmitRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/matches": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonResponse(w, 201, MatchRun{
				ID:             "run-1",
				TotalSubgraphs: 1,
				Records: []MatchRecord{
					{ResultNodeID: "n1", QueryNodeID: "a", SubgraphIndex: "0", TotalSubgraphCount: "1"},
				},
			})
		},
	})

	run, err := c.Matches.Submit(context.Background(), &SubmitRequest{
		Pattern:    "edge",
		OnInvalid:  OnInvalidSkip,
		Embeddings: []Embedding{{Pairs: []NodePair{{Query: "a", Result: "n1"}}}},
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if run.ID != "run-1" || len(run.Records) != 1 {
		t.Fatalf("got %+v", run)
	}
	if run.Records[0].TotalSubgraphCount != "1" {
		t.Errorf("total = %q, want 1", run.Records[0].TotalSubgraphCount)
	}
	if got.OnInvalid != OnInvalidSkip || len(got.Embeddings) != 1 {
		t.Errorf("server received %+v", got)
	}
}

func TestMatchesReadAndDelete(t *testing.T) {
	var gotQuery string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/matches": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			jsonResponse(w, 200, map[string]any{"runs": []MatchRunSummary{{ID: "run-1", RecordCount: 4}}, "has_more": true})
		},
		"GET /api/v1/matches/run-1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, MatchRun{ID: "run-1"})
		},
		"GET /api/v1/matches/run-1/records": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, RecordTable{
				Columns: []string{"resultNodeId", "queryNodeId", "subgraphIndex", "totalSubgraphCount"},
				Rows:    [][]string{{"n1", "a", "0", "1"}},
			})
		},
		"DELETE /api/v1/matches/run-1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"deleted": true})
		},
	})
	ctx := context.Background()

	runs, hasMore, err := c.Matches.List(ctx, &ListOptions{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(runs) != 1 || runs[0].RecordCount != 4 || !hasMore {
		t.Errorf("got %+v has_more=%v", runs, hasMore)
	}
	if gotQuery != "limit=10&offset=20" {
		t.Errorf("query = %q", gotQuery)
	}

	run, err := c.Matches.Get(ctx, "run-1")
	if err != nil || run.ID != "run-1" {
		t.Errorf("Get() = %+v, %v", run, err)
	}

	table, err := c.Matches.Records(ctx, "run-1")
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	if len(table.Columns) != 4 || len(table.Rows) != 1 || table.Rows[0][0] != "n1" {
		t.Errorf("got %+v", table)
	}

	if err := c.Matches.Delete(ctx, "run-1"); err != nil {
		t.Errorf("Delete() error: %v", err)
	}
}

func TestNodes(t *testing.T) {
	var single NodeRequest
	var bulk []NodeRequest
	var listQuery string
	deleted := false

	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/nodes": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&single) //nolint:errcheck
			jsonResponse(w, 200, map[string]any{"registered": 1})
		},
		"POST /api/v1/nodes/bulk": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&bulk) //nolint:errcheck
			jsonResponse(w, 200, map[string]any{"registered": len(bulk)})
		},
		"GET /api/v1/nodes": func(w http.ResponseWriter, r *http.Request) {
			listQuery = r.URL.RawQuery
			jsonResponse(w, 200, map[string]any{"nodes": []Node{{ID: "person:1", Type: "person"}}, "has_more": false})
		},
		"DELETE /api/v1/nodes/person:1": func(w http.ResponseWriter, _ *http.Request) {
			deleted = true
			jsonResponse(w, 200, map[string]any{"deleted": true})
		},
	})
	ctx := context.Background()

	n, err := c.Nodes.Register(ctx, &NodeRequest{ID: "person:1", Type: "person", Label: "Ada"})
	if err != nil || n != 1 {
		t.Fatalf("Register() = %d, %v", n, err)
	}
	if single.ID != "person:1" || single.Label != "Ada" {
		t.Errorf("server got %+v", single)
	}

	n, err = c.Nodes.RegisterBulk(ctx, []NodeRequest{{ID: "a"}, {ID: "b"}})
	if err != nil || n != 2 {
		t.Fatalf("RegisterBulk() = %d, %v", n, err)
	}
	if len(bulk) != 2 || bulk[1].ID != "b" {
		t.Errorf("server got %+v", bulk)
	}

	nodes, hasMore, err := c.Nodes.List(ctx, &NodeListOptions{Type: "person", Limit: 5})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "person:1" || hasMore {
		t.Errorf("got %+v has_more=%v", nodes, hasMore)
	}
	if listQuery != "limit=5&type=person" {
		t.Errorf("query = %q", listQuery)
	}

	if err := c.Nodes.Delete(ctx, "person:1"); err != nil || !deleted {
		t.Errorf("Delete() error: %v (deleted=%v)", err, deleted)
	}
}

func TestEvents(t *testing.T) {
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/events": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("run_id") != "run-1" || q.Get("action") != "run.stored" {
				t.Errorf("unexpected filters: %s", r.URL.RawQuery)
			}
			if q.Get("since") != "2026-01-02T03:04:05Z" {
				t.Errorf("since = %q", q.Get("since"))
			}
			jsonResponse(w, 200, map[string]any{
				"events":   []RunEvent{{ID: 1, Action: "run.stored", RunID: "run-1"}},
				"has_more": false,
			})
		},
		"DELETE /api/v1/events": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("retention_days") != "30" {
				t.Errorf("retention_days = %q", r.URL.Query().Get("retention_days"))
			}
			jsonResponse(w, 200, map[string]any{"deleted": 12, "retention_days": 30})
		},
	})
	ctx := context.Background()

	events, _, err := c.Events.Query(ctx, &EventQueryOptions{RunID: "run-1", Action: "run.stored", Since: &since})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(events) != 1 || events[0].RunID != "run-1" {
		t.Errorf("got %+v", events)
	}

	deleted, err := c.Events.Purge(ctx, 30)
	if err != nil || deleted != 12 {
		t.Errorf("Purge() = %d, %v", deleted, err)
	}
}

func TestAPIErrors(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/matches/missing": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 404, map[string]string{"code": "not_found", "message": "run not found", "request_id": "req-1"})
		},
		"POST /api/v1/matches": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 422, map[string]string{"code": "invalid_reference", "message": "node no longer exists"})
		},
		"DELETE /api/v1/matches/busy": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down")) //nolint:errcheck
		},
	})
	ctx := context.Background()

	_, err := c.Matches.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got: %v", err)
	}
	if err.Error() != "isomatch: 404 not_found: run not found (request_id=req-1)" {
		t.Errorf("message = %q", err.Error())
	}

	_, err = c.Matches.Submit(ctx, &SubmitRequest{})
	if !IsInvalidReference(err) {
		t.Errorf("expected invalid reference, got: %v", err)
	}
	if IsNotFound(err) {
		t.Error("422 reported as not found")
	}

	err = c.Matches.Delete(ctx, "busy")
	if !IsRateLimited(err) {
		t.Errorf("expected rate limited, got: %v", err)
	}
	if e, ok := asAPIError(err); !ok || e.Code != "unknown" || e.Message != "slow down" {
		t.Errorf("fallback error = %+v", e)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonResponse(w, 200, HealthResponse{Status: "ok"})
		},
	})

	c.Health(context.Background()) //nolint:errcheck
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: got %q, want %q", gotAuth, "Bearer test-key")
	}
}
