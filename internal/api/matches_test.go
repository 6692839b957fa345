package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/persistorai/isomatch/internal/api"
	"github.com/persistorai/isomatch/internal/middleware"
	"github.com/persistorai/isomatch/internal/models"
	"github.com/persistorai/isomatch/internal/service"
)

func sampleRun(t *testing.T) *models.MatchRun {
	t.Helper()

	a, err := models.NewMatchRecord(models.LegacyNodeID(42), models.NodeID("q1"), "0", 1)
	if err != nil {
		t.Fatalf("building record: %v", err)
	}

	return &models.MatchRun{
		ID:             "7f8c2a64-4d0e-4f5c-9f57-3d2b1a0e9c11",
		Pattern:        "edge",
		TotalSubgraphs: 1,
		Records:        []models.MatchRecord{a},
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func matchRouter(repo *mockMatchRepo) http.Handler {
	r := newTestRouter()
	h := api.NewMatchHandler(repo, testLogger())
	r.POST("/matches", h.Submit)
	r.GET("/matches", h.List)
	r.GET("/matches/:id", h.Get)
	r.GET("/matches/:id/records", h.Records)
	r.DELETE("/matches/:id", h.Delete)

	return r
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	return m
}

func TestMatchSubmit_Created(t *testing.T) {
	t.Parallel()

	var gotReq models.SubmitMatchesRequest
	repo := &mockMatchRepo{
		submitFn: func(_ context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error) {
			if tenantID != testTenantID {
				return nil, fmt.Errorf("unexpected tenant %s", tenantID)
			}
			gotReq = req
			return sampleRun(t), nil
		},
	}

	body := `{"pattern":"edge","on_invalid":"skip","embeddings":[{"pairs":[{"query":"q1","result":"42"}]}]}`
	w := doRequest(matchRouter(repo), http.MethodPost, "/matches", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if gotReq.OnInvalid != models.OnInvalidSkip || len(gotReq.Embeddings) != 1 {
		t.Errorf("request not decoded: %+v", gotReq)
	}

	resp := decodeBody(t, w.Body.Bytes())
	records, ok := resp["records"].([]any)
	if !ok || len(records) != 1 {
		t.Fatalf("records = %v", resp["records"])
	}

	rec := records[0].(map[string]any)
	if rec["resultNodeId"] != "42" || rec["totalSubgraphCount"] != "1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestMatchSubmit_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "validation",
			err:      &service.ValidationError{Err: models.ErrNoEmbeddings},
			wantCode: http.StatusBadRequest,
			wantErr:  api.ErrCodeValidationError,
		},
		{
			name:     "invalid reference",
			err:      fmt.Errorf("subgraph 0: result node: %w", models.ErrInvalidReference),
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  api.ErrCodeInvalidReference,
		},
		{
			name:     "invalid count",
			err:      models.ErrInvalidCount,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  api.ErrCodeInvalidCount,
		},
		{
			name:     "backend failure",
			err:      errors.New("neo4j down"),
			wantCode: http.StatusInternalServerError,
			wantErr:  api.ErrCodeInternalError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockMatchRepo{
				submitFn: func(context.Context, string, models.SubmitMatchesRequest) (*models.MatchRun, error) {
					return nil, tc.err
				},
			}

			w := doRequest(matchRouter(repo), http.MethodPost, "/matches", `{"embeddings":[]}`)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, w.Code, w.Body.String())
			}

			if code := decodeBody(t, w.Body.Bytes())["code"]; code != tc.wantErr {
				t.Errorf("code = %v, want %s", code, tc.wantErr)
			}
		})
	}
}

func TestMatchSubmit_MalformedBody(t *testing.T) {
	t.Parallel()

	w := doRequest(matchRouter(&mockMatchRepo{}), http.MethodPost, "/matches", `{"embeddings":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMatchSubmit_OversizedChunkedBody(t *testing.T) {
	t.Parallel()

	called := false
	repo := &mockMatchRepo{
		submitFn: func(context.Context, string, models.SubmitMatchesRequest) (*models.MatchRun, error) {
			called = true
			return nil, errors.New("unreachable")
		},
	}

	r := newTestRouter()
	r.Use(middleware.MaxBodySize(16))
	r.POST("/matches", api.NewMatchHandler(repo, testLogger()).Submit)

	body := `{"embeddings":[{"pairs":[{"query":"a","result":"b"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/matches", io.NopCloser(strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}

	if code := decodeBody(t, w.Body.Bytes())["code"]; code != api.ErrCodePayloadTooLarge {
		t.Errorf("code = %v, want %s", code, api.ErrCodePayloadTooLarge)
	}

	if called {
		t.Error("oversized body reached the service")
	}
}

func TestMatchGet(t *testing.T) {
	t.Parallel()

	repo := &mockMatchRepo{
		getFn: func(_ context.Context, _, runID string) (*models.MatchRun, error) {
			if runID == "missing" {
				return nil, models.ErrRunNotFound
			}
			return sampleRun(t), nil
		},
	}
	r := matchRouter(repo)

	if w := doRequest(r, http.MethodGet, "/matches/run-1", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodGet, "/matches/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestMatchRecords_Table(t *testing.T) {
	t.Parallel()

	repo := &mockMatchRepo{
		getFn: func(context.Context, string, string) (*models.MatchRun, error) {
			return sampleRun(t), nil
		},
	}

	w := doRequest(matchRouter(repo), http.MethodGet, "/matches/run-1/records", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var table models.RecordTable
	if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	wantCols := []string{"resultNodeId", "queryNodeId", "subgraphIndex", "totalSubgraphCount"}
	if fmt.Sprint(table.Columns) != fmt.Sprint(wantCols) {
		t.Errorf("columns = %v, want %v", table.Columns, wantCols)
	}

	if len(table.Rows) != 1 || fmt.Sprint(table.Rows[0]) != "[42 q1 0 1]" {
		t.Errorf("rows = %v", table.Rows)
	}
}

func TestMatchList(t *testing.T) {
	t.Parallel()

	var gotLimit, gotOffset int
	repo := &mockMatchRepo{
		listFn: func(_ context.Context, _ string, limit, offset int) ([]models.MatchRunSummary, bool, error) {
			gotLimit, gotOffset = limit, offset
			return nil, false, nil
		},
	}

	w := doRequest(matchRouter(repo), http.MethodGet, "/matches?limit=5000&offset=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if gotLimit != 1000 || gotOffset != 10 {
		t.Errorf("limit=%d offset=%d, want 1000 10", gotLimit, gotOffset)
	}

	resp := decodeBody(t, w.Body.Bytes())
	if runs, ok := resp["runs"].([]any); !ok || len(runs) != 0 {
		t.Errorf("runs = %v, want empty array", resp["runs"])
	}
}

func TestMatchDelete(t *testing.T) {
	t.Parallel()

	repo := &mockMatchRepo{
		deleteFn: func(_ context.Context, _, runID string) error {
			if runID == "missing" {
				return models.ErrRunNotFound
			}
			return nil
		},
	}
	r := matchRouter(repo)

	w := doRequest(r, http.MethodDelete, "/matches/run-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if decodeBody(t, w.Body.Bytes())["deleted"] != true {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	if w := doRequest(r, http.MethodDelete, "/matches/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
