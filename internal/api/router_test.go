package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/persistorai/isomatch/internal/api"
	"github.com/persistorai/isomatch/internal/models"
)

func newFullRouter() http.Handler {
	return api.NewRouter(&api.RouterDeps{
		Log:          testLogger(),
		GraphBackend: "postgres",
		Matches: &mockMatchRepo{
			listFn: func(context.Context, string, int, int) ([]models.MatchRunSummary, bool, error) {
				return []models.MatchRunSummary{}, false, nil
			},
		},
		Events:       &mockEventRepo{},
		TenantLookup: mockTenantLookup{"secret": testTenantID},
		CORSOrigins:  []string{"http://localhost:3002"},
		Version:      "test",
	})
}

func TestRouter_AuthRequired(t *testing.T) {
	t.Parallel()

	r := newFullRouter()

	tests := []struct {
		name     string
		path     string
		auth     string
		wantCode int
	}{
		{name: "health is public", path: "/api/v1/health", wantCode: http.StatusOK},
		{name: "metrics is public", path: "/metrics", wantCode: http.StatusOK},
		{name: "matches without key", path: "/api/v1/matches", wantCode: http.StatusUnauthorized},
		{name: "matches with wrong key", path: "/api/v1/matches", auth: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "matches with key", path: "/api/v1/matches", auth: "Bearer secret", wantCode: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Errorf("got %d, want %d: %s", w.Code, tc.wantCode, w.Body.String())
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}
