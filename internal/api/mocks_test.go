package api_test

import (
	"context"
	"errors"

	"github.com/persistorai/isomatch/internal/models"
)

// mockMatchRepo implements api.MatchRepository for testing.
type mockMatchRepo struct {
	submitFn func(ctx context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error)
	getFn    func(ctx context.Context, tenantID, runID string) (*models.MatchRun, error)
	listFn   func(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error)
	deleteFn func(ctx context.Context, tenantID, runID string) error
}

func (m *mockMatchRepo) SubmitMatches(ctx context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error) {
	return m.submitFn(ctx, tenantID, req)
}

func (m *mockMatchRepo) GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error) {
	return m.getFn(ctx, tenantID, runID)
}

func (m *mockMatchRepo) ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error) {
	return m.listFn(ctx, tenantID, limit, offset)
}

func (m *mockMatchRepo) DeleteRun(ctx context.Context, tenantID, runID string) error {
	return m.deleteFn(ctx, tenantID, runID)
}

// mockEventRepo implements api.EventRepository for testing.
type mockEventRepo struct {
	queryFn func(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error)
	purgeFn func(ctx context.Context, tenantID string, retentionDays int) (int, error)
}

func (m *mockEventRepo) QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error) {
	return m.queryFn(ctx, tenantID, opts)
}

func (m *mockEventRepo) PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error) {
	return m.purgeFn(ctx, tenantID, retentionDays)
}

// mockTenantLookup maps API keys to tenants.
type mockTenantLookup map[string]string

func (m mockTenantLookup) GetTenantByAPIKey(_ context.Context, apiKey string) (string, error) {
	if tid, ok := m[apiKey]; ok {
		return tid, nil
	}

	return "", errors.New("unknown api key")
}

// mockChecker returns a fixed health result.
type mockChecker struct{ err error }

func (m mockChecker) HealthCheck(context.Context) error { return m.err }

// mockNodeRepo implements api.NodeRepository for testing.
type mockNodeRepo struct {
	registerFn func(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error)
	listFn     func(ctx context.Context, tenantID, typeFilter string, limit, offset int) ([]models.Node, bool, error)
	deleteFn   func(ctx context.Context, tenantID, nodeID string) error
}

func (m *mockNodeRepo) RegisterNodes(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error) {
	return m.registerFn(ctx, tenantID, reqs)
}

func (m *mockNodeRepo) ListNodes(ctx context.Context, tenantID, typeFilter string, limit, offset int) ([]models.Node, bool, error) {
	return m.listFn(ctx, tenantID, typeFilter, limit, offset)
}

func (m *mockNodeRepo) DeleteNode(ctx context.Context, tenantID, nodeID string) error {
	return m.deleteFn(ctx, tenantID, nodeID)
}
