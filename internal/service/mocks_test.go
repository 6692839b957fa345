package service

import (
	"context"
	"sync"

	"github.com/persistorai/isomatch/internal/models"
)

// mockResolver resolves ids from a fixed set of known nodes. Unknown ids map
// to disposed handles.
type mockResolver struct {
	mu    sync.Mutex
	calls [][]string

	known map[string]models.NodeHandle
	err   error
}

func (m *mockResolver) Backend() string { return "mock" }

func (m *mockResolver) ResolveNodes(_ context.Context, _ string, ids []string) (map[string]models.NodeHandle, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ids)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	out := make(map[string]models.NodeHandle, len(ids))
	for _, id := range ids {
		if h, ok := m.known[id]; ok {
			out[id] = h
		} else {
			out[id] = models.DisposedNode(id)
		}
	}

	return out, nil
}

func (m *mockResolver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// mockRunStore records calls and returns configured responses.
type mockRunStore struct {
	mu    sync.Mutex
	calls []string

	saveRun   func(ctx context.Context, tenantID string, run *models.MatchRun) error
	getRun    func(ctx context.Context, tenantID, runID string) (*models.MatchRun, error)
	listRuns  func(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error)
	deleteRun func(ctx context.Context, tenantID, runID string) error
}

func (m *mockRunStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockRunStore) SaveRun(ctx context.Context, tenantID string, run *models.MatchRun) error {
	m.record("SaveRun")
	return m.saveRun(ctx, tenantID, run)
}

func (m *mockRunStore) GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error) {
	m.record("GetRun")
	return m.getRun(ctx, tenantID, runID)
}

func (m *mockRunStore) ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error) {
	m.record("ListRuns")
	return m.listRuns(ctx, tenantID, limit, offset)
}

func (m *mockRunStore) DeleteRun(ctx context.Context, tenantID, runID string) error {
	m.record("DeleteRun")
	return m.deleteRun(ctx, tenantID, runID)
}

func (m *mockRunStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// mockRecorder records event writes.
type mockRecorder struct {
	mu    sync.Mutex
	calls []EventJob

	err error
}

func (m *mockRecorder) RecordEvent(
	_ context.Context,
	tenantID, action, runID, actor string,
	detail map[string]any,
) (*models.RunEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EventJob{
		TenantID: tenantID,
		Action:   action,
		RunID:    runID,
		Actor:    actor,
		Detail:   detail,
	})
	if m.err != nil {
		return nil, m.err
	}
	return &models.RunEvent{ID: int64(len(m.calls)), TenantID: tenantID, Action: action, RunID: runID}, nil
}

func (m *mockRecorder) getCalls() []EventJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]EventJob, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// mockPublisher collects published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []*models.RunEvent
}

func (m *mockPublisher) Publish(ev *models.RunEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockPublisher) published() []*models.RunEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*models.RunEvent, len(m.events))
	copy(cp, m.events)
	return cp
}

// mockEnqueuer captures jobs synchronously.
type mockEnqueuer struct {
	mu   sync.Mutex
	jobs []*EventJob
}

func (m *mockEnqueuer) Enqueue(job *EventJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func (m *mockEnqueuer) getJobs() []*EventJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*EventJob, len(m.jobs))
	copy(cp, m.jobs)
	return cp
}

// mockEventStore returns configured event responses.
type mockEventStore struct {
	queryEvents    func(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error)
	purgeOldEvents func(ctx context.Context, tenantID string, retentionDays int) (int, error)
}

func (m *mockEventStore) QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error) {
	return m.queryEvents(ctx, tenantID, opts)
}

func (m *mockEventStore) PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error) {
	return m.purgeOldEvents(ctx, tenantID, retentionDays)
}

// mockRegistry records registered batches.
type mockRegistry struct {
	mu      sync.Mutex
	batches [][]models.RegisterNodeRequest

	err error
}

func (m *mockRegistry) RegisterNodes(_ context.Context, _ string, reqs []models.RegisterNodeRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, reqs)
	if m.err != nil {
		return 0, m.err
	}
	return len(models.DedupeNodes(reqs)), nil
}

func (m *mockRegistry) ListNodes(context.Context, string, string, int, int) ([]models.Node, bool, error) {
	return nil, false, m.err
}

func (m *mockRegistry) DeleteNode(context.Context, string, string) error {
	return m.err
}

func (m *mockRegistry) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}
