// Package domain defines the canonical service interfaces shared across the
// API layer, the server wiring and the stores. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/isomatch/internal/models"
)

// MatchService defines match run operations.
type MatchService interface {
	SubmitMatches(ctx context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error)
	ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error)
	DeleteRun(ctx context.Context, tenantID, runID string) error
}

// NodeResolver turns node ids reported by a matching engine into handles.
// Every requested id is present in the result; ids unknown to the graph map to
// handles whose ID reports models.ErrInvalidReference.
type NodeResolver interface {
	ResolveNodes(ctx context.Context, tenantID string, ids []string) (map[string]models.NodeHandle, error)
	Backend() string
}

// NodeRegistry maintains the Postgres node registry that NodeResolver reads.
type NodeRegistry interface {
	RegisterNodes(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error)
	ListNodes(ctx context.Context, tenantID, typeFilter string, limit, offset int) ([]models.Node, bool, error)
	DeleteNode(ctx context.Context, tenantID, nodeID string) error
}

// RunStore persists match runs.
type RunStore interface {
	SaveRun(ctx context.Context, tenantID string, run *models.MatchRun) error
	GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error)
	ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error)
	DeleteRun(ctx context.Context, tenantID, runID string) error
}

// EventService defines run event history operations.
type EventService interface {
	QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error)
	PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
