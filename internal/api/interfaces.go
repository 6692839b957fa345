package api

import (
	"context"

	"github.com/persistorai/isomatch/internal/models"
)

// MatchRepository defines match run operations used by MatchHandler.
type MatchRepository interface {
	SubmitMatches(ctx context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error)
	ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error)
	DeleteRun(ctx context.Context, tenantID, runID string) error
}

// NodeRepository defines node registry operations used by NodeHandler.
type NodeRepository interface {
	RegisterNodes(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error)
	ListNodes(ctx context.Context, tenantID, typeFilter string, limit, offset int) ([]models.Node, bool, error)
	DeleteNode(ctx context.Context, tenantID, nodeID string) error
}

// EventRepository defines run event operations used by EventHandler.
type EventRepository interface {
	QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error)
	PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
