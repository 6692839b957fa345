// Package api provides HTTP handlers for isomatch.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/db"
	"github.com/persistorai/isomatch/internal/dbpool"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	graph     HealthChecker
	backend   string
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. graph may be nil when node
// resolution runs on the same database as the pool.
func NewHealthHandler(pool *dbpool.Pool, graph HealthChecker, backend string, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		graph:     graph,
		backend:   backend,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	GraphBackend  string  `json:"graph_backend"`
	SchemaVersion int     `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health. It always answers 200; dependency
// state is informational.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		GraphBackend:  h.backend,
		SchemaVersion: db.SchemaVersion(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.pool == nil {
		resp.Database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready: database, schema and graph backend
// must all be usable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"schema":   "ok",
		"graph":    "ok",
	}

	if err := h.checkDatabase(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database check failed")
		checks["database"] = "error"
		checks["schema"] = "unknown"
	} else if err := h.checkSchema(ctx); err != nil {
		h.log.WithError(err).Error("readiness: schema check failed")
		checks["schema"] = "error"
	}

	if h.graph != nil {
		if err := h.graph.HealthCheck(ctx); err != nil {
			h.log.WithError(err).Error("readiness: graph backend check failed")
			checks["graph"] = "error"
		}
	}

	status, code := "ready", http.StatusOK

	for _, v := range checks {
		if v != "ok" {
			status, code = "not_ready", http.StatusServiceUnavailable

			break
		}
	}

	c.JSON(code, readinessResponse{Status: status, Checks: checks})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.pool == nil {
		return fmt.Errorf("database not configured")
	}

	return h.pool.HealthCheck(ctx)
}

// checkSchema verifies every embedded migration has been applied.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var applied int64

	err := h.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied",
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if want := int64(db.SchemaVersion()); applied < want {
		return fmt.Errorf("schema at version %d, want %d", applied, want)
	}

	return nil
}
