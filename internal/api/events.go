package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
)

const defaultRetentionDays = 90

// EventHandler serves the run event history.
type EventHandler struct {
	repo EventRepository
	log  *logrus.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(repo EventRepository, log *logrus.Logger) *EventHandler {
	return &EventHandler{repo: repo, log: log}
}

// Query handles GET /api/v1/events.
func (h *EventHandler) Query(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	opts := models.EventQueryOpts{
		RunID:  c.Query("run_id"),
		Action: c.Query("action"),
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseOffset(c.Query("offset")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")

			return
		}

		opts.Since = &t
	}

	events, hasMore, err := h.repo.QueryEvents(c.Request.Context(), tenantID, opts)
	if err != nil {
		h.log.WithError(err).Error("querying run events")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query run events")

		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "has_more": hasMore})
}

// Purge handles DELETE /api/v1/events.
func (h *EventHandler) Purge(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	retentionDays := defaultRetentionDays
	if rd := c.Query("retention_days"); rd != "" {
		v, err := strconv.Atoi(rd)
		if err != nil || v < 1 {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "retention_days must be a positive integer")

			return
		}

		retentionDays = v
	}

	deleted, err := h.repo.PurgeOldEvents(c.Request.Context(), tenantID, retentionDays)
	if err != nil {
		h.log.WithError(err).Error("purging run events")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to purge run events")

		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "retention_days": retentionDays})
}
