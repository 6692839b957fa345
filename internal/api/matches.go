package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
	"github.com/persistorai/isomatch/internal/service"
)

// MatchHandler serves match run endpoints.
type MatchHandler struct {
	repo MatchRepository
	log  *logrus.Logger
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(repo MatchRepository, log *logrus.Logger) *MatchHandler {
	return &MatchHandler{repo: repo, log: log}
}

// Submit handles POST /api/v1/matches.
func (h *MatchHandler) Submit(c *gin.Context) {
	var req models.SubmitMatchesRequest
	if !bindJSON(c, &req) {
		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	run, err := h.repo.SubmitMatches(c.Request.Context(), tenantID, req)
	if err != nil {
		h.respondSubmitError(c, err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "match.submit",
		"tenant_id": tenantID,
		"run_id":    run.ID,
		"records":   len(run.Records),
	}).Info("audit")

	c.JSON(http.StatusCreated, run)
}

func (h *MatchHandler) respondSubmitError(c *gin.Context, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, verr.Error())
	case errors.Is(err, models.ErrInvalidReference):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeInvalidReference, err.Error())
	case errors.Is(err, models.ErrInvalidCount), errors.Is(err, models.ErrMissingSubgraphIndex):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeInvalidCount, err.Error())
	default:
		h.log.WithError(err).Error("submitting matches")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

// List handles GET /api/v1/matches.
func (h *MatchHandler) List(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	runs, hasMore, err := h.repo.ListRuns(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("listing match runs")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	if runs == nil {
		runs = []models.MatchRunSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "has_more": hasMore})
}

// Get handles GET /api/v1/matches/:id.
func (h *MatchHandler) Get(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run)
}

// Records handles GET /api/v1/matches/:id/records.
func (h *MatchHandler) Records(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run.Table())
}

func (h *MatchHandler) loadRun(c *gin.Context) (*models.MatchRun, bool) {
	runID := c.Param("id")
	if err := validatePathID(runID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return nil, false
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return nil, false
	}

	run, err := h.repo.GetRun(c.Request.Context(), tenantID, runID)
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "match run not found")

			return nil, false
		}

		h.log.WithError(err).Error("getting match run")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return nil, false
	}

	return run, true
}

// Delete handles DELETE /api/v1/matches/:id.
func (h *MatchHandler) Delete(c *gin.Context) {
	runID := c.Param("id")
	if err := validatePathID(runID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	if err := h.repo.DeleteRun(c.Request.Context(), tenantID, runID); err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "match run not found")

			return
		}

		h.log.WithError(err).Error("deleting match run")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "match.delete", "tenant_id": tenantID, "run_id": runID}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
