package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
	"github.com/persistorai/isomatch/internal/service"
)

// NodeHandler serves the node registry endpoints.
type NodeHandler struct {
	repo NodeRepository
	log  *logrus.Logger
}

// NewNodeHandler creates a NodeHandler.
func NewNodeHandler(repo NodeRepository, log *logrus.Logger) *NodeHandler {
	return &NodeHandler{repo: repo, log: log}
}

// Register handles POST /api/v1/nodes.
func (h *NodeHandler) Register(c *gin.Context) {
	var req models.RegisterNodeRequest
	if !bindJSON(c, &req) {
		return
	}

	h.register(c, []models.RegisterNodeRequest{req}, "node.register")
}

// RegisterBulk handles POST /api/v1/nodes/bulk.
func (h *NodeHandler) RegisterBulk(c *gin.Context) {
	var reqs []models.RegisterNodeRequest
	if !bindJSON(c, &reqs) {
		return
	}

	h.register(c, reqs, "node.register_bulk")
}

func (h *NodeHandler) register(c *gin.Context, reqs []models.RegisterNodeRequest, action string) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	n, err := h.repo.RegisterNodes(c.Request.Context(), tenantID, reqs)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, verr.Error())

			return
		}

		h.log.WithError(err).Error("registering nodes")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": action, "tenant_id": tenantID, "registered": n}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"registered": n})
}

// List handles GET /api/v1/nodes.
func (h *NodeHandler) List(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	typeFilter := c.Query("type")
	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	nodes, hasMore, err := h.repo.ListNodes(c.Request.Context(), tenantID, typeFilter, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("listing nodes")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	if nodes == nil {
		nodes = []models.Node{}
	}

	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "has_more": hasMore})
}

// Delete handles DELETE /api/v1/nodes/:id.
func (h *NodeHandler) Delete(c *gin.Context) {
	nodeID := c.Param("id")
	if err := validatePathID(nodeID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	if err := h.repo.DeleteNode(c.Request.Context(), tenantID, nodeID); err != nil {
		if errors.Is(err, models.ErrNodeNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "node not found")

			return
		}

		h.log.WithError(err).Error("deleting node")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "node.delete", "tenant_id": tenantID, "node_id": nodeID}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
