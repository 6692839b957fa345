package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/domain"
	"github.com/persistorai/isomatch/internal/metrics"
	"github.com/persistorai/isomatch/internal/models"
)

// Compile-time check: *NodeService must satisfy domain.NodeRegistry.
var _ domain.NodeRegistry = (*NodeService)(nil)

// NodeService validates and records node registrations.
type NodeService struct {
	store domain.NodeRegistry
	log   *logrus.Logger
}

// NewNodeService creates a NodeService.
func NewNodeService(store domain.NodeRegistry, log *logrus.Logger) *NodeService {
	return &NodeService{store: store, log: log}
}

// RegisterNodes validates the batch and upserts it.
func (s *NodeService) RegisterNodes(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error) {
	if err := models.ValidateNodeBatch(reqs); err != nil {
		return 0, &ValidationError{Err: err}
	}

	n, err := s.store.RegisterNodes(ctx, tenantID, reqs)
	if err != nil {
		return 0, err
	}

	metrics.NodesRegisteredTotal.Add(float64(n))

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"requested": len(reqs),
		"written":   n,
	}).Info("nodes registered")

	return n, nil
}

// ListNodes returns registered nodes (pass-through).
func (s *NodeService) ListNodes(ctx context.Context, tenantID, typeFilter string, limit, offset int) ([]models.Node, bool, error) {
	return s.store.ListNodes(ctx, tenantID, typeFilter, limit, offset)
}

// DeleteNode removes a node from the registry.
func (s *NodeService) DeleteNode(ctx context.Context, tenantID, nodeID string) error {
	if err := s.store.DeleteNode(ctx, tenantID, nodeID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"node_id":   nodeID,
	}).Info("node deleted")

	return nil
}
