package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/domain"
	"github.com/persistorai/isomatch/internal/models"
)

// Compile-time check: *EventService must satisfy domain.EventService.
var _ domain.EventService = (*EventService)(nil)

// EventStore is the data access EventService depends on.
type EventStore interface {
	QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error)
	PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error)
}

// EventService reads and prunes the run event history.
type EventService struct {
	store EventStore
	log   *logrus.Logger
}

// NewEventService creates an EventService.
func NewEventService(store EventStore, log *logrus.Logger) *EventService {
	return &EventService{store: store, log: log}
}

// QueryEvents returns events matching opts (pass-through).
func (s *EventService) QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error) {
	return s.store.QueryEvents(ctx, tenantID, opts)
}

// PurgeOldEvents deletes events older than retentionDays and logs the result.
func (s *EventService) PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error) {
	deleted, err := s.store.PurgeOldEvents(ctx, tenantID, retentionDays)
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"retention_days": retentionDays,
		"deleted":        deleted,
	}).Info("events.purge")

	return deleted, nil
}
