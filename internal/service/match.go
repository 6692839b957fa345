// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/isomatch/internal/domain"
	"github.com/persistorai/isomatch/internal/metrics"
	"github.com/persistorai/isomatch/internal/models"
)

// Compile-time check: *MatchService must satisfy domain.MatchService.
var _ domain.MatchService = (*MatchService)(nil)

// MatchService turns embeddings reported by an external matching engine into
// persisted match records.
type MatchService struct {
	resolver      domain.NodeResolver
	runs          domain.RunStore
	events        EventEnqueuer
	log           *logrus.Logger
	maxEmbeddings int
}

// NewMatchService creates a MatchService. maxEmbeddings <= 0 uses models.MaxEmbeddings.
func NewMatchService(
	resolver domain.NodeResolver,
	runs domain.RunStore,
	events EventEnqueuer,
	log *logrus.Logger,
	maxEmbeddings int,
) *MatchService {
	return &MatchService{resolver: resolver, runs: runs, events: events, log: log, maxEmbeddings: maxEmbeddings}
}

// ValidationError marks a rejected submission so handlers can map it to 400.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// SubmitMatches validates the submission, resolves every referenced node,
// builds one record per node pair and stores the run.
func (s *MatchService) SubmitMatches(ctx context.Context, tenantID string, req models.SubmitMatchesRequest) (*models.MatchRun, error) {
	if err := req.ValidateWithLimit(s.maxEmbeddings); err != nil {
		metrics.MatchRunsTotal.WithLabelValues("rejected").Inc()
		s.reject(tenantID, req, "validation", err)

		return nil, &ValidationError{Err: err}
	}

	log := s.log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"pattern":    req.Pattern,
		"embeddings": len(req.Embeddings),
		"on_invalid": req.OnInvalid,
		"backend":    s.resolver.Backend(),
	})
	log.Debug("match.submit")

	queryIDs, resultIDs := models.DistinctNodeIDs(req.Embeddings)

	queryHandles, resultHandles, err := s.resolve(ctx, tenantID, queryIDs, resultIDs)
	if err != nil {
		metrics.MatchRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	records, skipped, err := models.AssembleRecords(req.Embeddings, queryHandles, resultHandles, req.OnInvalid == models.OnInvalidSkip)
	if skipped > 0 {
		metrics.InvalidReferencesTotal.Add(float64(skipped))
	}

	if err != nil {
		if errors.Is(err, models.ErrInvalidReference) {
			metrics.InvalidReferencesTotal.Inc()
			metrics.MatchRunsTotal.WithLabelValues("invalid_reference").Inc()
			log.WithError(err).Info("match.submit aborted on invalid reference")
			s.reject(tenantID, req, "invalid_reference", err)
		} else {
			metrics.MatchRunsTotal.WithLabelValues("error").Inc()
		}

		return nil, err
	}

	run := &models.MatchRun{
		Pattern:        req.Pattern,
		TotalSubgraphs: len(req.Embeddings),
		SkippedRecords: skipped,
		Records:        records,
	}

	if err := s.runs.SaveRun(ctx, tenantID, run); err != nil {
		metrics.MatchRunsTotal.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("saving match run: %w", err)
	}

	metrics.MatchRunsTotal.WithLabelValues("stored").Inc()
	metrics.MatchRecordsTotal.Add(float64(len(records)))

	s.events.Enqueue(&EventJob{
		TenantID: tenantID,
		Action:   models.EventRunStored,
		RunID:    run.ID,
		Actor:    req.Source,
		Detail: map[string]any{
			"pattern":         run.Pattern,
			"records":         len(records),
			"skipped":         skipped,
			"total_subgraphs": run.TotalSubgraphs,
		},
	})

	log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"records": len(records),
		"skipped": skipped,
	}).Info("match run stored")

	return run, nil
}

func (s *MatchService) reject(tenantID string, req models.SubmitMatchesRequest, reason string, err error) {
	s.events.Enqueue(&EventJob{
		TenantID: tenantID,
		Action:   models.EventRunRejected,
		Actor:    req.Source,
		Detail: map[string]any{
			"reason":     reason,
			"error":      err.Error(),
			"embeddings": len(req.Embeddings),
		},
	})
}

// resolve looks up query-pattern and result nodes concurrently.
func (s *MatchService) resolve(
	ctx context.Context,
	tenantID string,
	queryIDs, resultIDs []string,
) (queryHandles, resultHandles map[string]models.NodeHandle, err error) {
	start := time.Now()

	defer func() {
		metrics.ResolveDuration.WithLabelValues(s.resolver.Backend()).Observe(time.Since(start).Seconds())
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := s.resolver.ResolveNodes(gctx, tenantID, queryIDs)
		if err != nil {
			return fmt.Errorf("resolving query nodes: %w", err)
		}

		queryHandles = h

		return nil
	})

	g.Go(func() error {
		h, err := s.resolver.ResolveNodes(gctx, tenantID, resultIDs)
		if err != nil {
			return fmt.Errorf("resolving result nodes: %w", err)
		}

		resultHandles = h

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return queryHandles, resultHandles, nil
}

// GetRun returns a stored run with its records.
func (s *MatchService) GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error) {
	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"run_id":    runID,
	}).Debug("match.get_run")

	return s.runs.GetRun(ctx, tenantID, runID)
}

// ListRuns returns run summaries, newest first.
func (s *MatchService) ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error) {
	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"limit":     limit,
		"offset":    offset,
	}).Debug("match.list_runs")

	return s.runs.ListRuns(ctx, tenantID, limit, offset)
}

// DeleteRun removes a stored run.
func (s *MatchService) DeleteRun(ctx context.Context, tenantID, runID string) error {
	if err := s.runs.DeleteRun(ctx, tenantID, runID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"run_id":    runID,
	}).Info("match run deleted")

	s.events.Enqueue(&EventJob{TenantID: tenantID, Action: models.EventRunDeleted, RunID: runID})

	return nil
}
