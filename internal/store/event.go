package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
)

// purgeBatchSize caps the rows removed per transaction.
const purgeBatchSize = 5000

// EventStore provides data access for the match_run_events table.
type EventStore struct {
	Base
}

// NewEventStore creates an EventStore.
func NewEventStore(base Base) *EventStore {
	return &EventStore{Base: base}
}

// RecordEvent inserts one run event and returns it with its assigned id.
func (s *EventStore) RecordEvent(
	ctx context.Context,
	tenantID, action, runID, actor string,
	detail map[string]any,
) (*models.RunEvent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	var detailJSON []byte
	if detail != nil {
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return nil, fmt.Errorf("marshaling event detail: %w", err)
		}
	}

	var actorArg *string
	if actor != "" {
		actorArg = &actor
	}

	ev := &models.RunEvent{
		TenantID: tenantID,
		Action:   action,
		RunID:    runID,
		Actor:    actor,
		Detail:   detail,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO match_run_events (tenant_id, action, run_id, actor, detail)
		VALUES (current_setting('app.tenant_id')::uuid, $1, $2, $3, $4)
		RETURNING id, created_at`,
		action, runID, actorArg, detailJSON,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting run event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing run event: %w", err)
	}

	return ev, nil
}

// eventFilter builds the WHERE clause for an event listing.
func eventFilter(opts models.EventQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string

	add := func(column string, v any) {
		args = append(args, v)
		conditions = append(conditions, column+" $"+strconv.Itoa(len(args)))
	}

	if opts.RunID != "" {
		add("run_id =", opts.RunID)
	}

	if opts.Action != "" {
		add("action =", opts.Action)
	}

	if opts.Since != nil {
		add("created_at >=", *opts.Since)
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, len(args) + 1
}

// QueryEvents returns events newest first, plus whether more exist.
func (s *EventStore) QueryEvents(ctx context.Context, tenantID string, opts models.EventQueryOpts) ([]models.RunEvent, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only tx.

	where, args, argIdx := eventFilter(opts)

	limit := clampLimit(opts.Limit)

	query := fmt.Sprintf(
		"SELECT id, action, run_id, actor, detail, created_at FROM match_run_events %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, max(opts.Offset, 0))

	events, err := scanEvents(ctx, tx, query, args, s.Log)
	if err != nil {
		return nil, false, err
	}

	for i := range events {
		events[i].TenantID = tenantID
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	return events, hasMore, nil
}

func scanEvents(ctx context.Context, tx pgx.Tx, query string, args []any, log *logrus.Logger) ([]models.RunEvent, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying run events: %w", err)
	}
	defer rows.Close()

	events := []models.RunEvent{}

	for rows.Next() {
		var (
			e          models.RunEvent
			actor      *string
			detailJSON []byte
		)

		if err := rows.Scan(&e.ID, &e.Action, &e.RunID, &actor, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run event: %w", err)
		}

		if actor != nil {
			e.Actor = *actor
		}

		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				log.WithError(err).Warn("failed to unmarshal run event detail")
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// PurgeOldEvents deletes the tenant's events older than retentionDays in
// batches and returns how many were removed.
func (s *EventStore) PurgeOldEvents(ctx context.Context, tenantID string, retentionDays int) (int, error) {
	var total int

	for {
		batchCtx, cancel := withTimeout(ctx)
		deleted, err := s.purgeBatch(batchCtx, tenantID, retentionDays)
		cancel()

		if err != nil {
			return total, err
		}

		total += deleted
		if deleted < purgeBatchSize {
			return total, nil
		}
	}
}

func (s *EventStore) purgeBatch(ctx context.Context, tenantID string, retentionDays int) (int, error) {
	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	tag, err := tx.Exec(ctx,
		`DELETE FROM match_run_events WHERE id IN (
			SELECT id FROM match_run_events
			WHERE tenant_id = current_setting('app.tenant_id')::uuid
			  AND created_at < NOW() - make_interval(days => $1)
			LIMIT $2
		)`,
		retentionDays, purgeBatchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("purging run events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}
