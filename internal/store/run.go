package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/persistorai/isomatch/internal/models"
)

const runColumns = `id, pattern, total_subgraphs, skipped_records, record_count, created_at`

// RunStore persists match runs and their records.
type RunStore struct {
	Base
}

// NewRunStore creates a RunStore with the given shared base.
func NewRunStore(base Base) *RunStore {
	return &RunStore{Base: base}
}

// SaveRun inserts the run header and copies its records in order. The run's
// ID and CreatedAt are assigned here.
func (s *RunStore) SaveRun(ctx context.Context, tenantID string, run *models.MatchRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant ID format: %w", err)
	}

	runUUID := uuid.New()
	run.ID = runUUID.String()

	err = tx.QueryRow(ctx,
		`INSERT INTO match_runs (id, tenant_id, pattern, total_subgraphs, skipped_records, record_count)
		VALUES ($1, current_setting('app.tenant_id')::uuid, $2, $3, $4, $5)
		RETURNING created_at`,
		run.ID, run.Pattern, run.TotalSubgraphs, run.SkippedRecords, len(run.Records),
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if len(run.Records) > 0 {
		rows := make([][]any, 0, len(run.Records))
		for i, rec := range run.Records {
			rows = append(rows, []any{
				runUUID, tenantUUID, i,
				rec.ResultNodeID(), rec.QueryNodeID(), rec.SubgraphIndex(), rec.TotalSubgraphCount(),
			})
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"match_records"},
			[]string{"run_id", "tenant_id", "position", "result_node_id", "query_node_id", "subgraph_index", "total_subgraph_count"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copying match records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	return nil
}

// GetRun returns a run with its records in emission order.
func (s *RunStore) GetRun(ctx context.Context, tenantID, runID string) (*models.MatchRun, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, models.ErrRunNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var (
		run         models.MatchRun
		recordCount int
	)

	err = tx.QueryRow(ctx,
		`SELECT `+runColumns+` FROM match_runs WHERE tenant_id = current_setting('app.tenant_id')::uuid AND id = $1`,
		runID,
	).Scan(&run.ID, &run.Pattern, &run.TotalSubgraphs, &run.SkippedRecords, &recordCount, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrRunNotFound
		}

		return nil, fmt.Errorf("scanning run: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT result_node_id, query_node_id, subgraph_index, total_subgraph_count
		FROM match_records WHERE run_id = $1 ORDER BY position`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("querying match records: %w", err)
	}
	defer rows.Close()

	run.Records = make([]models.MatchRecord, 0, recordCount)

	for rows.Next() {
		cols := make([]string, len(models.MatchColumns))
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3]); err != nil {
			return nil, fmt.Errorf("scanning match record: %w", err)
		}

		rec, err := models.MatchRecordFromRow(cols)
		if err != nil {
			return nil, fmt.Errorf("decoding match record: %w", err)
		}

		run.Records = append(run.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing get run: %w", err)
	}

	return &run, nil
}

// ListRuns returns run summaries, newest first.
func (s *RunStore) ListRuns(ctx context.Context, tenantID string, limit, offset int) ([]models.MatchRunSummary, bool, error) {
	limit = clampLimit(limit)

	if offset < 0 {
		offset = 0
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("listing runs: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	rows, err := tx.Query(ctx,
		`SELECT `+runColumns+` FROM match_runs
		WHERE tenant_id = current_setting('app.tenant_id')::uuid
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`,
		limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.MatchRunSummary, 0, limit+1)

	for rows.Next() {
		var r models.MatchRunSummary
		if err := rows.Scan(&r.ID, &r.Pattern, &r.TotalSubgraphs, &r.SkippedRecords, &r.RecordCount, &r.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scanning run row: %w", err)
		}

		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating run rows: %w", err)
	}

	hasMore := len(runs) > limit
	if hasMore {
		runs = runs[:limit]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing list runs: %w", err)
	}

	return runs, hasMore, nil
}

// DeleteRun removes a run; its records cascade.
func (s *RunStore) DeleteRun(ctx context.Context, tenantID, runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return models.ErrRunNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tag, err := tx.Exec(ctx,
		`DELETE FROM match_runs WHERE tenant_id = current_setting('app.tenant_id')::uuid AND id = $1`,
		runID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrRunNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete run: %w", err)
	}

	return nil
}
