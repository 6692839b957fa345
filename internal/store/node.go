package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/isomatch/internal/models"
)

// resolveChunkSize caps the ids sent in one ANY($1) lookup.
const resolveChunkSize = 1000

// NodeStore maintains the kg_nodes registry and resolves node references
// against it.
type NodeStore struct {
	Base
}

// NewNodeStore creates a NodeStore with the given shared base.
func NewNodeStore(base Base) *NodeStore {
	return &NodeStore{Base: base}
}

// Backend names the graph backend for logs and metrics.
func (s *NodeStore) Backend() string { return "postgres" }

// ResolveNodes returns a handle for every requested id. Ids with no row in
// kg_nodes map to disposed handles so record construction reports them.
func (s *NodeStore) ResolveNodes(ctx context.Context, tenantID string, ids []string) (map[string]models.NodeHandle, error) {
	handles := make(map[string]models.NodeHandle, len(ids))
	if len(ids) == 0 {
		return handles, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving nodes: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	for start := 0; start < len(ids); start += resolveChunkSize {
		end := min(start+resolveChunkSize, len(ids))

		rows, err := tx.Query(ctx,
			`SELECT id FROM kg_nodes WHERE tenant_id = current_setting('app.tenant_id')::uuid AND id = ANY($1)`,
			ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("querying node ids: %w", err)
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()

				return nil, fmt.Errorf("scanning node id: %w", err)
			}

			handles[id] = models.NodeID(id)
		}

		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating node ids: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing resolve nodes: %w", err)
	}

	missing := 0

	for _, id := range ids {
		if _, ok := handles[id]; !ok {
			handles[id] = models.DisposedNode(id)
			missing++
		}
	}

	if missing > 0 {
		s.Log.WithField("missing", missing).Debug("store.resolve_nodes: unresolved ids")
	}

	return handles, nil
}

// RegisterNodes upserts nodes into the registry and returns how many rows were
// written. Rows are copied into a staging table and merged in one statement;
// a repeated id keeps its last type and label.
func (s *NodeStore) RegisterNodes(ctx context.Context, tenantID string, reqs []models.RegisterNodeRequest) (int, error) {
	reqs = models.DedupeNodes(reqs)
	if len(reqs) == 0 {
		return 0, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("registering nodes: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	_, err = tx.Exec(ctx,
		`CREATE TEMP TABLE node_staging (id TEXT NOT NULL, type TEXT NOT NULL, label TEXT NOT NULL) ON COMMIT DROP`)
	if err != nil {
		return 0, fmt.Errorf("creating node staging table: %w", err)
	}

	rows := make([][]any, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []any{r.ID, r.Type, r.Label})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"node_staging"},
		[]string{"id", "type", "label"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return 0, fmt.Errorf("copying nodes: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO kg_nodes (tenant_id, id, type, label)
		SELECT current_setting('app.tenant_id')::uuid, id, type, label FROM node_staging
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET type = EXCLUDED.type,
			label = EXCLUDED.label,
			updated_at = now()`)
	if err != nil {
		return 0, fmt.Errorf("upserting nodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing register nodes: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// ListNodes returns registered nodes ordered by id, optionally filtered by type.
func (s *NodeStore) ListNodes(
	ctx context.Context,
	tenantID, typeFilter string,
	limit, offset int,
) ([]models.Node, bool, error) {
	limit = clampLimit(limit)

	if offset < 0 {
		offset = 0
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("listing nodes: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	rows, err := tx.Query(ctx,
		`SELECT id, type, label, created_at, updated_at FROM kg_nodes
		WHERE tenant_id = current_setting('app.tenant_id')::uuid
		AND ($1 = '' OR type = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3`,
		typeFilter, limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]models.Node, 0, limit+1)

	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.ID, &n.Type, &n.Label, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scanning node row: %w", err)
		}

		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating node rows: %w", err)
	}

	hasMore := len(nodes) > limit
	if hasMore {
		nodes = nodes[:limit]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing list nodes: %w", err)
	}

	return nodes, hasMore, nil
}

// DeleteNode removes a node from the registry. Stored match records keep the
// id; only later submissions stop resolving it.
func (s *NodeStore) DeleteNode(ctx context.Context, tenantID, nodeID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tag, err := tx.Exec(ctx,
		`DELETE FROM kg_nodes WHERE tenant_id = current_setting('app.tenant_id')::uuid AND id = $1`,
		nodeID)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNodeNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete node: %w", err)
	}

	return nil
}
