// Package graphdb resolves match node references against a Neo4j database.
package graphdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
)

// Identifier modes.
const (
	IDModeElement = "element"
	IDModeLegacy  = "legacy"
)

const (
	connectTimeout = 5 * time.Second
	queryTimeout   = 30 * time.Second
	chunkSize      = 1000
)

const (
	elementQuery = `UNWIND $ids AS nid MATCH (n) WHERE elementId(n) = nid RETURN elementId(n) AS id`
	legacyQuery  = `MATCH (n) WHERE id(n) IN $ids RETURN id(n) AS id`
)

// Neo4jResolver implements node resolution over a Neo4j driver.
type Neo4jResolver struct {
	driver neo4j.DriverWithContext
	dbName string
	idMode string
	log    *logrus.Logger
}

// NewNeo4jResolver connects to Neo4j and verifies connectivity.
func NewNeo4jResolver(uri, username, password, dbName, idMode string, log *logrus.Logger) (*Neo4jResolver, error) {
	if idMode != IDModeElement && idMode != IDModeLegacy {
		return nil, fmt.Errorf("unknown neo4j id mode %q", idMode)
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx) //nolint:errcheck // best-effort close on failed connect.

		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	return &Neo4jResolver{driver: driver, dbName: dbName, idMode: idMode, log: log}, nil
}

// Backend names the graph backend for logs and metrics.
func (r *Neo4jResolver) Backend() string { return "neo4j" }

// HealthCheck verifies the driver can still reach the server.
func (r *Neo4jResolver) HealthCheck(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// Close releases the driver's connections.
func (r *Neo4jResolver) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// ResolveNodes returns a handle for every requested id. Neo4j holds one graph
// per database, so tenantID only scopes logging.
func (r *Neo4jResolver) ResolveNodes(ctx context.Context, tenantID string, ids []string) (map[string]models.NodeHandle, error) {
	handles := make(map[string]models.NodeHandle, len(ids))
	if len(ids) == 0 {
		return handles, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	for start := 0; start < len(ids); start += chunkSize {
		chunk := ids[start:min(start+chunkSize, len(ids))]

		query, params, aliases := lookupQuery(r.idMode, chunk)
		if params == nil {
			continue
		}

		found, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}

			recs, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}

			out := make([]any, 0, len(recs))
			for _, rec := range recs {
				if v, ok := rec.Get("id"); ok {
					out = append(out, v)
				}
			}

			return out, nil
		})
		if err != nil {
			return nil, fmt.Errorf("resolving neo4j nodes: %w", err)
		}

		assignHandles(handles, found.([]any), aliases) //nolint:forcetypeassert // callback always returns []any.
	}

	missing := fillDisposed(handles, ids)
	if missing > 0 {
		r.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"missing":   missing,
			"id_mode":   r.idMode,
		}).Debug("graphdb.resolve_nodes: unresolved ids")
	}

	return handles, nil
}

// lookupQuery returns the Cypher and parameters for one chunk of ids. In
// legacy mode ids that are not integers cannot match and are left out; a nil
// params map means nothing in the chunk can match. aliases maps each queried
// integer back to the ids requested for it, so "007" and "7" both resolve.
func lookupQuery(idMode string, ids []string) (string, map[string]any, map[int64][]string) {
	if idMode == IDModeElement {
		return elementQuery, map[string]any{"ids": ids}, nil
	}

	nums := make([]int64, 0, len(ids))
	aliases := make(map[int64][]string, len(ids))

	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n < 0 {
			continue
		}

		if _, seen := aliases[n]; !seen {
			nums = append(nums, n)
		}

		aliases[n] = append(aliases[n], id)
	}

	if len(nums) == 0 {
		return legacyQuery, nil, nil
	}

	return legacyQuery, map[string]any{"ids": nums}, aliases
}

// assignHandles stores a handle for each returned id under the id the caller
// requested it by.
func assignHandles(handles map[string]models.NodeHandle, found []any, aliases map[int64][]string) {
	for _, v := range found {
		key, h, ok := handleFor(v)
		if !ok {
			continue
		}

		n, legacy := v.(int64)
		if !legacy {
			handles[key] = h

			continue
		}

		for _, requested := range aliases[n] {
			handles[requested] = h
		}
	}
}

// handleFor turns a returned id value into its map key and handle.
func handleFor(v any) (string, models.NodeHandle, bool) {
	switch id := v.(type) {
	case string:
		return id, models.NodeID(id), true
	case int64:
		return strconv.FormatInt(id, 10), models.LegacyNodeID(id), true
	default:
		return "", nil, false
	}
}

// fillDisposed maps every id without a handle to a disposed one and returns how many there were.
func fillDisposed(handles map[string]models.NodeHandle, ids []string) int {
	missing := 0

	for _, id := range ids {
		if _, ok := handles[id]; !ok {
			handles[id] = models.DisposedNode(id)
			missing++
		}
	}

	return missing
}
