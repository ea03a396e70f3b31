// Package graph implements the graph client: a pooled neo4j driver,
// wrapped with exponential-backoff retry, read/write circuit breakers,
// and a pure-read cache with per-label versioned invalidation. The
// retry shape (exponential backoff doubling, capped) is grounded on the
// teacher's deleted
// internal/emergent/client.go withRetry/shouldRetry; this package
// retargets it at the graph driver instead of the Emergent SDK.
package graph

import (
	"context"
	"runtime"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// Row is one returned record, normalized to JSON-safe scalars,
// slices, and maps
type Row map[string]any

// Driver is the narrow interface this package's callers depend on, so
// the concrete neo4j driver stays an external collaborator and tests
// can substitute a fake.
type Driver interface {
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]Row, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) error
	ExecuteWriteTx(ctx context.Context, fn func(tx Tx) error) error
	Health(ctx context.Context) bool
	Close(ctx context.Context) error
}

// Tx is the transaction handle passed to ExecuteWriteTx callbacks.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]any) error
}

// PoolConfig tunes the neo4j driver's connection pool: default pool
// size follows min(2*CPU+4, 100).
type PoolConfig struct {
	MaxConnections      int
	AcquireTimeout      time.Duration
	MaxConnectionLife   time.Duration
}

// DefaultPoolSize returns min(2*CPU+4, 100).
func DefaultPoolSize() int {
	n := 2*runtime.NumCPU() + 4
	if n > 100 {
		return 100
	}
	return n
}

type neo4jDriver struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jDriver dials uri with the given credentials and pool policy.
func NewNeo4jDriver(uri, user, password, database string, pool PoolConfig) (Driver, error) {
	maxConns := pool.MaxConnections
	if maxConns <= 0 {
		maxConns = DefaultPoolSize()
	}
	acquireTimeout := pool.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	maxLife := pool.MaxConnectionLife
	if maxLife <= 0 {
		maxLife = time.Hour
	}

	drv, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = maxConns
			c.ConnectionAcquisitionTimeout = acquireTimeout
			c.MaxConnectionLifetime = maxLife
		})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindDependencyUnavailable, "failed to construct graph driver", err)
	}

	return &neo4jDriver{driver: drv, database: database}, nil
}

func (d *neo4jDriver) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: d.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(records))
		for _, rec := range records {
			rows = append(rows, Row(normalizeRecord(rec)))
		}
		return rows, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return result.([]Row), nil
}

func (d *neo4jDriver) ExecuteWrite(ctx context.Context, query string, params map[string]any) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: d.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (d *neo4jDriver) ExecuteWriteTx(ctx context.Context, fn func(tx Tx) error) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: d.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(neo4jTx{tx: tx, ctx: ctx})
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (d *neo4jDriver) Health(ctx context.Context) bool {
	return d.driver.VerifyConnectivity(ctx) == nil
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

type neo4jTx struct {
	tx  neo4j.ManagedTransaction
	ctx context.Context
}

func (t neo4jTx) Run(ctx context.Context, query string, params map[string]any) error {
	_, err := t.tx.Run(ctx, query, params)
	return err
}

// normalizeRecord converts a neo4j.Record into JSON-safe scalars,
// slices, and maps
func normalizeRecord(rec *neo4j.Record) map[string]any {
	out := make(map[string]any, len(rec.Keys))
	for i, key := range rec.Keys {
		out[key] = normalizeValue(rec.Values[i])
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return map[string]any{"labels": val.Labels, "properties": val.Props}
	case neo4j.Relationship:
		return map[string]any{"type": val.Type, "properties": val.Props}
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return val
	}
}

// classify maps a driver error to a retryable/non-retryable apierr
// kind. Validation, constraint, authentication, and syntax errors are
// never retried
func classify(err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsRetryable(err) {
		return apierr.Wrap(apierr.KindDependencyUnavailable, "transient graph error", err)
	}
	return apierr.Wrap(apierr.KindInternal, "graph query failed", err)
}
