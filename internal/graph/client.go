package graph

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ultimatemcp/platform/internal/breaker"
	"github.com/ultimatemcp/platform/internal/cache"
)

// Client layers caching, the circuit breakers, and retry-with-backoff
// on top of a bare Driver. It is the thing every tool in internal/tools
// actually depends on; Driver stays the narrow external-collaborator
// seam underneath it.
type Client struct {
	driver       Driver
	readBreaker  *breaker.Breaker
	writeBreaker *breaker.Breaker
	cache        *cache.Cache[string, []Row]
	cacheTTL     time.Duration
	logger       *slog.Logger

	labelVersionsMu sync.Mutex
	labelVersions   map[string]*atomic.Uint64
}

// NewClient wires a Driver with its read/write breakers and an optional
// result cache (nil disables caching entirely).
func NewClient(driver Driver, readBreaker, writeBreaker *breaker.Breaker, resultCache *cache.Cache[string, []Row], cacheTTL time.Duration, logger *slog.Logger) *Client {
	return &Client{
		driver:        driver,
		readBreaker:   readBreaker,
		writeBreaker:  writeBreaker,
		cache:         resultCache,
		cacheTTL:      cacheTTL,
		logger:        logger,
		labelVersions: make(map[string]*atomic.Uint64),
	}
}

// ExecuteRead runs a read query through the breaker and retry wrapper.
// When pure is true and touchedLabels names the labels the query reads,
// the result is served from and stored into the per-label-versioned
// cache. Non-deterministic queries (time/random functions, CALL) must
// pass pure=false.
func (c *Client) ExecuteRead(ctx context.Context, query string, params map[string]any, pure bool, touchedLabels []string) ([]Row, error) {
	var cacheKey string
	if pure && c.cache != nil {
		cacheKey = c.cacheKeyFor(query, params, touchedLabels)
		if rows, ok := c.cache.Get(cacheKey); ok {
			return rows, nil
		}
	}

	result, err := c.readBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		var rows []Row
		err := withRetry(ctx, c.logger, "execute_read", func() error {
			var innerErr error
			rows, innerErr = c.driver.ExecuteRead(ctx, query, params)
			return innerErr
		})
		return rows, err
	})
	if err != nil {
		return nil, err
	}
	rows, _ := result.([]Row)

	if pure && c.cache != nil {
		c.cache.Set(cacheKey, rows, c.cacheTTL)
	}
	return rows, nil
}

// ExecuteWrite runs a write statement through the write breaker and
// retry wrapper, then invalidates every label the caller names as
// touched, using the per-label cache versioning scheme.
func (c *Client) ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error {
	_, err := c.writeBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, withRetry(ctx, c.logger, "execute_write", func() error {
			return c.driver.ExecuteWrite(ctx, query, params)
		})
	})
	if err != nil {
		return err
	}
	c.bumpLabels(touchedLabels)
	return nil
}

// ExecuteWriteTx runs fn inside one write transaction through the write
// breaker and retry wrapper. Retrying re-executes fn from the start, so
// callers must rely on idempotent (MERGE) semantics.
func (c *Client) ExecuteWriteTx(ctx context.Context, touchedLabels []string, fn func(tx Tx) error) error {
	_, err := c.writeBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, withRetry(ctx, c.logger, "execute_write_tx", func() error {
			return c.driver.ExecuteWriteTx(ctx, fn)
		})
	})
	if err != nil {
		return err
	}
	c.bumpLabels(touchedLabels)
	return nil
}

// Health reports the underlying driver's liveness, satisfying
// internal/observability.HealthChecker.
func (c *Client) Health(ctx context.Context) bool {
	return c.driver.Health(ctx)
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) bumpLabels(labels []string) {
	for _, label := range labels {
		c.versionCounter(label).Add(1)
	}
}

// versionCounter returns label's version counter, creating it under a
// lock on first use; the plain map needs that lock since ExecuteRead
// and ExecuteWrite/ExecuteWriteTx race on it from concurrent requests,
// but every subsequent bump/load goes through the already-fetched
// *atomic.Uint64 lock-free, per the atomics-over-mutex guidance.
func (c *Client) versionCounter(label string) *atomic.Uint64 {
	c.labelVersionsMu.Lock()
	defer c.labelVersionsMu.Unlock()
	if v, ok := c.labelVersions[label]; ok {
		return v
	}
	v := &atomic.Uint64{}
	c.labelVersions[label] = v
	return v
}

// cacheKeyFor derives a cache key from the normalized query text, its
// parameters, and the current version of every label the query reads,
// so a write to any touched label invalidates the entry without a full
// cache flush.
func (c *Client) cacheKeyFor(query string, params map[string]any, touchedLabels []string) string {
	sorted := append([]string(nil), touchedLabels...)
	sort.Strings(sorted)
	versions := make([]string, 0, len(sorted))
	for _, label := range sorted {
		versions = append(versions, label, strconv.FormatUint(c.versionCounter(label).Load(), 10))
	}
	return cache.FunctionKey("graph_read:"+strings.TrimSpace(query), params, versions)
}
