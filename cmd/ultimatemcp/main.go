// Command ultimatemcp runs the platform's MCP coding tools over both
// stdio and a streaming-HTTP/JSON transport.
//
// Required environment variables (non-development Env):
//
//	AUTH_SIGNING_KEY  - HS256 signing key, at least 32 bytes
//
// See internal/config for the full environment-variable contract.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ultimatemcp/platform/internal/audit"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/breaker"
	"github.com/ultimatemcp/platform/internal/cache"
	"github.com/ultimatemcp/platform/internal/config"
	"github.com/ultimatemcp/platform/internal/content"
	"github.com/ultimatemcp/platform/internal/graph"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/observability"
	"github.com/ultimatemcp/platform/internal/pipeline"
	"github.com/ultimatemcp/platform/internal/ratelimit"
	"github.com/ultimatemcp/platform/internal/scheduler"
	"github.com/ultimatemcp/platform/internal/tooladapters"
	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/tools/graphtool"
	"github.com/ultimatemcp/platform/internal/tools/lint"
	"github.com/ultimatemcp/platform/internal/tools/test"
	"github.com/ultimatemcp/platform/internal/validation"

	httptransport "github.com/ultimatemcp/platform/internal/transport/http"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ultimatemcp: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ultimatemcp",
		Short: "MCP coding platform: lint, execute, test, generate, and graph tools",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply graph uniqueness constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

			driver, err := graph.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database, graphPoolConfig(cfg))
			if err != nil {
				return fmt.Errorf("connecting to graph: %w", err)
			}
			defer driver.Close(context.Background())

			client := graph.NewClient(driver, breaker.New(breaker.Settings{Name: "migrate"}), breaker.New(breaker.Settings{Name: "migrate"}), nil, 0, logger)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := client.Bootstrap(ctx); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
			logger.Info("graph schema migration complete")
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio and streaming-HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func graphPoolConfig(cfg *config.Config) graph.PoolConfig {
	return graph.PoolConfig{
		MaxConnections:    cfg.Pool.Max,
		AcquireTimeout:    time.Duration(cfg.Pool.AcqTimeoutS) * time.Second,
		MaxConnectionLife: time.Duration(cfg.Pool.ConnLifetimeS) * time.Second,
	}
}

// sweepJob adapts a plain func(time.Time) into scheduler.Job, the same
// shape every periodic job in this process takes: blacklist, rate
// limiter, and cache all expose a Sweep method (the cache's takes no
// time argument) with no shared interface worth naming beyond this.
type sweepJob struct {
	name string
	fn   func(now time.Time)
}

func (j sweepJob) Name() string { return j.name }
func (j sweepJob) Run(ctx context.Context) error {
	j.fn(time.Now())
	return nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	metrics := observability.NewMetrics()

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}
	logger.Info("starting ultimatemcp", "version", version, "env", cfg.Server.Env)

	driver, err := graph.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database, graphPoolConfig(cfg))
	if err != nil {
		return fmt.Errorf("connecting to graph: %w", err)
	}

	readBreaker := breaker.New(breaker.Settings{
		Name: "graph_read", FailureThreshold: uint32(cfg.Breaker.ReadF),
		SuccessThreshold: uint32(cfg.Breaker.ReadS), Timeout: time.Duration(cfg.Breaker.ReadT) * time.Second,
	})
	writeBreaker := breaker.New(breaker.Settings{
		Name: "graph_write", FailureThreshold: uint32(cfg.Breaker.WriteF),
		SuccessThreshold: uint32(cfg.Breaker.WriteS), Timeout: time.Duration(cfg.Breaker.WriteT) * time.Second,
	})

	resultCache, err := cache.New[string, []graph.Row](cfg.Cache.Capacity)
	if err != nil {
		return fmt.Errorf("building result cache: %w", err)
	}
	resultCache.OnEvict(metrics.CacheEvictions.Inc)

	graphClient := graph.NewClient(driver, readBreaker, writeBreaker, resultCache, time.Duration(cfg.Cache.TTLS)*time.Second, logger)
	defer graphClient.Close(context.Background())

	blacklist := auth.NewBlacklist()
	tokens := auth.NewTokenService(cfg.Auth.SigningKey, blacklist)
	auditLog := audit.NewLogger(graphClient, logger)

	limiter := ratelimit.New(ratelimit.Limits{
		PerMinute: cfg.RateLimit.PerMinute,
		PerHour:   cfg.RateLimit.PerHour,
		PerDay:    cfg.RateLimit.PerDay,
		Burst:     cfg.RateLimit.Burst,
	})

	validator := validation.NewCodeValidator()
	pool := execute.NewPool(cfg.Exec.Workers)

	execCache, err := cache.New[string, *execute.Result](cfg.Cache.Capacity)
	if err != nil {
		return fmt.Errorf("building execution result cache: %w", err)
	}
	execCache.OnEvict(metrics.CacheEvictions.Inc)

	svc := httptransport.Services{
		Lint:    lint.NewService(graphClient, "", cfg.Exec.OutputBytes),
		Execute: execute.NewService(validator, pool, graphClient, auditLog).WithCache(execCache),
		Test:    test.NewService(validator, pool, graphClient, auditLog),
		Graph:   graphtool.NewService(graphClient, 0),
	}

	registry := mcp.NewRegistry()
	registry.Register(tooladapters.NewLintTool(svc.Lint))
	registry.Register(tooladapters.NewExecuteTool(svc.Execute))
	registry.Register(tooladapters.NewTestTool(svc.Test))
	registry.Register(tooladapters.NewGenerateTool())
	registry.Register(tooladapters.NewGraphUpsertTool(svc.Graph))
	registry.Register(tooladapters.NewGraphQueryTool(svc.Graph))

	registry.RegisterPrompt(&content.LintBeforeExecutePrompt{})
	registry.RegisterPrompt(&content.GenerateThenLintPrompt{})
	registry.RegisterResource(&content.EntityModelResource{})
	registry.RegisterResource(&content.GuardrailsResource{})
	registry.RegisterResource(&content.ToolReferenceResource{})

	pl := pipeline.New(tokens, limiter, auditLog, metrics)

	mcpServer := mcp.NewServer(registry, mcp.ServerInfo{Name: cfg.Server.Name, Version: version}, logger).
		WithAuthorize(pl.AuthorizeMCP)
	mcpHTTP := mcp.NewHTTPHandler(mcpServer, cfg.Server.AllowedOrigins, logger)

	checkers := map[string]observability.HealthChecker{"graph": graphClient}

	router := httptransport.NewRouter(svc, pl, registry, tokens, blacklist, mcpHTTP, metrics, checkers, cfg.Server.AllowedOrigins, cfg.Transport.MCPPath)

	sched := scheduler.NewScheduler(logger)
	sched.AddJob(sweepJob{"blacklist_sweep", func(now time.Time) { blacklist.Sweep(now) }}, time.Minute)
	sched.AddJob(sweepJob{"ratelimit_sweep", func(now time.Time) { limiter.Sweep(now.Add(-24 * time.Hour)) }}, 5*time.Minute)
	sched.AddJob(sweepJob{"cache_sweep", func(time.Time) { resultCache.Sweep() }}, time.Duration(cfg.Cache.TTLS)*time.Second)
	sched.AddJob(sweepJob{"exec_cache_sweep", func(time.Time) { execCache.Sweep() }}, time.Duration(cfg.Cache.TTLS)*time.Second)

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched.Start(runCtx)
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:    cfg.Server.BindAddr + ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http transport listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := mcpServer.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("stdio transport: %w", err)
		}
	}()

	select {
	case <-runCtx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("transport failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
