// Package http implements the JSON/HTTP transport surface
// §6 tables, built on chi the way the teacher's own cmd/specmcp wired
// its routes, with every tool and admin route passing through the
// pipeline's correlation-id/body-limit/CORS/auth/RBAC/rate-limit chain
// before it reaches a handler; /health, /metrics, and /prompts pass only
// the correlation-id/body-limit/CORS links.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/observability"
	"github.com/ultimatemcp/platform/internal/pipeline"
	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/tools/graphtool"
	"github.com/ultimatemcp/platform/internal/tools/lint"
	"github.com/ultimatemcp/platform/internal/tools/test"
)

// Services bundles the four tool services the router dispatches to.
// Kept as a plain struct, the same shape the teacher's cmd/specmcp used
// to hand its domain clients to route handlers.
type Services struct {
	Lint    *lint.Service
	Execute *execute.Service
	Test    *test.Service
	Graph   *graphtool.Service
}

// NewRouter builds the chi router mounting every route in this system's
// HTTP surface table, the MCP streaming-HTTP transport at mcpPath, and
// the health/metrics endpoints. allowedOrigins is a comma-separated
// CORS allow-list ("*" permits any origin).
func NewRouter(svc Services, pl *pipeline.Pipeline, registry *mcp.Registry, tokens *auth.TokenService, blacklist *auth.Blacklist, mcpServer *mcp.HTTPHandler, metrics *observability.Metrics, checkers map[string]observability.HealthChecker, allowedOrigins string, mcpPath string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(pipeline.CorrelationID)
	r.Use(pipeline.BodyLimit)
	r.Use(corsMiddleware(allowedOrigins))

	r.Get("/health", observability.HealthHandler(checkers))
	if metrics != nil {
		r.Handle("/metrics", metricsHandler(metrics))
	}

	h := &handlers{svc: svc, registry: registry, tokens: tokens, blacklist: blacklist}

	r.Get("/prompts", h.listPrompts)
	r.Get("/prompts/{id}", h.getPrompt)

	r.With(pl.Authenticate, pl.RequirePermission(auth.PermToolsLint, false)).Post("/lint_code", h.lintCode)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermToolsExecute, true)).Post("/execute_code", h.executeCode)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermToolsTest, true)).Post("/run_tests", h.runTests)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermToolsGenerate, true)).Post("/generate_code", h.generateCode)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermGraphUpsert, true)).Post("/graph_upsert", h.graphUpsert)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermGraphQuery, false)).Post("/graph_query", h.graphQuery)

	r.With(pl.Authenticate, pl.RequirePermission(auth.PermSystemAdmin, true)).Post("/auth/revoke", h.revokeToken)
	r.With(pl.Authenticate, pl.RequirePermission(auth.PermSystemAdmin, true)).Post("/auth/revoke_all", h.revokeAllTokens)

	if mcpServer != nil {
		r.Handle(mcpPath, mcpServer)
		r.Handle(mcpPath+"/*", mcpServer)
	}

	return r
}

// corsMiddleware builds an rs/cors handler from a comma-separated
// allow-list, grounded on the teacher pack's own chi+cors usage (e.g.
// jordigilh-kubernaut's server.go) rather than a hand-rolled header
// writer.
func corsMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	origins := splitCSV(allowedOrigins)
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	return c.Handler
}

func splitCSV(s string) []string {
	if s == "" {
		return []string{"*"}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func metricsHandler(m *observability.Metrics) http.Handler {
	return promHandlerFor(m)
}

// writeJSON marshals v with a 200 status, the uniform success shape
// every handler in this package returns.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses r's body into v, returning an apierr-shaped error on
// failure so handlers can funnel it through pipeline.WriteError directly
// (no further wrapping needed). A body that overran pipeline.BodyLimit's
// http.MaxBytesReader surfaces here, not in the middleware, since
// MaxBytesReader only errors on Read; everything else decodes to
// KindInvalidInput.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.Wrap(apierr.KindTooLarge, "request body too large", err)
		}
		return apierr.Wrap(apierr.KindInvalidInput, "invalid request body", err)
	}
	return nil
}
