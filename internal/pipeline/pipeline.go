// Package pipeline implements the single ordered request chain
// (correlation id -> body limit -> CORS -> authenticate -> authorize ->
// rate limit -> handler -> audit) both transports route every request
// through: plain func(http.Handler) http.Handler wrappers chained around
// chi's router, with the auth, RBAC, and rate-limit links added on top
// of the usual logging/recovery/CORS stack.
package pipeline

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/audit"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/observability"
	"github.com/ultimatemcp/platform/internal/ratelimit"
	"github.com/ultimatemcp/platform/internal/reqcontext"
)

// BodyMaxBytes is the default cap on a request body before any handler
// sees it.
const BodyMaxBytes = 1 << 20

// Pipeline holds the shared collaborators every authorize/RBAC/rate-limit
// decision needs. One Pipeline is built once at startup and reused by
// both the HTTP router and the MCP transport's AuthorizeFunc.
type Pipeline struct {
	tokens   *auth.TokenService
	limiter  *ratelimit.Limiter
	auditLog *audit.Logger
	metrics  *observability.Metrics
}

// New builds a Pipeline. auditLog and metrics may be nil in tests.
func New(tokens *auth.TokenService, limiter *ratelimit.Limiter, auditLog *audit.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{tokens: tokens, limiter: limiter, auditLog: auditLog, metrics: metrics}
}

// CorrelationID stamps every request with an id (from X-Request-Id
// if the caller supplied one, else a fresh uuid) before any other
// middleware runs, so every downstream log line and audit event can be
// joined on it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := reqcontext.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BodyLimit caps the request body at BodyMaxBytes
// A body over the limit surfaces as KindTooLarge from the handler's own
// read, not here: http.MaxBytesReader defers the error until Read.
func BodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, BodyMaxBytes)
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the raw token from an "Authorization: Bearer
// <token>" header, or "" if absent/malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// Authenticate extracts a bearer token, if present, verifies it, and
// attaches claims plus the raw token to the request context. A missing
// token is not itself an error here: some routes (lint_code, graph_query
//) are reachable without authentication but still carry
// a permission check against the viewer role. An invalid/expired/
// revoked token IS an error even on those routes, since a caller that
// presented a bad credential should never be quietly treated as
// anonymous no-silent-fallback rule.
func (p *Pipeline) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := p.tokens.Verify(token)
		if err != nil {
			p.writeErr(w, r, err)
			return
		}
		ctx := reqcontext.WithClaims(r.Context(), claims)
		ctx = reqcontext.WithRawToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission builds the RBAC + rate-limit link of the chain for
// one route. requireAuth=false marks the two public routes (lint_code,
// graph_query) that still enforce permission against an implicit
// viewer role when no caller identity is present.
func (p *Pipeline) RequirePermission(permission auth.Permission, requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := p.authorize(r.Context(), permission, requireAuth, clientKey(r))
			if err != nil {
				p.writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authorize is the shared RBAC + rate-limit decision both the HTTP
// middleware and the MCP AuthorizeFunc funnel through: exactly one
// chokepoint
func (p *Pipeline) authorize(ctx context.Context, permission auth.Permission, requireAuth bool, key string) (context.Context, error) {
	claims := reqcontext.Claims(ctx)
	var roles []auth.Role
	if claims != nil {
		roles = claims.TypedRoles()
		key = claims.Subject
	} else if requireAuth {
		p.audit(ctx, audit.TypeAuthFailure, "", permission, false)
		return ctx, apierr.New(apierr.KindUnauthenticated, "authentication required")
	} else {
		roles = []auth.Role{auth.RoleViewer}
	}

	if !auth.Allow(roles, permission) {
		p.audit(ctx, audit.TypeAuthzDenied, reqcontext.UserID(ctx), permission, false)
		return ctx, apierr.New(apierr.KindPermissionDenied, "permission denied: "+string(permission))
	}

	if p.limiter != nil {
		if err := p.limiter.CheckErr(key, roles); err != nil {
			if p.auditLog != nil {
				p.auditLog.Record(ctx, audit.Event{
					Type:          audit.TypeRateLimited,
					UserID:        reqcontext.UserID(ctx),
					CorrelationID: reqcontext.CorrelationID(ctx),
					Severity:      audit.SeverityWarning,
					Attributes:    map[string]any{"permission": string(permission)},
				})
			}
			return ctx, err
		}
	}

	p.audit(ctx, audit.TypeAuthzGranted, reqcontext.UserID(ctx), permission, true)
	return ctx, nil
}

func (p *Pipeline) audit(ctx context.Context, typ audit.Type, userID string, permission auth.Permission, granted bool) {
	if p.auditLog == nil {
		return
	}
	severity := audit.SeverityInfo
	if !granted {
		severity = audit.SeverityWarning
	}
	p.auditLog.Record(ctx, audit.Event{
		Type:          typ,
		UserID:        userID,
		CorrelationID: reqcontext.CorrelationID(ctx),
		Severity:      severity,
		Attributes:    map[string]any{"permission": string(permission)},
	})
}

// clientKey derives the rate-limit key for an unauthenticated caller:
// its remote address.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// AuthorizeMCP adapts Pipeline into the mcp.AuthorizeFunc signature, so
// the streaming-HTTP MCP transport enforces the same chokepoint as the
// plain HTTP surface. internal/mcp/http.go only attaches a raw bearer
// token to ctx (it makes no authorization decision itself), so this is
// also where that token gets verified, exactly once, before tools/call
// ever reaches a tool's Execute.
func (p *Pipeline) AuthorizeMCP(ctx context.Context, toolName string, permission auth.Permission) (context.Context, error) {
	key := ""
	if token := reqcontext.RawToken(ctx); token != "" {
		claims, err := p.tokens.Verify(token)
		if err != nil {
			return ctx, err
		}
		ctx = reqcontext.WithClaims(ctx, claims)
		key = claims.Subject
	}

	requireAuth := permission != auth.PermToolsLint && permission != auth.PermGraphQuery
	return p.authorize(ctx, permission, requireAuth, key)
}

// writeErr renders an apierr as the JSON envelope defines.
func (p *Pipeline) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, err)
}

// retryAfterHeader sets Retry-After from a KindRateLimited error's
// details, if present, as RFC 7231 delta-seconds, rounding up to the
// nearest whole second.
func retryAfterHeader(w http.ResponseWriter, err *apierr.Error) {
	details, ok := err.Details.(map[string]any)
	if !ok {
		return
	}
	secs, ok := details["retry_after_seconds"].(float64)
	if !ok {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(secs))))
}
