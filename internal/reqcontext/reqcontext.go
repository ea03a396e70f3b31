// Package reqcontext defines the context keys the pipeline attaches to
// every request before a handler or tool ever runs: correlation id,
// authenticated claims, and the user id handlers use for persistence and
// audit. Kept separate from internal/auth and internal/mcp so neither
// transport package needs to import the other to agree on these keys.
package reqcontext

import (
	"context"

	"github.com/ultimatemcp/platform/internal/auth"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	claimsKey
	rawTokenKey
)

// WithCorrelationID attaches a correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id attached to ctx, or "" if none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithClaims attaches the verified token claims to ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Claims returns the claims attached to ctx, or nil if the caller wasn't
// authenticated (the two public, no-auth endpoints names).
func Claims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithRawToken attaches the raw bearer token string to ctx, so a
// transport can hand it to the pipeline's Authorize step without
// re-parsing the request.
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}

// RawToken returns the raw bearer token attached to ctx, or "" if none.
func RawToken(ctx context.Context) string {
	tok, _ := ctx.Value(rawTokenKey).(string)
	return tok
}

// UserID returns the subject of the attached claims, or "" if none.
func UserID(ctx context.Context) string {
	if c := Claims(ctx); c != nil {
		return c.Subject
	}
	return ""
}
