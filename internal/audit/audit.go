// Package audit persists the append-only trail requires:
// every authentication decision, authorization decision, code execution,
// and graph mutation becomes one immutable AuditEvent node. Grounded on
// the teacher's own practice of recording workflow-lifecycle transitions
// as graph nodes rather than as a side-channel log file.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the audit event kinds names.
type Type string

const (
	TypeAuthSuccess       Type = "auth_success"
	TypeAuthFailure       Type = "auth_failure"
	TypeAuthzGranted      Type = "authz_granted"
	TypeAuthzDenied       Type = "authz_denied"
	TypeCodeExec          Type = "code_exec"
	TypeGraphWrite        Type = "graph_write"
	TypeGraphRead         Type = "graph_read"
	TypeSecurityViolation Type = "security_violation"
	TypeRateLimited       Type = "rate_limited"
)

// Severity classifies an event for downstream alerting/filtering.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one immutable entry in the audit trail.
type Event struct {
	ID            string
	Type          Type
	Timestamp     time.Time
	UserID        string
	CorrelationID string
	Severity      Severity
	Attributes    map[string]any
}

// graphClient is the narrow seam audit.Logger needs from the graph client,
// so this package can be unit-tested against a fake without pulling in
// the neo4j driver.
type graphClient interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error
}

// Logger records audit events through the graph client.
type Logger struct {
	client graphClient
	logger *slog.Logger
	now    func() time.Time
}

// NewLogger builds an audit Logger writing through client.
func NewLogger(client graphClient, logger *slog.Logger) *Logger {
	return &Logger{client: client, logger: logger, now: time.Now}
}

// Record persists one audit event. A persistence failure is logged and
// swallowed, never surfaced to the caller: an audit-write hiccup must
// never turn an otherwise-successful request into a 500, per this system
// §7's note that audit logging is best-effort relative to the primary
// operation it describes.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	params := map[string]any{
		"id":             event.ID,
		"type":           string(event.Type),
		"timestamp":      event.Timestamp.UTC().Format(time.RFC3339Nano),
		"user_id":        event.UserID,
		"correlation_id": event.CorrelationID,
		"severity":       string(event.Severity),
		"attributes":     flattenAttributes(event.Attributes),
	}

	const query = `
MERGE (e:AuditEvent {id: $id})
SET e.type = $type,
    e.timestamp = $timestamp,
    e.user_id = $user_id,
    e.correlation_id = $correlation_id,
    e.severity = $severity,
    e.attributes = $attributes`

	if err := l.client.ExecuteWrite(ctx, query, params, []string{"AuditEvent"}); err != nil {
		if l.logger != nil {
			l.logger.Error("audit record failed", "event_type", event.Type, "event_id", event.ID, "error", err)
		}
	}
}

// flattenAttributes renders the attributes map to a JSON-like string
// slice ("key=value" pairs) since neo4j properties cannot hold nested
// maps directly; callers that need structure should pre-serialize.
func flattenAttributes(attrs map[string]any) []string {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, fmt.Sprintf("%s=%v", k, v))
	}
	return out
}
