// Package observability wires structured logging, a Prometheus metrics
// registry, and health probes behind a small interface the rest of the
// core depends on ("the core emits metrics and spans
// through a small observability interface").
package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Output always goes to stderr so
// stdout stays free for any stdio-framed transport, exactly as the
// teacher's main.go reserved stdout for the MCP protocol.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCorrelation returns a logger with the correlation id attached to
// every subsequent line, the same "id" field the teacher's MCP server
// logs alongside every request.
func WithCorrelation(logger *slog.Logger, correlationID string) *slog.Logger {
	return logger.With("correlation_id", correlationID)
}
