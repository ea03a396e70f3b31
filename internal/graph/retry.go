package graph

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// retryConfig describes an exponential backoff: the delay doubles from
// an initial value, capped, over a bounded number of attempts. Default
// is base 2s, cap 10s, 3 attempts — deliberately tight because a graph
// query sits in the request's hot path and must fail fast.
type retryConfig struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxAttempts: 3, initialBackoff: 2 * time.Second, maxBackoff: 10 * time.Second}
}

// shouldRetry mirrors emergent.Client.shouldRetry: network errors,
// deadline exceeded, and connection-level errors are retryable; a
// classify()-wrapped apierr is retryable only when it's
// KindDependencyUnavailable (the neo4j driver already told us the
// underlying cause was transient).
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if apiErr, ok := apierr.As(err); ok {
		return apiErr.Kind == apierr.KindDependencyUnavailable
	}
	return false
}

// withRetry retries fn up to cfg.maxAttempts-1 additional times,
// doubling the backoff each time and capping at maxBackoff.
func withRetry(ctx context.Context, logger *slog.Logger, operation string, fn func() error) error {
	cfg := defaultRetryConfig()
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := cfg.initialBackoff * time.Duration(1<<uint(attempt-1))
			if backoff > cfg.maxBackoff {
				backoff = cfg.maxBackoff
			}
			if logger != nil {
				logger.Warn("retrying graph operation", "operation", operation, "attempt", attempt, "backoff", backoff, "error", lastErr)
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
