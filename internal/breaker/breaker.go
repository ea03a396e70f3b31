// Package breaker wraps sony/gobreaker with the three-state semantics
// names (closed/open/half_open) and translates its sentinel
// errors into apierr.KindDependencyUnavailable. The wrap-and-translate
// pattern is grounded on other_examples'
// c04ch1337-pagi-digital-twin agent-planner.go newBreaker/Execute usage.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// Settings tunes one breaker instance: F/S/T
type Settings struct {
	Name             string
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
}

// Breaker wraps one gobreaker.CircuitBreaker for one named dependency.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Breaker. ReadyToTrip fires at FailureThreshold consecutive
// failures, matching "closed" transition condition.
// gobreaker closes the breaker once MaxRequests consecutive half-open
// probes all succeed and reopens on the first failure among them, so
// setting MaxRequests to SuccessThreshold is this library's expression
// of S_threshold (and, in the same stroke, its H_max:
// only MaxRequests probes are admitted while half-open).
func New(s Settings) *Breaker {
	maxRequests := s.SuccessThreshold
	if maxRequests == 0 {
		maxRequests = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: maxRequests,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
	})
	return &Breaker{cb: cb}
}

// Execute runs fn through the breaker. If the breaker is open or the
// half-open probe slot is full, it returns
// apierr.KindDependencyUnavailable without calling fn.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apierr.Wrap(apierr.KindDependencyUnavailable, b.cb.Name()+" circuit breaker is open", err)
		}
		return nil, err
	}
	return result, nil
}

// State reports the current state as a small integer for metrics:
// 0=closed, 1=half_open, 2=open, matching
// internal/observability.Metrics.BreakerState's documented scale.
func (b *Breaker) State() int {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string { return b.cb.Name() }
