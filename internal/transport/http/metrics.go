package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ultimatemcp/platform/internal/observability"
)

// promHandlerFor exposes metrics.Registry on GET /metrics via the
// standard promhttp handler, the same collector-to-HTTP wiring every
// Prometheus-instrumented Go service in the ecosystem uses.
func promHandlerFor(m *observability.Metrics) http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
