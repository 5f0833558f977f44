package middleware

import (
	"net/http"
	"time"

	"github.com/markdown-dms/backend/internal/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics reports each request under the mux pattern that served it. It must
// wrap the mux directly, since the pattern is only set once the mux routed
// the request.
func Metrics(collector *metrics.Collector, next http.Handler) http.Handler {
	if collector == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}

		collector.Emit(metrics.MetricEvent{
			Type:       metrics.EventRequestCompleted,
			Route:      route,
			Duration:   time.Since(start),
			StatusCode: rec.statusCode,
		})
	})
}
