// Package metrics collects request and dependency-probe metrics for the API.
//
// Events are queued on a buffered channel and folded into the store by a
// single goroutine, so the request path never waits on the store lock:
//   - requests, latency percentiles and status codes per route pattern
//   - run counts and last outcome per dependency check
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventRequestCompleted,
//		Route:      "GET /health",
//		Duration:   3 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// Pending events are drained when the context passed to Start is cancelled.
package metrics
