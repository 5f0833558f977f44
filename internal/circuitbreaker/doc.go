// Package circuitbreaker keeps a failing dependency from being probed on every
// readiness request.
//
// A breaker has three states:
//
//   - CLOSED: probes run normally
//   - OPEN: the dependency failed repeatedly, probes are skipped
//   - HALF-OPEN: one trial probe decides whether to close or re-open
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 30*time.Second)
//	cb := registry.GetBreaker("database")
//	if cb.Allow() {
//	    if err := probe(ctx); err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
