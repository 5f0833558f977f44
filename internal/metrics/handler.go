package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/markdown-dms/backend/internal/circuitbreaker"
)

// Handler serves the current snapshot as JSON. Breaker states are included
// when breakers is not nil.
func (c *Collector) Handler(breakers *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.Snapshot()
		if breakers != nil {
			stats := breakers.Stats()
			snap.Breakers = make(map[string]string, len(stats))
			for name, state := range stats {
				snap.Breakers[name] = state.String()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
