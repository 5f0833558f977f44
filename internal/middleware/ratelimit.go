package middleware

import (
	"net/http"
	"slices"

	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow() bool
}

// NewTokenBucket returns a shared token bucket, or nil when rps is not
// positive, which disables limiting.
func NewTokenBucket(rps float64, burst int) Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimit answers 429 once the limiter runs dry. Requests for exempt paths
// always pass.
func RateLimit(limiter Limiter, exempt []string, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(exempt, r.URL.Path) || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "1")
		writeDetail(w, http.StatusTooManyRequests, "Too Many Requests")
	})
}
