// Package middleware holds the HTTP middleware wrapped around the API mux.
//
// The router applies them outermost first: RequestID, Recovery, Logging,
// CORS, RateLimit and Metrics.
package middleware
