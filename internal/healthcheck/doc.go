// Package healthcheck probes the external dependencies reported by the
// readiness endpoint and folds their outcomes into one overall status.
//
// Checks are reported in a fixed order (database, redis, git_service). A
// check without a probe reports not_implemented. Probes run concurrently,
// each bounded by its own timeout and guarded by a circuit breaker, so a
// slow or failing dependency only degrades its own entry.
package healthcheck
