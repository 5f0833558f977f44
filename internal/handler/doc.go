// Package handler implements the service information and health endpoints of
// the Markdown Document Management System API.
//
// The liveness endpoint (/health) never touches dependencies; the readiness
// endpoint (/api/health) reports every dependency check and always answers
// 200 so callers read the status from the body.
package handler
