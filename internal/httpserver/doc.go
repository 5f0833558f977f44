// Package httpserver runs the API listener with validated addresses,
// configurable timeouts and graceful shutdown.
package httpserver
