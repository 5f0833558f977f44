// Package config builds the process configuration from compiled defaults, an
// optional KEY=VALUE override file and the process environment, in that order
// of increasing precedence. Every key is coerced and validated against an
// explicit schema; all failures are reported together in a single *Error.
//
// The resulting *Config is constructed once at process start and passed to the
// components that need it. It must not be modified after Load returns.
package config
