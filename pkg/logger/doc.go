// Package logger provides structured logging built on log/slog with the level
// names DEBUG, INFO, WARNING, ERROR and CRITICAL. Development output is
// rendered through a configurable line template; production output is JSON,
// optionally mirrored into a size-rotated file.
package logger
