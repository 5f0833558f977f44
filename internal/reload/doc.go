// Package reload watches files the running process depends on and reports
// the first settled change, so a development server can restart itself.
//
// Directories are watched rather than the files themselves, which keeps
// editors that replace files through rename from silently dropping the watch.
package reload
