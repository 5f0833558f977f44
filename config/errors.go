package config

import (
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error reports every configuration key that failed coercion or validation.
// Fields is keyed by environment variable name.
type Error struct {
	Fields validation.Errors
}

func (e *Error) Error() string {
	return "invalid configuration: " + e.Fields.Error()
}

func (e *Error) Unwrap() error {
	return e.Fields
}

// Keys returns the offending environment variable names in sorted order.
func (e *Error) Keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
