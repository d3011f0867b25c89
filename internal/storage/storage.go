// Package storage holds what the invocation store implementations share.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultLimit applies when a list request does not set one.
const DefaultLimit = 100

// Limit normalizes a requested page size.
func Limit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
