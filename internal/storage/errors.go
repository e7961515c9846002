package storage

import "errors"

// ErrNotFound indicates the requested delivery log does not exist.
var ErrNotFound = errors.New("delivery log not found")
