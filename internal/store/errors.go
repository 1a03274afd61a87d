package store

import "errors"

// ErrNotFound is the sentinel for a missing row, matching §7's "NotFound"
// error kind — checked with errors.Is, not a typed hierarchy.
var ErrNotFound = errors.New("not found")
