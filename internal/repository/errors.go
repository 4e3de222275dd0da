package repository

import "errors"

// ErrNotFound is returned for rows that do not exist and, from
// user-scoped queries, for rows owned by someone else. Services treat
// both the same so lookups never reveal foreign resources.
var ErrNotFound = errors.New("repository: not found")
