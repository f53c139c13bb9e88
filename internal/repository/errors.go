package repository

import "errors"

// ErrNotFound is returned by in-memory repositories when a lookup
// misses; callers translate it into apperr.NotFound at the boundary.
var ErrNotFound = errors.New("not found")
