// Package repository mirrors the catalog store (internal/catalogdb)
// behind an in-memory cache: every repository writes through to both,
// single-record lookups read the cache first and fall back to the
// database on a miss, and list queries read the database first and fall
// back to the cache when the database errors. A database write failure
// is logged, not returned, and never rolls back the in-memory change —
// the cache is the fast path, the database is the recovery path.
package repository

import (
	"context"

	"github.com/storyforge/orchestrator/internal/core"
)

// JobRepository is the persistence contract for the Job Manager (C8).
// An empty status filter in List means "all statuses".
type JobRepository interface {
	Create(ctx context.Context, j *core.Job) error
	Get(ctx context.Context, id string) (*core.Job, error)
	Update(ctx context.Context, j *core.Job) error
	List(ctx context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error)
	DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error)
}
