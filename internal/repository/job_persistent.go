package repository

import (
	"context"
	"log/slog"

	"github.com/storyforge/orchestrator/internal/core"
)

// jobDB is the slice of catalogdb.DB that the job repository needs.
// Declaring it here, rather than depending on *catalogdb.DB directly,
// lets tests substitute a stub without touching a real Postgres
// connection.
type jobDB interface {
	CreateJob(ctx context.Context, j *core.Job) error
	GetJob(ctx context.Context, id string) (*core.Job, error)
	UpdateJob(ctx context.Context, j *core.Job) error
	ListJobs(ctx context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error)
	DeleteOldJobs(ctx context.Context, cutoffUnix int64) (int, error)
}

// PersistentJobRepository wraps a MemoryJobRepository with a Postgres
// backend. Writes go to both stores; a database failure is logged but
// never rolls back the in-memory write, per the job manager's
// fast-path/recovery-path contract. Get tries memory first, falling
// back to the database only on a cache miss; List queries the database
// first and falls back to memory when the database errors.
type PersistentJobRepository struct {
	mem *MemoryJobRepository
	db  jobDB
}

func NewPersistentJobRepository(mem *MemoryJobRepository, database jobDB) *PersistentJobRepository {
	return &PersistentJobRepository{mem: mem, db: database}
}

func (r *PersistentJobRepository) Create(ctx context.Context, j *core.Job) error {
	_ = r.mem.Create(ctx, j)
	if err := r.db.CreateJob(ctx, j); err != nil {
		slog.Warn("db create job failed, in-memory only", "job_id", j.ID, "err", err)
	}
	return nil
}

func (r *PersistentJobRepository) Get(ctx context.Context, id string) (*core.Job, error) {
	j, err := r.mem.Get(ctx, id)
	if err == nil {
		return j, nil
	}

	dbJob, dbErr := r.db.GetJob(ctx, id)
	if dbErr != nil {
		return nil, err // preserve the original ErrNotFound
	}

	_ = r.mem.Create(ctx, dbJob)
	return dbJob, nil
}

func (r *PersistentJobRepository) Update(ctx context.Context, j *core.Job) error {
	_ = r.mem.Update(ctx, j)
	if err := r.db.UpdateJob(ctx, j); err != nil {
		slog.Warn("db update job failed, in-memory only", "job_id", j.ID, "err", err)
	}
	return nil
}

func (r *PersistentJobRepository) List(ctx context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error) {
	jobs, err := r.db.ListJobs(ctx, status, limit, offset)
	if err == nil {
		return jobs, nil
	}
	slog.Warn("db list jobs failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, status, limit, offset)
}

func (r *PersistentJobRepository) DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error) {
	memRemoved, _ := r.mem.DeleteOlderThan(ctx, cutoffUnix)
	dbRemoved, err := r.db.DeleteOldJobs(ctx, cutoffUnix)
	if err != nil {
		slog.Warn("db delete old jobs failed", "err", err)
		return memRemoved, nil
	}
	return dbRemoved, nil
}

// Statistics and Len forward to the in-memory cache, which is always
// the complete hot-path population regardless of database health.
func (r *PersistentJobRepository) Statistics() core.JobStats { return r.mem.Statistics() }
func (r *PersistentJobRepository) Len() int                 { return r.mem.Len() }
