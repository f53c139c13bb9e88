package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

var errFakeJobDB = errors.New("fake db error")

// stubJobDB is a fake catalogdb.DB that records calls and returns
// canned data, letting the persistent repository's memory/database
// split be tested without a live Postgres connection.
type stubJobDB struct {
	jobs      []*core.Job
	createErr error
	getErr    error
	listErr   error
	deleteN   int
	deleteErr error
}

func (s *stubJobDB) CreateJob(_ context.Context, j *core.Job) error {
	s.jobs = append(s.jobs, j)
	return s.createErr
}

func (s *stubJobDB) GetJob(_ context.Context, id string) (*core.Job, error) {
	for _, j := range s.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, s.getErr
}

func (s *stubJobDB) UpdateJob(_ context.Context, j *core.Job) error { return nil }

func (s *stubJobDB) ListJobs(_ context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.jobs, nil
}

func (s *stubJobDB) DeleteOldJobs(_ context.Context, cutoffUnix int64) (int, error) {
	return s.deleteN, s.deleteErr
}

func newTestJob(id string) *core.Job {
	return &core.Job{ID: id, Type: core.JobTypeImage, Status: core.JobQueued}
}

func TestPersistentJobRepository_CreateWritesToMemoryAndDB(t *testing.T) {
	mem := NewMemoryJobRepository()
	stub := &stubJobDB{}
	repo := NewPersistentJobRepository(mem, stub)

	j := newTestJob("job-1")
	if err := repo.Create(context.Background(), j); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(stub.jobs) != 1 {
		t.Fatalf("expected the db stub to receive 1 job, got %d", len(stub.jobs))
	}
	if got, err := mem.Get(context.Background(), "job-1"); err != nil || got.ID != "job-1" {
		t.Fatalf("expected job-1 in memory, got %+v err=%v", got, err)
	}
}

func TestPersistentJobRepository_CreateSucceedsEvenWhenDBFails(t *testing.T) {
	mem := NewMemoryJobRepository()
	stub := &stubJobDB{createErr: errFakeJobDB}
	repo := NewPersistentJobRepository(mem, stub)

	if err := repo.Create(context.Background(), newTestJob("job-1")); err != nil {
		t.Fatalf("expected a db write failure to stay non-fatal, got %v", err)
	}
}

func TestPersistentJobRepository_GetFallsBackToDBOnMemoryMiss(t *testing.T) {
	mem := NewMemoryJobRepository()
	stub := &stubJobDB{jobs: []*core.Job{newTestJob("job-db")}}
	repo := NewPersistentJobRepository(mem, stub)

	got, err := repo.Get(context.Background(), "job-db")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "job-db" {
		t.Fatalf("expected job-db, got %+v", got)
	}
	// the miss should have backfilled memory
	if cached, err := mem.Get(context.Background(), "job-db"); err != nil || cached.ID != "job-db" {
		t.Fatalf("expected the db hit to backfill memory, got %+v err=%v", cached, err)
	}
}

func TestPersistentJobRepository_GetPreservesOriginalNotFoundWhenDBAlsoMisses(t *testing.T) {
	mem := NewMemoryJobRepository()
	stub := &stubJobDB{getErr: errFakeJobDB}
	repo := NewPersistentJobRepository(mem, stub)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPersistentJobRepository_ListPrefersDBThenFallsBackToMemory(t *testing.T) {
	mem := NewMemoryJobRepository()
	mem.Create(context.Background(), newTestJob("job-mem"))
	stub := &stubJobDB{listErr: errFakeJobDB}
	repo := NewPersistentJobRepository(mem, stub)

	list, err := repo.List(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "job-mem" {
		t.Fatalf("expected memory fallback with job-mem, got %+v", list)
	}
}

func TestPersistentJobRepository_DeleteOlderThanPrefersDBCount(t *testing.T) {
	mem := NewMemoryJobRepository()
	stub := &stubJobDB{deleteN: 3}
	repo := NewPersistentJobRepository(mem, stub)

	n, err := repo.DeleteOlderThan(context.Background(), 0)
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected the db's removal count to win, got %d", n)
	}
}

func TestPersistentJobRepository_StatisticsAndLenForwardToMemory(t *testing.T) {
	mem := NewMemoryJobRepository()
	mem.Create(context.Background(), newTestJob("job-1"))
	repo := NewPersistentJobRepository(mem, &stubJobDB{})

	if repo.Len() != 1 {
		t.Fatalf("expected Len to forward to memory, got %d", repo.Len())
	}
	if repo.Statistics().Total != 1 {
		t.Fatalf("expected Statistics to forward to memory, got %+v", repo.Statistics())
	}
}
