package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/storyforge/orchestrator/internal/core"
)

const maxJobRecords = 5000

// MemoryJobRepository holds the job cache the worker pool and status
// monitor read and write directly, with FIFO eviction once the cache
// is at capacity.
type MemoryJobRepository struct {
	mu      sync.RWMutex
	records map[string]*core.Job
	order   []string
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{records: make(map[string]*core.Job)}
}

func (r *MemoryJobRepository) Create(_ context.Context, j *core.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) >= maxJobRecords {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.records, oldest)
	}

	r.records[j.ID] = j
	r.order = append(r.order, j.ID)
	return nil
}

func (r *MemoryJobRepository) Get(_ context.Context, id string) (*core.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (r *MemoryJobRepository) Update(_ context.Context, j *core.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[j.ID]; !ok {
		return ErrNotFound
	}
	r.records[j.ID] = j
	return nil
}

func (r *MemoryJobRepository) List(_ context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*core.Job
	for _, j := range r.records {
		if status == "" || j.Status == status {
			filtered = append(filtered, j)
		}
	}

	sort.Slice(filtered, func(i, k int) bool {
		return filtered[i].CreatedAt.After(filtered[k].CreatedAt)
	})

	total := len(filtered)
	if offset >= total {
		return nil, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return filtered[offset:end], nil
}

func (r *MemoryJobRepository) DeleteOlderThan(_ context.Context, cutoffUnix int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []string
	removed := 0
	for _, id := range r.order {
		j := r.records[id]
		if j.Status.Terminal() && j.CreatedAt.Unix() < cutoffUnix {
			delete(r.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed, nil
}

// Statistics summarizes the in-memory job population for C8's
// statistics() contract and the /health endpoint.
func (r *MemoryJobRepository) Statistics() core.JobStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := core.JobStats{
		ByStatus: map[core.JobStatus]int{},
		ByType:   map[core.JobType]int{},
	}
	for _, j := range r.records {
		stats.Total++
		stats.ByStatus[j.Status]++
		stats.ByType[j.Type]++
	}
	return stats
}

// Len reports the number of jobs currently cached, used by /health's
// jobs_in_memory field.
func (r *MemoryJobRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
