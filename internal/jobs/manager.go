// Package jobs is the Job Manager (C8): it owns the Job lifecycle state
// machine on top of the repository's cache-first JobRepository, and is
// the only place that is allowed to advance a job's status.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/repository"
)

const defaultListLimit = 50

// Manager enforces job state transitions and is the single write path
// to the job repository.
type Manager struct {
	repo repository.JobRepository
	log  *slog.Logger
}

func New(repo repository.JobRepository, log *slog.Logger) *Manager {
	return &Manager{repo: repo, log: log}
}

// CreateJob queues a new job in core.JobQueued.
func (m *Manager) CreateJob(ctx context.Context, jobType core.JobType, prompt string, params map[string]any, projectID, characterID string) (*core.Job, error) {
	job := &core.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Prompt:      prompt,
		Parameters:  params,
		Status:      core.JobQueued,
		ProjectID:   projectID,
		CharacterID: characterID,
		CreatedAt:   time.Now(),
	}
	if err := m.repo.Create(ctx, job); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create job", err)
	}
	return job, nil
}

// GetJob fetches a job by ID.
func (m *Manager) GetJob(ctx context.Context, id string) (*core.Job, error) {
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "job "+id, err)
	}
	return job, nil
}

// UpdateStatus enforces the core.CanTransition state machine before
// writing a job's new status and recording lifecycle timestamps.
func (m *Manager) UpdateStatus(ctx context.Context, id string, to core.JobStatus, backendID, outputPath, errMsg string) (*core.Job, error) {
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "job "+id, err)
	}

	if !core.CanTransition(job.Status, to) {
		return nil, apperr.New(apperr.Conflict, "illegal transition from "+string(job.Status)+" to "+string(to))
	}

	now := time.Now()
	job.Status = to
	if backendID != "" {
		job.BackendID = backendID
	}
	if outputPath != "" {
		job.OutputPath = outputPath
	}
	if errMsg != "" {
		job.ErrorMessage = errMsg
	}

	switch to {
	case core.JobProcessing:
		job.StartedAt = &now
	case core.JobCompleted, core.JobFailed, core.JobTimeout, core.JobCancelled:
		job.CompletedAt = &now
		if job.StartedAt != nil {
			job.TotalTimeSecs = now.Sub(*job.StartedAt).Seconds()
		}
	}

	if err := m.repo.Update(ctx, job); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "update job "+id, err)
	}
	return job, nil
}

// ListJobs returns jobs in a given status (or every status, if empty),
// newest first, paginated.
func (m *Manager) ListJobs(ctx context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	jobs, err := m.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list jobs", err)
	}
	return jobs, nil
}

// CleanupOldJobs removes terminal-state jobs created before the given
// age, returning the count removed.
func (m *Manager) CleanupOldJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	removed, err := m.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "cleanup jobs", err)
	}
	if removed > 0 {
		m.log.Info("cleaned up old jobs", "removed", removed)
	}
	return removed, nil
}

// statisticsSource is implemented by MemoryJobRepository; the
// persistent repository holds one and forwards to it.
type statisticsSource interface {
	Statistics() core.JobStats
	Len() int
}

// Statistics reports job population counts for /health, when the
// underlying repository supports it.
func (m *Manager) Statistics() (core.JobStats, bool) {
	src, ok := m.repo.(statisticsSource)
	if !ok {
		return core.JobStats{}, false
	}
	return src.Statistics(), true
}
