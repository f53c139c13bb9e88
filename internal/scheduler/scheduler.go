// Package scheduler runs the background cron jobs that keep the
// narrative state engine's regeneration queue moving and that age out
// stale job records, on top of github.com/robfig/cron/v3.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/storyforge/orchestrator/internal/jobs"
	"github.com/storyforge/orchestrator/internal/repository"
)

// RegenerationProcessor turns a pending regeneration_queue row into
// actual generation work; it is supplied by the caller so this package
// stays decoupled from the job-submission pipeline.
type RegenerationProcessor func(ctx context.Context, entry *ProcessableRegeneration) error

// ProcessableRegeneration is the subset of core.RegenerationQueue the
// processor callback needs.
type ProcessableRegeneration struct {
	ID       string
	SceneID  string
	ShotID   string
	Reason   string
	Priority int
}

// Scheduler owns a cron.Cron instance and the periodic sweeps
// registered on it.
type Scheduler struct {
	cron    *cron.Cron
	catalog repository.CatalogRepository
	jobMgr  *jobs.Manager
	process RegenerationProcessor
	log     *slog.Logger

	jobCleanupHours    int
	projectIDsResolver func(ctx context.Context) []string
}

// Config controls sweep cadence and retention windows.
type Config struct {
	RegenerationSweepCron string // e.g. "*/30 * * * * *" (every 30s, 6-field)
	JobCleanupCron        string // e.g. "0 0 0 * * *" (daily, 6-field)
	JobCleanupHours       int    // jobs older than this, in a terminal state, are purged
}

func New(catalog repository.CatalogRepository, jobMgr *jobs.Manager, process RegenerationProcessor, projectIDsResolver func(ctx context.Context) []string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:               cron.New(cron.WithSeconds()),
		catalog:            catalog,
		jobMgr:             jobMgr,
		process:            process,
		projectIDsResolver: projectIDsResolver,
		log:                log,
	}
}

// Start registers both sweeps and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context, cfg Config) error {
	s.jobCleanupHours = cfg.JobCleanupHours

	if _, err := s.cron.AddFunc(cfg.RegenerationSweepCron, func() { s.sweepRegenerationQueue(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.JobCleanupCron, func() { s.sweepOldJobs(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started", "regen_cron", cfg.RegenerationSweepCron, "cleanup_cron", cfg.JobCleanupCron)
	return nil
}

// Stop drains in-flight cron jobs and stops the runner.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepRegenerationQueue(ctx context.Context) {
	for _, projectID := range s.projectIDsResolver(ctx) {
		pending, err := s.catalog.ListRegenerationPending(ctx, projectID)
		if err != nil {
			s.log.Warn("scheduler: list pending regeneration failed", "project_id", projectID, "err", err)
			continue
		}
		for _, entry := range pending {
			p := &ProcessableRegeneration{ID: entry.ID, SceneID: entry.SceneID, ShotID: entry.ShotID, Reason: entry.Reason, Priority: entry.Priority}
			if err := s.process(ctx, p); err != nil {
				s.log.Warn("scheduler: regeneration processing failed", "id", entry.ID, "err", err)
				continue
			}
			if err := s.catalog.MarkRegenerationProcessed(ctx, entry.ID); err != nil {
				s.log.Warn("scheduler: mark regeneration processed failed", "id", entry.ID, "err", err)
			}
		}
	}
}

func (s *Scheduler) sweepOldJobs(ctx context.Context) {
	removed, err := s.jobMgr.CleanupOldJobs(ctx, hoursToDuration(s.jobCleanupHours))
	if err != nil {
		s.log.Warn("scheduler: job cleanup sweep failed", "err", err)
		return
	}
	if removed > 0 {
		s.log.Info("scheduler: swept old jobs", "removed", removed)
	}
}
