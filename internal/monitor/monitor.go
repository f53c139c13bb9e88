// Package monitor is the Status Monitor (C9): it polls the backend
// connector for job progress, buffers per-job progress events, and
// fans updates out to WebSocket subscribers.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/storyforge/orchestrator/internal/backend"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/jobs"
)

// CompletionHandler is invoked once per job the instant its backend
// history shows a terminal status, before the job record itself is
// marked terminal. It organizes/quality-gates the produced artifacts
// and returns the job's final output path, or an error message when
// the artifacts fail validation.
type CompletionHandler func(ctx context.Context, job *core.Job, entry *backend.HistoryEntry) (outputPath string, errMsg string)

// pollInterval is how often the monitor checks the backend for
// in-flight job progress.
const pollInterval = 2 * time.Second

// ProgressEvent is one progress update delivered to subscribers.
type ProgressEvent struct {
	Seq       int       `json:"seq"`
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"` // 0..1, monotonically non-decreasing per job
	Timestamp time.Time `json:"timestamp"`
}

// jobEntry holds the in-memory progress buffer and subscriber
// notification channels for one in-flight job.
type jobEntry struct {
	mu       sync.RWMutex
	events   []ProgressEvent
	lastProg float64
	done     bool
	subs     []chan struct{}
}

func (e *jobEntry) snapshot(startSeq int) (events []ProgressEvent, notify <-chan struct{}, done bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if startSeq < len(e.events) {
		events = make([]ProgressEvent, len(e.events)-startSeq)
		copy(events, e.events[startSeq:])
	}
	ch := make(chan struct{})
	e.subs = append(e.subs, ch)
	return events, ch, e.done
}

// Monitor tracks in-progress jobs with a per-job event buffer and
// subscriber fan-out, and polls the backend connector to learn new
// progress.
type Monitor struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry

	backendConn *backend.Client
	jobManager  *jobs.Manager
	onComplete  CompletionHandler
	log         *slog.Logger

	sf   singleflight.Group
	stop chan struct{}
}

func New(backendConn *backend.Client, jobManager *jobs.Manager, onComplete CompletionHandler, log *slog.Logger) *Monitor {
	return &Monitor{
		entries:     make(map[string]*jobEntry),
		backendConn: backendConn,
		jobManager:  jobManager,
		onComplete:  onComplete,
		log:         log,
		stop:        make(chan struct{}),
	}
}

// Track starts monitoring a job that has just been submitted to the
// backend; the backend prompt ID is read from the job record.
func (m *Monitor) Track(jobID string) {
	m.mu.Lock()
	m.entries[jobID] = &jobEntry{}
	m.mu.Unlock()
}

// Append records a progress update and wakes subscribers; updates that
// would move progress backward are discarded to preserve monotonicity.
func (m *Monitor) Append(jobID string, status string, progress float64, now time.Time) {
	m.mu.RLock()
	entry, ok := m.entries[jobID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	if progress < entry.lastProg {
		entry.mu.Unlock()
		return
	}
	entry.lastProg = progress
	ev := ProgressEvent{Seq: len(entry.events), JobID: jobID, Status: status, Progress: progress, Timestamp: now}
	entry.events = append(entry.events, ev)
	subs := entry.subs
	entry.subs = nil
	entry.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// Complete marks a job's progress buffer as finished and notifies
// waiting subscribers one last time.
func (m *Monitor) Complete(jobID string) {
	m.mu.RLock()
	entry, ok := m.entries[jobID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.done = true
	subs := entry.subs
	entry.subs = nil
	entry.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// Subscribe returns buffered events from startSeq onward plus a
// notification channel closed when new events arrive.
func (m *Monitor) Subscribe(jobID string, startSeq int) (events []ProgressEvent, notify <-chan struct{}, done bool, found bool) {
	m.mu.RLock()
	entry, ok := m.entries[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, false, false
	}
	events, notify, done = entry.snapshot(startSeq)
	return events, notify, done, true
}

// Untrack discards a job's progress buffer; call once the job's
// terminal status has been durably recorded.
func (m *Monitor) Untrack(jobID string) {
	m.mu.Lock()
	delete(m.entries, jobID)
	m.mu.Unlock()
}

// Run polls the backend queue status for every tracked job until ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// Stop terminates the polling loop.
func (m *Monitor) Stop() {
	close(m.stop)
}

func (m *Monitor) pollOnce(ctx context.Context) {
	m.mu.RLock()
	jobIDs := make([]string, 0, len(m.entries))
	for id := range m.entries {
		jobIDs = append(jobIDs, id)
	}
	m.mu.RUnlock()

	if len(jobIDs) == 0 {
		return
	}

	queue, err := m.backendConn.GetQueueStatus(ctx)
	if err != nil {
		m.log.Warn("status monitor poll failed", "err", err)
		return
	}

	now := time.Now()
	for _, id := range jobIDs {
		job, err := m.jobManager.GetJob(ctx, id)
		if err != nil {
			continue
		}
		if job.Status.Terminal() {
			m.Complete(id)
			m.Untrack(id)
			continue
		}
		if job.BackendID == "" {
			continue
		}
		m.pollJob(ctx, job, queue, now)
	}
}

// pollJob fetches one job's backend history, deduping concurrent calls
// for the same backend prompt ID via singleflight, and finalizes the
// job the moment history reports a terminal status.
func (m *Monitor) pollJob(ctx context.Context, job *core.Job, queue backend.QueueStatus, now time.Time) {
	v, err, _ := m.sf.Do(job.BackendID, func() (any, error) {
		return m.backendConn.GetHistory(ctx, job.BackendID)
	})
	if err != nil {
		m.log.Warn("status monitor: history poll failed", "job_id", job.ID, "err", err)
		return
	}
	entry, _ := v.(*backend.HistoryEntry)
	if entry == nil {
		if queue.Running > 0 {
			m.Append(job.ID, string(core.JobProcessing), 0.5, now)
		}
		return
	}

	switch entry.Status {
	case "completed", "success":
		outputPath, errMsg := "", ""
		if m.onComplete != nil {
			outputPath, errMsg = m.onComplete(ctx, job, entry)
		}
		if errMsg != "" {
			m.finish(ctx, job.ID, core.JobFailed, "", errMsg, now)
			return
		}
		m.finish(ctx, job.ID, core.JobCompleted, outputPath, "", now)
	case "failed", "error":
		m.finish(ctx, job.ID, core.JobFailed, "", "backend reported generation failure", now)
	default:
		m.Append(job.ID, string(core.JobProcessing), 0.75, now)
	}
}

func (m *Monitor) finish(ctx context.Context, jobID string, status core.JobStatus, outputPath, errMsg string, now time.Time) {
	if _, err := m.jobManager.UpdateStatus(ctx, jobID, status, "", outputPath, errMsg); err != nil {
		m.log.Warn("status monitor: finalize job failed", "job_id", jobID, "err", err)
	}
	m.Append(jobID, string(status), 1.0, now)
	m.Complete(jobID)
}
