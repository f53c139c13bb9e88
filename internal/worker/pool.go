// Package worker is the job pipeline's fixed-capacity worker pool: it
// drains queued jobs, builds the node graph for each, submits it to the
// backend connector, and hands tracking off to the status monitor.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/backend"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/jobs"
	"github.com/storyforge/orchestrator/internal/monitor"
	"github.com/storyforge/orchestrator/internal/workflow"
)

// clientID is the identifier the pool presents to the backend for every
// submission; the backend does not otherwise distinguish submitters.
const clientID = "storyforge-orchestrator"

// Pool drains a bounded job queue with a fixed number of goroutines.
// Submitting to the backend is synchronous with its own 30s timeout;
// a worker never blocks waiting for the job to finish generating —
// that is the status monitor's job.
type Pool struct {
	size    int
	queue   chan string
	jobMgr  *jobs.Manager
	backend *backend.Client
	mon     *monitor.Monitor
	log     *slog.Logger
}

func New(jobMgr *jobs.Manager, backendConn *backend.Client, mon *monitor.Monitor, size, queueCapacity int, log *slog.Logger) *Pool {
	return &Pool{
		size:    size,
		queue:   make(chan string, queueCapacity),
		jobMgr:  jobMgr,
		backend: backendConn,
		mon:     mon,
		log:     log,
	}
}

// Enqueue admits a job ID onto the queue. It returns a Conflict-free
// Upstream error when the queue is at capacity instead of blocking the
// caller indefinitely, so an HTTP handler can surface backpressure.
func (p *Pool) Enqueue(jobID string) error {
	select {
	case p.queue <- jobID:
		return nil
	default:
		return apperr.New(apperr.Upstream, "generation queue is full")
	}
}

// QueueDepth reports how many jobs are currently waiting to be picked
// up by a worker, used for the /generate response's queue_position.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Run starts the worker goroutines and blocks until ctx is cancelled or
// a worker returns a fatal error.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		g.Go(func() error {
			p.loop(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-p.queue:
			p.process(ctx, jobID)
		}
	}
}

func (p *Pool) process(ctx context.Context, jobID string) {
	job, err := p.jobMgr.GetJob(ctx, jobID)
	if err != nil {
		p.log.Warn("worker: job vanished before processing", "job_id", jobID, "err", err)
		return
	}

	graph, err := buildGraph(job)
	if err != nil {
		p.failJob(ctx, jobID, err.Error())
		return
	}

	backendID, err := p.backend.SubmitWorkflow(ctx, graph.AsMap(), clientID)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Sprintf("backend submit failed: %v", err))
		return
	}
	if backendID == "" {
		p.failJob(ctx, jobID, "backend rejected the workflow submission")
		return
	}

	if _, err := p.jobMgr.UpdateStatus(ctx, jobID, core.JobProcessing, backendID, "", ""); err != nil {
		p.log.Warn("worker: mark job processing failed", "job_id", jobID, "err", err)
		return
	}
	p.mon.Track(jobID)
}

func (p *Pool) failJob(ctx context.Context, jobID, message string) {
	if _, err := p.jobMgr.UpdateStatus(ctx, jobID, core.JobFailed, "", "", message); err != nil {
		p.log.Warn("worker: mark job failed also failed", "job_id", jobID, "err", err)
	}
}

// buildGraph dispatches to the image or video composer based on the
// job's type, reading the resolved generation parameters C7 attached to
// the job at creation time.
func buildGraph(job *core.Job) (workflow.Graph, error) {
	switch job.Type {
	case core.JobTypeVideo:
		return workflow.BuildVideoWorkflow(videoParams(job.Parameters)), nil
	case core.JobTypeImage, core.JobTypeBatch:
		return workflow.BuildImageWorkflow(imageParams(job)), nil
	default:
		return nil, apperr.New(apperr.BadInput, "unknown job type "+string(job.Type))
	}
}

func imageParams(job *core.Job) workflow.ImageParams {
	p := job.Parameters
	return workflow.ImageParams{
		Prompt:         job.Prompt,
		NegativePrompt: strParam(p, "negative_prompt"),
		Width:          intParam(p, "width", 512),
		Height:         intParam(p, "height", 512),
		Steps:          intParam(p, "steps", 20),
		CFG:            floatParam(p, "cfg_scale", 7.0),
		Checkpoint:     strParam(p, "checkpoint"),
		Loras:          loraParams(p),
	}
}

func videoParams(p map[string]any) workflow.VideoParams {
	return workflow.VideoParams{
		Prompt:          strParam(p, "prompt"),
		DurationSeconds: intParam(p, "duration_seconds", 2),
		FPS:             intParam(p, "fps", 8),
		Width:           intParam(p, "width", 512),
		Height:          intParam(p, "height", 512),
		Steps:           intParam(p, "steps", 20),
		Checkpoint:      strParam(p, "checkpoint"),
		StyleSampler:    strParam(p, "sampler"),
	}
}

// loraParams accepts either the []any shape a JSON round-trip produces
// or the []map[string]any shape generate.go builds in-process, since a
// concrete []map[string]any does not satisfy a []any type assertion.
func loraParams(p map[string]any) []workflow.LoraRef {
	switch raw := p["loras"].(type) {
	case []any:
		out := make([]workflow.LoraRef, 0, len(raw))
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, workflow.LoraRef{Name: strParam(m, "name"), Strength: floatParam(m, "strength", 1.0)})
		}
		return out
	case []map[string]any:
		out := make([]workflow.LoraRef, 0, len(raw))
		for _, m := range raw {
			out = append(out, workflow.LoraRef{Name: strParam(m, "name"), Strength: floatParam(m, "strength", 1.0)})
		}
		return out
	default:
		return nil
	}
}

func strParam(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func intParam(p map[string]any, key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatParam(p map[string]any, key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
