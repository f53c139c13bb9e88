package core

import "time"

// JobType is the kind of generative work a Job performs.
type JobType string

const (
	JobTypeImage JobType = "image"
	JobTypeVideo JobType = "video"
	JobTypeBatch JobType = "batch"
)

// JobStatus is a state in the Job lifecycle state machine.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobTimeout    JobStatus = "timeout"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether s is a terminal state of the job state machine.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobTimeout, JobCancelled:
		return true
	default:
		return false
	}
}

// jobTransitions enumerates every legal status transition. A transition
// not present here is rejected by the job manager as a Conflict.
var jobTransitions = map[JobStatus]map[JobStatus]bool{
	JobQueued: {
		JobProcessing: true,
		JobCancelled:  true,
	},
	JobProcessing: {
		JobCompleted: true,
		JobFailed:    true,
		JobTimeout:   true,
		JobCancelled: true,
	},
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to JobStatus) bool {
	next, ok := jobTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Job is a unit of generative work owned end to end by the job manager
// and mirrored into the catalog store.
type Job struct {
	ID            string         `json:"id"`
	Type          JobType        `json:"type"`
	Prompt        string         `json:"prompt"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Status        JobStatus      `json:"status"`
	BackendID     string         `json:"backend_id,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	OrganizedPath string         `json:"organized_path,omitempty"`
	ProjectID     string         `json:"project_id,omitempty"`
	CharacterID   string         `json:"character_id,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	TotalTimeSecs float64        `json:"total_time_seconds,omitempty"`
}

// JobStats summarizes the job population for /health and diagnostics.
type JobStats struct {
	Total    int                `json:"total"`
	ByStatus map[JobStatus]int  `json:"by_status"`
	ByType   map[JobType]int    `json:"by_type"`
}
