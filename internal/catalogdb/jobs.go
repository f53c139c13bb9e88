package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

const jobColumns = `id, type, prompt, parameters, status, backend_id, output_path, organized_path, project_id, character_id, error_message, created_at, started_at, completed_at, total_time_seconds`

func scanJob(row interface{ Scan(dest ...any) error }) (*core.Job, error) {
	j := &core.Job{}
	var jobType, status string
	var paramsJSON []byte
	err := row.Scan(&j.ID, &jobType, &j.Prompt, &paramsJSON, &status, &j.BackendID,
		&j.OutputPath, &j.OrganizedPath, &j.ProjectID, &j.CharacterID, &j.ErrorMessage,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.TotalTimeSecs)
	if err != nil {
		return nil, err
	}
	j.Type = core.JobType(jobType)
	j.Status = core.JobStatus(status)
	json.Unmarshal(paramsJSON, &j.Parameters)
	return j, nil
}

// CreateJob stores a new job record.
func (d *DB) CreateJob(ctx context.Context, j *core.Job) error {
	paramsJSON, _ := json.Marshal(j.Parameters)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		j.ID, string(j.Type), j.Prompt, paramsJSON, string(j.Status), j.BackendID,
		j.OutputPath, j.OrganizedPath, j.ProjectID, j.CharacterID, j.ErrorMessage,
		j.CreatedAt, j.StartedAt, j.CompletedAt, j.TotalTimeSecs,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob persists the mutable fields of a job (status, backend id,
// paths, timestamps, error message) written through from the in-memory
// cache on every state change.
func (d *DB) UpdateJob(ctx context.Context, j *core.Job) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE jobs SET status=$1, backend_id=$2, output_path=$3, organized_path=$4,
		   error_message=$5, started_at=$6, completed_at=$7, total_time_seconds=$8
		 WHERE id = $9`,
		string(j.Status), j.BackendID, j.OutputPath, j.OrganizedPath, j.ErrorMessage,
		j.StartedAt, j.CompletedAt, j.TotalTimeSecs, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id.
func (d *DB) GetJob(ctx context.Context, id string) (*core.Job, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs newest-first, optionally filtered by status.
func (d *DB) ListJobs(ctx context.Context, status core.JobStatus, limit, offset int) ([]*core.Job, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			string(status), limit, offset)
	} else {
		rows, err = d.Pool.QueryContext(ctx,
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*core.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, nil
}

// DeleteOldJobs removes terminal jobs older than the retention cutoff,
// used by cleanup_old_jobs, and returns the count removed.
func (d *DB) DeleteOldJobs(ctx context.Context, cutoffUnix int64) (int, error) {
	res, err := d.Pool.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN ('completed','failed','timeout','cancelled')
		   AND EXTRACT(EPOCH FROM created_at) < $1`, cutoffUnix)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
