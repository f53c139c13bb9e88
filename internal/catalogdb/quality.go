package catalogdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

// InsertQualityFeedback stores one reviewed-generation record. The
// unique index on prompt_id makes this an idempotent insert per
// backend prompt.
func (d *DB) InsertQualityFeedback(ctx context.Context, q *core.QualityFeedback) error {
	paramsJSON, _ := json.Marshal(q.GenerationParams)
	structJSON, _ := json.Marshal(q.StructuralGates)
	motionJSON, _ := json.Marshal(q.MotionGates)
	qualityJSON, _ := json.Marshal(q.QualityGates)
	framesJSON, _ := json.Marshal(q.FrameSamplePaths)
	recsJSON, _ := json.Marshal(q.Recommendations)
	successJSON, _ := json.Marshal(q.SuccessfulElements)
	failedJSON, _ := json.Marshal(q.FailedElements)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO quality_feedback (generation_id, prompt_id, project_id, generation_params,
		   contract_passed, quality_score, structural_gates, motion_gates, quality_gates,
		   frame_sample_paths, recommendations, successful_elements, failed_elements,
		   analysis_notes, output_path, file_size_bytes, duration_seconds, frame_count,
		   human_score, human_notes, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		 ON CONFLICT (prompt_id) DO NOTHING`,
		q.GenerationID, q.BackendPromptID, q.ProjectID, paramsJSON, q.ContractPassed,
		q.QualityScore, structJSON, motionJSON, qualityJSON, framesJSON, recsJSON,
		successJSON, failedJSON, q.AnalysisNotes, q.OutputPath, q.FileSizeBytes,
		q.DurationSeconds, q.FrameCount, q.HumanScore, q.HumanNotes, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quality feedback: %w", err)
	}
	return nil
}

// GetRecentQuality returns the most recent quality feedback rows for a
// project.
func (d *DB) GetRecentQuality(ctx context.Context, projectID string, limit int) ([]*core.QualityFeedback, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT generation_id, prompt_id, project_id, generation_params, contract_passed, quality_score,
		        successful_elements, failed_elements, analysis_notes, output_path, created_at
		 FROM quality_feedback WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent quality: %w", err)
	}
	defer rows.Close()

	var out []*core.QualityFeedback
	for rows.Next() {
		q := &core.QualityFeedback{}
		var paramsJSON, successJSON, failedJSON []byte
		if err := rows.Scan(&q.GenerationID, &q.BackendPromptID, &q.ProjectID, &paramsJSON,
			&q.ContractPassed, &q.QualityScore, &successJSON, &failedJSON, &q.AnalysisNotes,
			&q.OutputPath, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quality feedback: %w", err)
		}
		json.Unmarshal(paramsJSON, &q.GenerationParams)
		json.Unmarshal(successJSON, &q.SuccessfulElements)
		json.Unmarshal(failedJSON, &q.FailedElements)
		out = append(out, q)
	}
	return out, nil
}

// GetLearnedElements aggregates successful/failed elements across a
// project's quality feedback, feeding the resource resolver's prompt
// reasoning (a supplemented feature — see SPEC_FULL.md).
func (d *DB) GetLearnedElements(ctx context.Context, projectID string) (successful, failed []string, err error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT successful_elements, failed_elements FROM quality_feedback WHERE project_id = $1 ORDER BY created_at DESC LIMIT 100`,
		projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("get learned elements: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	failedSeen := map[string]bool{}
	for rows.Next() {
		var successJSON, failedJSON []byte
		if err := rows.Scan(&successJSON, &failedJSON); err != nil {
			return nil, nil, fmt.Errorf("scan learned elements: %w", err)
		}
		var s, f []string
		json.Unmarshal(successJSON, &s)
		json.Unmarshal(failedJSON, &f)
		for _, e := range s {
			if !seen[e] {
				seen[e] = true
				successful = append(successful, e)
			}
		}
		for _, e := range f {
			if !failedSeen[e] {
				failedSeen[e] = true
				failed = append(failed, e)
			}
		}
	}
	return successful, failed, nil
}

// GetProjectStats aggregates pass rate and average quality for a project.
func (d *DB) GetProjectStats(ctx context.Context, projectID string) (*core.ProjectStats, error) {
	stats := &core.ProjectStats{}
	var passCount int
	err := d.Pool.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN contract_passed THEN 1 ELSE 0 END), 0), COALESCE(AVG(quality_score), 0)
		 FROM quality_feedback WHERE project_id = $1`,
		projectID,
	).Scan(&stats.TotalGenerations, &passCount, &stats.AverageQuality)
	if err != nil {
		return nil, fmt.Errorf("get project stats: %w", err)
	}
	if stats.TotalGenerations > 0 {
		stats.PassRate = float64(passCount) / float64(stats.TotalGenerations)
	}
	return stats, nil
}
