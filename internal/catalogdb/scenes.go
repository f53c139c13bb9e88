package catalogdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

const sceneColumns = `id, project_id, scene_number, title, description, location, mood, time_of_day, weather, narrative, generation_status, output_video_path, dialogue_audio_path, created_at, updated_at`

func scanScene(row interface{ Scan(dest ...any) error }) (*core.Scene, error) {
	s := &core.Scene{}
	var status string
	err := row.Scan(&s.ID, &s.ProjectID, &s.SceneNumber, &s.Title, &s.Description, &s.Location,
		&s.Mood, &s.TimeOfDay, &s.Weather, &s.Narrative, &status, &s.OutputVideoPath,
		&s.DialogueAudioPath, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.GenerationStatus = core.GenerationStatus(status)
	return s, nil
}

// UpsertScene inserts or updates a scene by id.
func (d *DB) UpsertScene(ctx context.Context, s *core.Scene) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO scenes (`+sceneColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (id) DO UPDATE SET
		   scene_number = EXCLUDED.scene_number, title = EXCLUDED.title,
		   description = EXCLUDED.description, location = EXCLUDED.location,
		   mood = EXCLUDED.mood, time_of_day = EXCLUDED.time_of_day,
		   weather = EXCLUDED.weather, narrative = EXCLUDED.narrative,
		   generation_status = EXCLUDED.generation_status,
		   output_video_path = EXCLUDED.output_video_path,
		   dialogue_audio_path = EXCLUDED.dialogue_audio_path, updated_at = EXCLUDED.updated_at`,
		s.ID, s.ProjectID, s.SceneNumber, s.Title, s.Description, s.Location, s.Mood,
		s.TimeOfDay, s.Weather, s.Narrative, string(s.GenerationStatus), s.OutputVideoPath,
		s.DialogueAudioPath, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert scene: %w", err)
	}
	return nil
}

// GetScene retrieves a scene by id.
func (d *DB) GetScene(ctx context.Context, id string) (*core.Scene, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = $1`, id)
	s, err := scanScene(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scene not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return s, nil
}

// ListScenes returns every scene of a project ordered by scene_number
// ascending, the order the narrative engine walks when propagating.
func (d *DB) ListScenes(ctx context.Context, projectID string) ([]*core.Scene, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE project_id = $1 ORDER BY scene_number ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var out []*core.Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ListScenesAfter returns scenes of a project with scene_number strictly
// greater than after, ascending — the downstream walk for propagation.
func (d *DB) ListScenesAfter(ctx context.Context, projectID string, after int) ([]*core.Scene, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE project_id = $1 AND scene_number > $2 ORDER BY scene_number ASC`,
		projectID, after)
	if err != nil {
		return nil, fmt.Errorf("list scenes after: %w", err)
	}
	defer rows.Close()

	var out []*core.Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteScene removes a scene and cascades to its shots/state rows.
func (d *DB) DeleteScene(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM scenes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	return nil
}
