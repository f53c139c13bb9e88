package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

const shotColumns = `id, scene_id, shot_number, shot_type, camera_angle, motion_prompt, characters_present, dialogue_text, dialogue_character, status, output_video_path`

func scanShot(row interface{ Scan(dest ...any) error }) (*core.Shot, error) {
	s := &core.Shot{}
	var status string
	var charsJSON []byte
	err := row.Scan(&s.ID, &s.SceneID, &s.ShotNumber, &s.ShotType, &s.CameraAngle, &s.MotionPrompt,
		&charsJSON, &s.DialogueText, &s.DialogueCharacter, &status, &s.OutputVideoPath)
	if err != nil {
		return nil, err
	}
	s.Status = core.GenerationStatus(status)
	json.Unmarshal(charsJSON, &s.CharactersPresent)
	return s, nil
}

// UpsertShot inserts or updates a shot by id.
func (d *DB) UpsertShot(ctx context.Context, s *core.Shot) error {
	charsJSON, _ := json.Marshal(s.CharactersPresent)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO shots (`+shotColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (id) DO UPDATE SET
		   shot_number = EXCLUDED.shot_number, shot_type = EXCLUDED.shot_type,
		   camera_angle = EXCLUDED.camera_angle, motion_prompt = EXCLUDED.motion_prompt,
		   characters_present = EXCLUDED.characters_present, dialogue_text = EXCLUDED.dialogue_text,
		   dialogue_character = EXCLUDED.dialogue_character, status = EXCLUDED.status,
		   output_video_path = EXCLUDED.output_video_path`,
		s.ID, s.SceneID, s.ShotNumber, s.ShotType, s.CameraAngle, s.MotionPrompt,
		charsJSON, s.DialogueText, s.DialogueCharacter, string(s.Status), s.OutputVideoPath,
	)
	if err != nil {
		return fmt.Errorf("upsert shot: %w", err)
	}
	return nil
}

// GetShot retrieves a shot by id.
func (d *DB) GetShot(ctx context.Context, id string) (*core.Shot, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = $1`, id)
	s, err := scanShot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("shot not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	return s, nil
}

// ListShots returns every shot of a scene ordered by shot_number.
func (d *DB) ListShots(ctx context.Context, sceneID string) ([]*core.Shot, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+shotColumns+` FROM shots WHERE scene_id = $1 ORDER BY shot_number ASC`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()

	var out []*core.Shot
	for rows.Next() {
		s, err := scanShot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
