package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

const stateColumns = `scene_id, character_slug, clothing, hair_state, injuries, accessories, body_state, emotional_state, energy_level, relationship_context, location_in_scene, carrying, state_source, version`

func scanState(row interface{ Scan(dest ...any) error }) (*core.CharacterSceneState, error) {
	s := &core.CharacterSceneState{}
	var bodyState, source string
	var injuriesJSON, accessoriesJSON, relJSON, carryingJSON []byte
	err := row.Scan(&s.SceneID, &s.CharacterSlug, &s.Clothing, &s.HairState, &injuriesJSON,
		&accessoriesJSON, &bodyState, &s.EmotionalState, &s.EnergyLevel, &relJSON,
		&s.LocationInScene, &carryingJSON, &source, &s.Version)
	if err != nil {
		return nil, err
	}
	s.BodyState = core.BodyState(bodyState)
	s.StateSource = core.StateSource(source)
	json.Unmarshal(injuriesJSON, &s.Injuries)
	json.Unmarshal(accessoriesJSON, &s.Accessories)
	json.Unmarshal(relJSON, &s.RelationshipContext)
	json.Unmarshal(carryingJSON, &s.Carrying)
	return s, nil
}

// UpsertCharacterSceneState writes the whole row, used after the
// narrative engine has computed the merged/decayed state in memory.
func (d *DB) UpsertCharacterSceneState(ctx context.Context, s *core.CharacterSceneState) error {
	injuriesJSON, _ := json.Marshal(s.Injuries)
	accessoriesJSON, _ := json.Marshal(s.Accessories)
	relJSON, _ := json.Marshal(s.RelationshipContext)
	carryingJSON, _ := json.Marshal(s.Carrying)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO character_scene_state (`+stateColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (scene_id, character_slug) DO UPDATE SET
		   clothing = EXCLUDED.clothing, hair_state = EXCLUDED.hair_state,
		   injuries = EXCLUDED.injuries, accessories = EXCLUDED.accessories,
		   body_state = EXCLUDED.body_state, emotional_state = EXCLUDED.emotional_state,
		   energy_level = EXCLUDED.energy_level, relationship_context = EXCLUDED.relationship_context,
		   location_in_scene = EXCLUDED.location_in_scene, carrying = EXCLUDED.carrying,
		   state_source = EXCLUDED.state_source, version = EXCLUDED.version`,
		s.SceneID, s.CharacterSlug, s.Clothing, s.HairState, injuriesJSON, accessoriesJSON,
		string(s.BodyState), s.EmotionalState, string(s.EnergyLevel), relJSON, s.LocationInScene,
		carryingJSON, string(s.StateSource), s.Version,
	)
	if err != nil {
		return fmt.Errorf("upsert character scene state: %w", err)
	}
	return nil
}

// GetCharacterSceneState retrieves one (scene, character) state row.
func (d *DB) GetCharacterSceneState(ctx context.Context, sceneID, slug string) (*core.CharacterSceneState, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM character_scene_state WHERE scene_id = $1 AND character_slug = $2`,
		sceneID, slug)
	s, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("character scene state not found: %s/%s", sceneID, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get character scene state: %w", err)
	}
	return s, nil
}

// GetSceneStates returns every character's state for one scene.
func (d *DB) GetSceneStates(ctx context.Context, sceneID string) ([]*core.CharacterSceneState, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+stateColumns+` FROM character_scene_state WHERE scene_id = $1`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("get scene states: %w", err)
	}
	defer rows.Close()

	var out []*core.CharacterSceneState
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character scene state: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteCharacterSceneState removes one state row.
func (d *DB) DeleteCharacterSceneState(ctx context.Context, sceneID, slug string) error {
	_, err := d.Pool.ExecContext(ctx,
		`DELETE FROM character_scene_state WHERE scene_id = $1 AND character_slug = $2`, sceneID, slug)
	if err != nil {
		return fmt.Errorf("delete character scene state: %w", err)
	}
	return nil
}

// GetStateTimeline returns the state history of one character across a
// project's scenes, in scene_number order, by joining through scenes.
func (d *DB) GetStateTimeline(ctx context.Context, projectID, slug string) ([]*core.CharacterSceneState, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT css.scene_id, css.character_slug, css.clothing, css.hair_state, css.injuries,
		        css.accessories, css.body_state, css.emotional_state, css.energy_level,
		        css.relationship_context, css.location_in_scene, css.carrying, css.state_source, css.version
		 FROM character_scene_state css
		 JOIN scenes sc ON sc.id = css.scene_id
		 WHERE sc.project_id = $1 AND css.character_slug = $2
		 ORDER BY sc.scene_number ASC`,
		projectID, slug)
	if err != nil {
		return nil, fmt.Errorf("get state timeline: %w", err)
	}
	defer rows.Close()

	var out []*core.CharacterSceneState
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timeline state: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
