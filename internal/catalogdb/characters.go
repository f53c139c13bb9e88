package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storyforge/orchestrator/internal/core"
)

// patchableCharacterFields whitelists the columns patch_character may
// touch; any other key is rejected by the caller before reaching here.
var patchableCharacterFields = map[string]bool{
	"display_name": true, "design_prompt": true, "appearance": true,
	"personality": true, "background": true, "role": true,
	"personality_tags": true, "relationships": true, "voice_profile": true,
	"lora_path": true, "lora_trigger": true,
}

// PatchableCharacterField reports whether name is a whitelisted
// patch_character field.
func PatchableCharacterField(name string) bool {
	return patchableCharacterFields[name]
}

// UpsertCharacter inserts or updates a character by id.
func (d *DB) UpsertCharacter(ctx context.Context, c *core.Character) error {
	appearanceJSON, _ := json.Marshal(c.Appearance)
	tagsJSON, _ := json.Marshal(c.PersonalityTags)
	relJSON, _ := json.Marshal(c.Relationships)
	voiceJSON, _ := json.Marshal(c.VoiceProfile)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO characters (id, project_id, display_name, slug, design_prompt, appearance, personality, background, role, personality_tags, relationships, voice_profile, lora_path, lora_trigger, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 ON CONFLICT (id) DO UPDATE SET
		   display_name = EXCLUDED.display_name, design_prompt = EXCLUDED.design_prompt,
		   appearance = EXCLUDED.appearance, personality = EXCLUDED.personality,
		   background = EXCLUDED.background, role = EXCLUDED.role,
		   personality_tags = EXCLUDED.personality_tags, relationships = EXCLUDED.relationships,
		   voice_profile = EXCLUDED.voice_profile, lora_path = EXCLUDED.lora_path,
		   lora_trigger = EXCLUDED.lora_trigger, updated_at = EXCLUDED.updated_at`,
		c.ID, c.ProjectID, c.DisplayName, c.Slug, c.DesignPrompt, appearanceJSON,
		c.Personality, c.Background, c.Role, tagsJSON, relJSON, voiceJSON,
		c.LoraPath, c.LoraTrigger, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

func scanCharacter(row interface {
	Scan(dest ...any) error
}) (*core.Character, error) {
	c := &core.Character{}
	var appearanceJSON, tagsJSON, relJSON, voiceJSON []byte
	err := row.Scan(&c.ID, &c.ProjectID, &c.DisplayName, &c.Slug, &c.DesignPrompt, &appearanceJSON,
		&c.Personality, &c.Background, &c.Role, &tagsJSON, &relJSON, &voiceJSON,
		&c.LoraPath, &c.LoraTrigger, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(appearanceJSON, &c.Appearance)
	json.Unmarshal(tagsJSON, &c.PersonalityTags)
	json.Unmarshal(relJSON, &c.Relationships)
	json.Unmarshal(voiceJSON, &c.VoiceProfile)
	return c, nil
}

const characterColumns = `id, project_id, display_name, slug, design_prompt, appearance, personality, background, role, personality_tags, relationships, voice_profile, lora_path, lora_trigger, created_at, updated_at`

// GetCharacterBySlug retrieves a character by its project-unique slug.
func (d *DB) GetCharacterBySlug(ctx context.Context, projectID, slug string) (*core.Character, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE project_id = $1 AND slug = $2`, projectID, slug)
	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("character not found: %s/%s", projectID, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return c, nil
}

// GetCharacter retrieves a character by id.
func (d *DB) GetCharacter(ctx context.Context, id string) (*core.Character, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id)
	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("character not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return c, nil
}

// ListCharacters returns every character of a project.
func (d *DB) ListCharacters(ctx context.Context, projectID string) ([]*core.Character, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []*core.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// SearchCharactersByName performs a case-insensitive LIKE search with an
// exact-match boost, grounding the Resource Resolver's "query C1
// directly by name" algorithm.
func (d *DB) SearchCharactersByName(ctx context.Context, projectID, name string) ([]*core.Character, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters
		 WHERE project_id = $1 AND display_name ILIKE $2
		 ORDER BY (LOWER(display_name) = LOWER($3)) DESC, display_name ASC
		 LIMIT 10`,
		projectID, "%"+name+"%", name)
	if err != nil {
		return nil, fmt.Errorf("search characters: %w", err)
	}
	defer rows.Close()

	var out []*core.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// PatchCharacter applies a whitelisted partial update. Callers must
// have already rejected unknown field names and an empty fields map
// with a BadInput error before calling this.
func (d *DB) PatchCharacter(ctx context.Context, projectID, slug string, fields map[string]any, now time.Time) error {
	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+3)
	i := 1

	for name, value := range fields {
		col := name
		switch name {
		case "appearance", "personality_tags", "relationships", "voice_profile":
			encoded, _ := json.Marshal(value)
			args = append(args, encoded)
		default:
			args = append(args, value)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i))
		i++
	}
	args = append(args, now)
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", i))
	i++
	args = append(args, projectID, slug)

	query := fmt.Sprintf(
		`UPDATE characters SET %s WHERE project_id = $%d AND slug = $%d`,
		strings.Join(setClauses, ", "), i, i+1,
	)

	res, err := d.Pool.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch character: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("character not found: %s/%s", projectID, slug)
	}
	return nil
}
