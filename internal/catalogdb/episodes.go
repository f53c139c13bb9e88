package catalogdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

// UpsertEpisode inserts or updates an episode by id.
func (d *DB) UpsertEpisode(ctx context.Context, e *core.Episode) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO episodes (id, project_id, title, created_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
		e.ID, e.ProjectID, e.Title, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert episode: %w", err)
	}
	return nil
}

// GetEpisode retrieves an episode by id.
func (d *DB) GetEpisode(ctx context.Context, id string) (*core.Episode, error) {
	e := &core.Episode{}
	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, project_id, title, created_at FROM episodes WHERE id = $1`, id,
	).Scan(&e.ID, &e.ProjectID, &e.Title, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("episode not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return e, nil
}

// SetEpisodeScenes replaces the ordered scene membership of an episode.
func (d *DB) SetEpisodeScenes(ctx context.Context, episodeID string, scenes []core.EpisodeScene) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM episode_scenes WHERE episode_id = $1`, episodeID); err != nil {
		return fmt.Errorf("clear episode scenes: %w", err)
	}
	for _, es := range scenes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episode_scenes (episode_id, scene_id, position) VALUES ($1,$2,$3)`,
			episodeID, es.SceneID, es.Position,
		); err != nil {
			return fmt.Errorf("insert episode scene: %w", err)
		}
	}
	return tx.Commit()
}

// ListEpisodeScenes returns the scene ids of an episode, ordered by
// position.
func (d *DB) ListEpisodeScenes(ctx context.Context, episodeID string) ([]core.EpisodeScene, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT episode_id, scene_id, position FROM episode_scenes WHERE episode_id = $1 ORDER BY position ASC`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list episode scenes: %w", err)
	}
	defer rows.Close()

	var out []core.EpisodeScene
	for rows.Next() {
		var es core.EpisodeScene
		if err := rows.Scan(&es.EpisodeID, &es.SceneID, &es.Position); err != nil {
			return nil, fmt.Errorf("scan episode scene: %w", err)
		}
		out = append(out, es)
	}
	return out, nil
}
