package catalogdb

import (
	"context"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

// EnqueueRegeneration inserts a downstream-invalidation entry. The
// unique index on (scene_id, shot_id, source_scene_id, source_field)
// makes this idempotent: a duplicate event is a silent no-op.
func (d *DB) EnqueueRegeneration(ctx context.Context, e *core.RegenerationQueue) error {
	var shotID, sourceField any
	if e.ShotID != "" {
		shotID = e.ShotID
	}
	if e.SourceField != "" {
		sourceField = e.SourceField
	}

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO regeneration_queue (id, scene_id, shot_id, reason, priority, source_scene_id, source_field, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')
		 ON CONFLICT (scene_id, shot_id, source_scene_id, source_field) DO NOTHING`,
		e.ID, e.SceneID, shotID, e.Reason, e.Priority, e.SourceSceneID, sourceField,
	)
	if err != nil {
		return fmt.Errorf("enqueue regeneration: %w", err)
	}
	return nil
}

// ListRegenerationPending returns pending entries for a project's
// scenes, highest priority first.
func (d *DB) ListRegenerationPending(ctx context.Context, projectID string) ([]*core.RegenerationQueue, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT rq.id, rq.scene_id, COALESCE(rq.shot_id,''), rq.reason, rq.priority,
		        rq.source_scene_id, COALESCE(rq.source_field,''), rq.status,
		        rq.created_at::text, COALESCE(rq.processed_at::text,'')
		 FROM regeneration_queue rq
		 JOIN scenes sc ON sc.id = rq.scene_id
		 WHERE sc.project_id = $1 AND rq.status = 'pending'
		 ORDER BY rq.priority DESC, rq.created_at ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list regeneration pending: %w", err)
	}
	defer rows.Close()

	var out []*core.RegenerationQueue
	for rows.Next() {
		e := &core.RegenerationQueue{}
		var processedAt string
		if err := rows.Scan(&e.ID, &e.SceneID, &e.ShotID, &e.Reason, &e.Priority,
			&e.SourceSceneID, &e.SourceField, &e.Status, &e.CreatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scan regeneration entry: %w", err)
		}
		if processedAt != "" {
			e.ProcessedAt = &processedAt
		}
		out = append(out, e)
	}
	return out, nil
}

// MarkRegenerationProcessed marks one entry processed.
func (d *DB) MarkRegenerationProcessed(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE regeneration_queue SET status='processed', processed_at=NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark regeneration processed: %w", err)
	}
	return nil
}
