package catalogdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storyforge/orchestrator/internal/core"
)

// UpsertProject inserts or updates a project by id.
func (d *DB) UpsertProject(ctx context.Context, p *core.Project) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, default_style, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, description = EXCLUDED.description,
		   default_style = EXCLUDED.default_style, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Description, p.DefaultStyle, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (d *DB) GetProject(ctx context.Context, id string) (*core.Project, error) {
	p := &core.Project{}
	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, name, description, default_style, created_at, updated_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.DefaultStyle, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project, most recently created first.
func (d *DB) ListProjects(ctx context.Context) ([]*core.Project, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, name, description, default_style, created_at, updated_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*core.Project
	for rows.Next() {
		p := &core.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.DefaultStyle, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// UpsertGenerationStyle inserts or updates a style by name.
func (d *DB) UpsertGenerationStyle(ctx context.Context, s *core.GenerationStyle) error {
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO generation_styles (name, checkpoint, positive_template, negative_template, cfg_scale, steps, sampler, scheduler, width, height)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (name) DO UPDATE SET
		   checkpoint = EXCLUDED.checkpoint, positive_template = EXCLUDED.positive_template,
		   negative_template = EXCLUDED.negative_template, cfg_scale = EXCLUDED.cfg_scale,
		   steps = EXCLUDED.steps, sampler = EXCLUDED.sampler, scheduler = EXCLUDED.scheduler,
		   width = EXCLUDED.width, height = EXCLUDED.height`,
		s.Name, s.Checkpoint, s.PositiveTemplate, s.NegativeTemplate, s.CFGScale, s.Steps, s.Sampler, s.Scheduler, s.Width, s.Height,
	)
	if err != nil {
		return fmt.Errorf("upsert generation style: %w", err)
	}
	return nil
}

// GetGenerationStyle retrieves a style by name.
func (d *DB) GetGenerationStyle(ctx context.Context, name string) (*core.GenerationStyle, error) {
	s := &core.GenerationStyle{}
	err := d.Pool.QueryRowContext(ctx,
		`SELECT name, checkpoint, positive_template, negative_template, cfg_scale, steps, sampler, scheduler, width, height
		 FROM generation_styles WHERE name = $1`, name,
	).Scan(&s.Name, &s.Checkpoint, &s.PositiveTemplate, &s.NegativeTemplate, &s.CFGScale, &s.Steps, &s.Sampler, &s.Scheduler, &s.Width, &s.Height)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation style not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get generation style: %w", err)
	}
	return s, nil
}
