// Package catalogdb is the Postgres-backed implementation of the
// catalog store (C1): the single source of truth for every entity in
// the domain model. It is always paired with an in-memory repository
// (internal/repository) that serves reads on the fast path and falls
// back to this package when the memory cache misses.
package catalogdb

import (
	"context"
	"database/sql"
	"fmt"
)

// DB wraps a database/sql connection pool for PostgreSQL. The caller
// must blank-import the driver (_ "github.com/lib/pq").
type DB struct {
	Pool *sql.DB
}

// New opens and pings a PostgreSQL connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the full schema migration. Safe to call on every
// startup: every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    default_style TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS generation_styles (
    name              TEXT PRIMARY KEY,
    checkpoint        TEXT NOT NULL DEFAULT '',
    positive_template  TEXT NOT NULL DEFAULT '',
    negative_template  TEXT NOT NULL DEFAULT '',
    cfg_scale         DOUBLE PRECISION NOT NULL DEFAULT 7.0,
    steps             INTEGER NOT NULL DEFAULT 20,
    sampler           TEXT NOT NULL DEFAULT 'euler',
    scheduler         TEXT NOT NULL DEFAULT 'normal',
    width             INTEGER NOT NULL DEFAULT 512,
    height            INTEGER NOT NULL DEFAULT 768
);

CREATE TABLE IF NOT EXISTS characters (
    id               TEXT PRIMARY KEY,
    project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    display_name     TEXT NOT NULL,
    slug             TEXT NOT NULL,
    design_prompt    TEXT NOT NULL DEFAULT '',
    appearance       JSONB NOT NULL DEFAULT '{}',
    personality      TEXT NOT NULL DEFAULT '',
    background       TEXT NOT NULL DEFAULT '',
    role             TEXT NOT NULL DEFAULT '',
    personality_tags JSONB NOT NULL DEFAULT '[]',
    relationships    JSONB NOT NULL DEFAULT '{}',
    voice_profile    JSONB NOT NULL DEFAULT '{}',
    lora_path        TEXT NOT NULL DEFAULT '',
    lora_trigger     TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(project_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_characters_name ON characters(display_name);

CREATE TABLE IF NOT EXISTS scenes (
    id                  TEXT PRIMARY KEY,
    project_id          TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    scene_number        INTEGER NOT NULL,
    title               TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    location            TEXT NOT NULL DEFAULT '',
    mood                TEXT NOT NULL DEFAULT '',
    time_of_day         TEXT NOT NULL DEFAULT '',
    weather             TEXT NOT NULL DEFAULT '',
    narrative           TEXT NOT NULL DEFAULT '',
    generation_status   TEXT NOT NULL DEFAULT 'pending',
    output_video_path   TEXT NOT NULL DEFAULT '',
    dialogue_audio_path TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_scenes_project_number ON scenes(project_id, scene_number);

CREATE TABLE IF NOT EXISTS shots (
    id                TEXT PRIMARY KEY,
    scene_id          TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
    shot_number       INTEGER NOT NULL,
    shot_type         TEXT NOT NULL DEFAULT '',
    camera_angle      TEXT NOT NULL DEFAULT '',
    motion_prompt     TEXT NOT NULL DEFAULT '',
    characters_present JSONB NOT NULL DEFAULT '[]',
    dialogue_text     TEXT NOT NULL DEFAULT '',
    dialogue_character TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending',
    output_video_path TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_shots_scene ON shots(scene_id, shot_number);

CREATE TABLE IF NOT EXISTS episodes (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS episode_scenes (
    episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    scene_id   TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (episode_id, scene_id)
);

CREATE TABLE IF NOT EXISTS jobs (
    id             TEXT PRIMARY KEY,
    type           TEXT NOT NULL,
    prompt         TEXT NOT NULL DEFAULT '',
    parameters     JSONB NOT NULL DEFAULT '{}',
    status         TEXT NOT NULL DEFAULT 'queued',
    backend_id     TEXT NOT NULL DEFAULT '',
    output_path    TEXT NOT NULL DEFAULT '',
    organized_path TEXT NOT NULL DEFAULT '',
    project_id     TEXT NOT NULL DEFAULT '',
    character_id   TEXT NOT NULL DEFAULT '',
    error_message  TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at     TIMESTAMPTZ,
    completed_at   TIMESTAMPTZ,
    total_time_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

CREATE TABLE IF NOT EXISTS character_scene_state (
    scene_id             TEXT NOT NULL,
    character_slug       TEXT NOT NULL,
    clothing             TEXT NOT NULL DEFAULT '',
    hair_state           TEXT NOT NULL DEFAULT '',
    injuries             JSONB NOT NULL DEFAULT '[]',
    accessories          JSONB NOT NULL DEFAULT '[]',
    body_state           TEXT NOT NULL DEFAULT 'clean',
    emotional_state      TEXT NOT NULL DEFAULT 'calm',
    energy_level         TEXT NOT NULL DEFAULT 'normal',
    relationship_context JSONB NOT NULL DEFAULT '{}',
    location_in_scene    TEXT NOT NULL DEFAULT '',
    carrying             JSONB NOT NULL DEFAULT '[]',
    state_source         TEXT NOT NULL DEFAULT 'auto',
    version              INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (scene_id, character_slug)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_css_scene_slug ON character_scene_state(scene_id, character_slug);

CREATE TABLE IF NOT EXISTS regeneration_queue (
    id               TEXT PRIMARY KEY,
    scene_id         TEXT NOT NULL,
    shot_id          TEXT,
    reason           TEXT NOT NULL DEFAULT '',
    priority         INTEGER NOT NULL DEFAULT 0,
    source_scene_id  TEXT NOT NULL,
    source_field     TEXT,
    status           TEXT NOT NULL DEFAULT 'pending',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at     TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_regen_idempotency
    ON regeneration_queue(scene_id, shot_id, source_scene_id, source_field);

CREATE TABLE IF NOT EXISTS quality_feedback (
    generation_id       TEXT PRIMARY KEY,
    prompt_id           TEXT NOT NULL,
    project_id          TEXT NOT NULL DEFAULT '',
    generation_params   JSONB NOT NULL DEFAULT '{}',
    contract_passed     BOOLEAN NOT NULL DEFAULT false,
    quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    structural_gates    JSONB NOT NULL DEFAULT '{}',
    motion_gates        JSONB NOT NULL DEFAULT '{}',
    quality_gates       JSONB NOT NULL DEFAULT '{}',
    frame_sample_paths  JSONB NOT NULL DEFAULT '[]',
    recommendations     JSONB NOT NULL DEFAULT '[]',
    successful_elements JSONB NOT NULL DEFAULT '[]',
    failed_elements     JSONB NOT NULL DEFAULT '[]',
    analysis_notes      TEXT NOT NULL DEFAULT '',
    output_path         TEXT NOT NULL DEFAULT '',
    file_size_bytes     BIGINT NOT NULL DEFAULT 0,
    duration_seconds    DOUBLE PRECISION NOT NULL DEFAULT 0,
    frame_count         INTEGER NOT NULL DEFAULT 0,
    human_score         DOUBLE PRECISION,
    human_notes         TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_quality_prompt_id ON quality_feedback(prompt_id);
`
