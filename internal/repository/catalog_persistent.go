package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/storyforge/orchestrator/internal/core"
)

// catalogDB is the slice of catalogdb.DB the catalog repository needs.
// Declaring it here, rather than depending on *catalogdb.DB directly,
// lets tests substitute a stub without a real Postgres connection.
type catalogDB interface {
	UpsertProject(ctx context.Context, p *core.Project) error
	GetProject(ctx context.Context, id string) (*core.Project, error)
	ListProjects(ctx context.Context) ([]*core.Project, error)
	UpsertGenerationStyle(ctx context.Context, s *core.GenerationStyle) error
	GetGenerationStyle(ctx context.Context, name string) (*core.GenerationStyle, error)
	UpsertCharacter(ctx context.Context, c *core.Character) error
	GetCharacterBySlug(ctx context.Context, projectID, slug string) (*core.Character, error)
	ListCharacters(ctx context.Context, projectID string) ([]*core.Character, error)
	SearchCharactersByName(ctx context.Context, projectID, name string) ([]*core.Character, error)
	PatchCharacter(ctx context.Context, projectID, slug string, fields map[string]any, now time.Time) error
	UpsertScene(ctx context.Context, s *core.Scene) error
	GetScene(ctx context.Context, id string) (*core.Scene, error)
	ListScenes(ctx context.Context, projectID string) ([]*core.Scene, error)
	ListScenesAfter(ctx context.Context, projectID string, after int) ([]*core.Scene, error)
	DeleteScene(ctx context.Context, id string) error
	UpsertShot(ctx context.Context, s *core.Shot) error
	GetShot(ctx context.Context, id string) (*core.Shot, error)
	ListShots(ctx context.Context, sceneID string) ([]*core.Shot, error)
	UpsertEpisode(ctx context.Context, e *core.Episode) error
	GetEpisode(ctx context.Context, id string) (*core.Episode, error)
	SetEpisodeScenes(ctx context.Context, episodeID string, scenes []core.EpisodeScene) error
	ListEpisodeScenes(ctx context.Context, episodeID string) ([]core.EpisodeScene, error)
	UpsertCharacterSceneState(ctx context.Context, s *core.CharacterSceneState) error
	GetCharacterSceneState(ctx context.Context, sceneID, slug string) (*core.CharacterSceneState, error)
	GetSceneStates(ctx context.Context, sceneID string) ([]*core.CharacterSceneState, error)
	DeleteCharacterSceneState(ctx context.Context, sceneID, slug string) error
	GetStateTimeline(ctx context.Context, projectID, slug string) ([]*core.CharacterSceneState, error)
	EnqueueRegeneration(ctx context.Context, e *core.RegenerationQueue) error
	ListRegenerationPending(ctx context.Context, projectID string) ([]*core.RegenerationQueue, error)
	MarkRegenerationProcessed(ctx context.Context, id string) error
	InsertQualityFeedback(ctx context.Context, q *core.QualityFeedback) error
	GetRecentQuality(ctx context.Context, projectID string, limit int) ([]*core.QualityFeedback, error)
	GetLearnedElements(ctx context.Context, projectID string) (successful, failed []string, err error)
	GetProjectStats(ctx context.Context, projectID string) (*core.ProjectStats, error)
}

// PersistentCatalogRepository delegates catalog reads and writes to
// Postgres, with a MemoryCatalogRepository layered in front as a
// best-effort cache: writes go to both, a database failure is logged
// and non-fatal. Single-record Get* reads try memory first before
// falling back to the database and backfilling the cache on a miss;
// List*/Search* and the other multi-row reads query the database first
// and fall back to memory when it errors. Unlike jobs, the
// catalog store has no named hot-path caching contract, so the cache
// here exists purely to reduce read latency, not to satisfy an
// invariant.
type PersistentCatalogRepository struct {
	mem *MemoryCatalogRepository
	db  catalogDB
}

func NewPersistentCatalogRepository(mem *MemoryCatalogRepository, database catalogDB) *PersistentCatalogRepository {
	return &PersistentCatalogRepository{mem: mem, db: database}
}

func (r *PersistentCatalogRepository) UpsertProject(ctx context.Context, p *core.Project) error {
	_ = r.mem.UpsertProject(ctx, p)
	if err := r.db.UpsertProject(ctx, p); err != nil {
		slog.Warn("db upsert project failed, in-memory only", "project_id", p.ID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetProject(ctx context.Context, id string) (*core.Project, error) {
	if p, err := r.mem.GetProject(ctx, id); err == nil {
		return p, nil
	}
	p, err := r.db.GetProject(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertProject(ctx, p)
	return p, nil
}

func (r *PersistentCatalogRepository) ListProjects(ctx context.Context) ([]*core.Project, error) {
	out, err := r.db.ListProjects(ctx)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list projects failed, falling back to in-memory", "err", err)
	return r.mem.ListProjects(ctx)
}

func (r *PersistentCatalogRepository) UpsertGenerationStyle(ctx context.Context, s *core.GenerationStyle) error {
	_ = r.mem.UpsertGenerationStyle(ctx, s)
	if err := r.db.UpsertGenerationStyle(ctx, s); err != nil {
		slog.Warn("db upsert generation style failed, in-memory only", "name", s.Name, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetGenerationStyle(ctx context.Context, name string) (*core.GenerationStyle, error) {
	if s, err := r.mem.GetGenerationStyle(ctx, name); err == nil {
		return s, nil
	}
	s, err := r.db.GetGenerationStyle(ctx, name)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertGenerationStyle(ctx, s)
	return s, nil
}

func (r *PersistentCatalogRepository) UpsertCharacter(ctx context.Context, c *core.Character) error {
	_ = r.mem.UpsertCharacter(ctx, c)
	if err := r.db.UpsertCharacter(ctx, c); err != nil {
		slog.Warn("db upsert character failed, in-memory only", "character_id", c.ID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetCharacterBySlug(ctx context.Context, projectID, slug string) (*core.Character, error) {
	if c, err := r.mem.GetCharacterBySlug(ctx, projectID, slug); err == nil {
		return c, nil
	}
	c, err := r.db.GetCharacterBySlug(ctx, projectID, slug)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertCharacter(ctx, c)
	return c, nil
}

func (r *PersistentCatalogRepository) ListCharacters(ctx context.Context, projectID string) ([]*core.Character, error) {
	out, err := r.db.ListCharacters(ctx, projectID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list characters failed, falling back to in-memory", "err", err)
	return r.mem.ListCharacters(ctx, projectID)
}

func (r *PersistentCatalogRepository) SearchCharactersByName(ctx context.Context, projectID, name string) ([]*core.Character, error) {
	out, err := r.db.SearchCharactersByName(ctx, projectID, name)
	if err == nil {
		return out, nil
	}
	slog.Warn("db search characters failed, falling back to in-memory", "err", err)
	return r.mem.SearchCharactersByName(ctx, projectID, name)
}

func (r *PersistentCatalogRepository) PatchCharacter(ctx context.Context, projectID, slug string, fields map[string]any, now time.Time) error {
	if err := r.db.PatchCharacter(ctx, projectID, slug, fields, now); err != nil {
		return err
	}
	if err := r.mem.PatchCharacter(ctx, projectID, slug, fields, now); err != nil {
		if c, getErr := r.db.GetCharacterBySlug(ctx, projectID, slug); getErr == nil {
			_ = r.mem.UpsertCharacter(ctx, c)
		}
	}
	return nil
}

func (r *PersistentCatalogRepository) UpsertScene(ctx context.Context, s *core.Scene) error {
	_ = r.mem.UpsertScene(ctx, s)
	if err := r.db.UpsertScene(ctx, s); err != nil {
		slog.Warn("db upsert scene failed, in-memory only", "scene_id", s.ID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetScene(ctx context.Context, id string) (*core.Scene, error) {
	if s, err := r.mem.GetScene(ctx, id); err == nil {
		return s, nil
	}
	s, err := r.db.GetScene(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertScene(ctx, s)
	return s, nil
}

func (r *PersistentCatalogRepository) ListScenes(ctx context.Context, projectID string) ([]*core.Scene, error) {
	out, err := r.db.ListScenes(ctx, projectID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list scenes failed, falling back to in-memory", "err", err)
	return r.mem.ListScenes(ctx, projectID)
}

func (r *PersistentCatalogRepository) ListScenesAfter(ctx context.Context, projectID string, after int) ([]*core.Scene, error) {
	out, err := r.db.ListScenesAfter(ctx, projectID, after)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list scenes after failed, falling back to in-memory", "err", err)
	return r.mem.ListScenesAfter(ctx, projectID, after)
}

func (r *PersistentCatalogRepository) DeleteScene(ctx context.Context, id string) error {
	_ = r.mem.DeleteScene(ctx, id)
	if err := r.db.DeleteScene(ctx, id); err != nil {
		slog.Warn("db delete scene failed", "scene_id", id, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) UpsertShot(ctx context.Context, s *core.Shot) error {
	_ = r.mem.UpsertShot(ctx, s)
	if err := r.db.UpsertShot(ctx, s); err != nil {
		slog.Warn("db upsert shot failed, in-memory only", "shot_id", s.ID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetShot(ctx context.Context, id string) (*core.Shot, error) {
	if s, err := r.mem.GetShot(ctx, id); err == nil {
		return s, nil
	}
	s, err := r.db.GetShot(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertShot(ctx, s)
	return s, nil
}

func (r *PersistentCatalogRepository) ListShots(ctx context.Context, sceneID string) ([]*core.Shot, error) {
	out, err := r.db.ListShots(ctx, sceneID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list shots failed, falling back to in-memory", "err", err)
	return r.mem.ListShots(ctx, sceneID)
}

func (r *PersistentCatalogRepository) UpsertEpisode(ctx context.Context, e *core.Episode) error {
	_ = r.mem.UpsertEpisode(ctx, e)
	if err := r.db.UpsertEpisode(ctx, e); err != nil {
		slog.Warn("db upsert episode failed, in-memory only", "episode_id", e.ID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetEpisode(ctx context.Context, id string) (*core.Episode, error) {
	if e, err := r.mem.GetEpisode(ctx, id); err == nil {
		return e, nil
	}
	e, err := r.db.GetEpisode(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertEpisode(ctx, e)
	return e, nil
}

func (r *PersistentCatalogRepository) SetEpisodeScenes(ctx context.Context, episodeID string, scenes []core.EpisodeScene) error {
	_ = r.mem.SetEpisodeScenes(ctx, episodeID, scenes)
	if err := r.db.SetEpisodeScenes(ctx, episodeID, scenes); err != nil {
		slog.Warn("db set episode scenes failed, in-memory only", "episode_id", episodeID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) ListEpisodeScenes(ctx context.Context, episodeID string) ([]core.EpisodeScene, error) {
	out, err := r.db.ListEpisodeScenes(ctx, episodeID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list episode scenes failed, falling back to in-memory", "err", err)
	return r.mem.ListEpisodeScenes(ctx, episodeID)
}

func (r *PersistentCatalogRepository) UpsertCharacterSceneState(ctx context.Context, s *core.CharacterSceneState) error {
	_ = r.mem.UpsertCharacterSceneState(ctx, s)
	if err := r.db.UpsertCharacterSceneState(ctx, s); err != nil {
		slog.Warn("db upsert character scene state failed, in-memory only", "scene_id", s.SceneID, "slug", s.CharacterSlug, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetCharacterSceneState(ctx context.Context, sceneID, slug string) (*core.CharacterSceneState, error) {
	if s, err := r.mem.GetCharacterSceneState(ctx, sceneID, slug); err == nil {
		return s, nil
	}
	s, err := r.db.GetCharacterSceneState(ctx, sceneID, slug)
	if err != nil {
		return nil, ErrNotFound
	}
	_ = r.mem.UpsertCharacterSceneState(ctx, s)
	return s, nil
}

func (r *PersistentCatalogRepository) GetSceneStates(ctx context.Context, sceneID string) ([]*core.CharacterSceneState, error) {
	out, err := r.db.GetSceneStates(ctx, sceneID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db get scene states failed, falling back to in-memory", "err", err)
	return r.mem.GetSceneStates(ctx, sceneID)
}

func (r *PersistentCatalogRepository) DeleteCharacterSceneState(ctx context.Context, sceneID, slug string) error {
	_ = r.mem.DeleteCharacterSceneState(ctx, sceneID, slug)
	if err := r.db.DeleteCharacterSceneState(ctx, sceneID, slug); err != nil {
		slog.Warn("db delete character scene state failed", "scene_id", sceneID, "slug", slug, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetStateTimeline(ctx context.Context, projectID, slug string) ([]*core.CharacterSceneState, error) {
	out, err := r.db.GetStateTimeline(ctx, projectID, slug)
	if err == nil {
		return out, nil
	}
	slog.Warn("db get state timeline failed, falling back to in-memory", "err", err)
	return r.mem.GetStateTimeline(ctx, projectID, slug)
}

func (r *PersistentCatalogRepository) EnqueueRegeneration(ctx context.Context, e *core.RegenerationQueue) error {
	_ = r.mem.EnqueueRegeneration(ctx, e)
	if err := r.db.EnqueueRegeneration(ctx, e); err != nil {
		slog.Warn("db enqueue regeneration failed, in-memory only", "scene_id", e.SceneID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) ListRegenerationPending(ctx context.Context, projectID string) ([]*core.RegenerationQueue, error) {
	out, err := r.db.ListRegenerationPending(ctx, projectID)
	if err == nil {
		return out, nil
	}
	slog.Warn("db list regeneration pending failed, falling back to in-memory", "err", err)
	return r.mem.ListRegenerationPending(ctx, projectID)
}

func (r *PersistentCatalogRepository) MarkRegenerationProcessed(ctx context.Context, id string) error {
	_ = r.mem.MarkRegenerationProcessed(ctx, id)
	if err := r.db.MarkRegenerationProcessed(ctx, id); err != nil {
		slog.Warn("db mark regeneration processed failed", "id", id, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) InsertQualityFeedback(ctx context.Context, q *core.QualityFeedback) error {
	_ = r.mem.InsertQualityFeedback(ctx, q)
	if err := r.db.InsertQualityFeedback(ctx, q); err != nil {
		slog.Warn("db insert quality feedback failed, in-memory only", "generation_id", q.GenerationID, "err", err)
	}
	return nil
}

func (r *PersistentCatalogRepository) GetRecentQuality(ctx context.Context, projectID string, limit int) ([]*core.QualityFeedback, error) {
	out, err := r.db.GetRecentQuality(ctx, projectID, limit)
	if err == nil {
		return out, nil
	}
	slog.Warn("db get recent quality failed, falling back to in-memory", "err", err)
	return r.mem.GetRecentQuality(ctx, projectID, limit)
}

func (r *PersistentCatalogRepository) GetLearnedElements(ctx context.Context, projectID string) (successful, failed []string, err error) {
	successful, failed, err = r.db.GetLearnedElements(ctx, projectID)
	if err == nil {
		return successful, failed, nil
	}
	slog.Warn("db get learned elements failed, falling back to in-memory", "err", err)
	return r.mem.GetLearnedElements(ctx, projectID)
}

func (r *PersistentCatalogRepository) GetProjectStats(ctx context.Context, projectID string) (*core.ProjectStats, error) {
	stats, err := r.db.GetProjectStats(ctx, projectID)
	if err == nil {
		return stats, nil
	}
	slog.Warn("db get project stats failed, falling back to in-memory", "err", err)
	return r.mem.GetProjectStats(ctx, projectID)
}
