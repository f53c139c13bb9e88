package repository

import (
	"context"
	"time"

	"github.com/storyforge/orchestrator/internal/core"
)

// CatalogRepository is the persistence contract for every entity in
// the catalog store besides jobs (which get their own dedicated
// JobRepository because of C8's hot-path caching requirements).
type CatalogRepository interface {
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
