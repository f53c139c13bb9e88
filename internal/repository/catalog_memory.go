package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/storyforge/orchestrator/internal/core"
)

// MemoryCatalogRepository is the memory-only CatalogRepository used
// when no database is configured, and the fast-path cache layered
// underneath PersistentCatalogRepository when one is.
type MemoryCatalogRepository struct {
	mu sync.RWMutex

	projects   map[string]*core.Project
	styles     map[string]*core.GenerationStyle
	characters map[string]*core.Character // keyed by "projectID/slug"
	scenes     map[string]*core.Scene
	shots      map[string]*core.Shot
	episodes   map[string]*core.Episode
	episodeScenes map[string][]core.EpisodeScene
	states     map[string]*core.CharacterSceneState // keyed by "sceneID/slug"
	regen      map[string]*core.RegenerationQueue
	quality    map[string]*core.QualityFeedback // keyed by project_id for recency lists, id unique
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		projects:      map[string]*core.Project{},
		styles:        map[string]*core.GenerationStyle{},
		characters:    map[string]*core.Character{},
		scenes:        map[string]*core.Scene{},
		shots:         map[string]*core.Shot{},
		episodes:      map[string]*core.Episode{},
		episodeScenes: map[string][]core.EpisodeScene{},
		states:        map[string]*core.CharacterSceneState{},
		regen:         map[string]*core.RegenerationQueue{},
		quality:       map[string]*core.QualityFeedback{},
	}
}

func characterKey(projectID, slug string) string { return projectID + "/" + slug }
func stateKey(sceneID, slug string) string        { return sceneID + "/" + slug }

func (r *MemoryCatalogRepository) UpsertProject(_ context.Context, p *core.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return nil
}

func (r *MemoryCatalogRepository) GetProject(_ context.Context, id string) (*core.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *MemoryCatalogRepository) ListProjects(_ context.Context) ([]*core.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCatalogRepository) UpsertGenerationStyle(_ context.Context, s *core.GenerationStyle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.styles[s.Name] = s
	return nil
}

func (r *MemoryCatalogRepository) GetGenerationStyle(_ context.Context, name string) (*core.GenerationStyle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *MemoryCatalogRepository) UpsertCharacter(_ context.Context, c *core.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.characters[characterKey(c.ProjectID, c.Slug)] = c
	return nil
}

func (r *MemoryCatalogRepository) GetCharacterBySlug(_ context.Context, projectID, slug string) (*core.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.characters[characterKey(projectID, slug)]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (r *MemoryCatalogRepository) ListCharacters(_ context.Context, projectID string) ([]*core.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Character
	for _, c := range r.characters {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCatalogRepository) SearchCharactersByName(_ context.Context, projectID, name string) ([]*core.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lowerName := toLower(name)
	var exact, partial []*core.Character
	for _, c := range r.characters {
		if c.ProjectID != projectID {
			continue
		}
		lowerDisplay := toLower(c.DisplayName)
		if lowerDisplay == lowerName {
			exact = append(exact, c)
		} else if contains(lowerDisplay, lowerName) {
			partial = append(partial, c)
		}
	}
	return append(exact, partial...), nil
}

func (r *MemoryCatalogRepository) PatchCharacter(_ context.Context, projectID, slug string, fields map[string]any, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := characterKey(projectID, slug)
	c, ok := r.characters[key]
	if !ok {
		return ErrNotFound
	}
	applyCharacterPatch(c, fields)
	c.UpdatedAt = now
	return nil
}

func (r *MemoryCatalogRepository) UpsertScene(_ context.Context, s *core.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.ID] = s
	return nil
}

func (r *MemoryCatalogRepository) GetScene(_ context.Context, id string) (*core.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *MemoryCatalogRepository) ListScenes(_ context.Context, projectID string) ([]*core.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Scene
	for _, s := range r.scenes {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

func (r *MemoryCatalogRepository) ListScenesAfter(_ context.Context, projectID string, after int) ([]*core.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Scene
	for _, s := range r.scenes {
		if s.ProjectID == projectID && s.SceneNumber > after {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

func (r *MemoryCatalogRepository) DeleteScene(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scenes, id)
	return nil
}

func (r *MemoryCatalogRepository) UpsertShot(_ context.Context, s *core.Shot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots[s.ID] = s
	return nil
}

func (r *MemoryCatalogRepository) GetShot(_ context.Context, id string) (*core.Shot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *MemoryCatalogRepository) ListShots(_ context.Context, sceneID string) ([]*core.Shot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Shot
	for _, s := range r.shots {
		if s.SceneID == sceneID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShotNumber < out[j].ShotNumber })
	return out, nil
}

func (r *MemoryCatalogRepository) UpsertEpisode(_ context.Context, e *core.Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes[e.ID] = e
	return nil
}

func (r *MemoryCatalogRepository) GetEpisode(_ context.Context, id string) (*core.Episode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (r *MemoryCatalogRepository) SetEpisodeScenes(_ context.Context, episodeID string, scenes []core.EpisodeScene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodeScenes[episodeID] = scenes
	return nil
}

func (r *MemoryCatalogRepository) ListEpisodeScenes(_ context.Context, episodeID string) ([]core.EpisodeScene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.episodeScenes[episodeID], nil
}

func (r *MemoryCatalogRepository) UpsertCharacterSceneState(_ context.Context, s *core.CharacterSceneState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[stateKey(s.SceneID, s.CharacterSlug)] = s
	return nil
}

func (r *MemoryCatalogRepository) GetCharacterSceneState(_ context.Context, sceneID, slug string) (*core.CharacterSceneState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[stateKey(sceneID, slug)]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *MemoryCatalogRepository) GetSceneStates(_ context.Context, sceneID string) ([]*core.CharacterSceneState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.CharacterSceneState
	for _, s := range r.states {
		if s.SceneID == sceneID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryCatalogRepository) DeleteCharacterSceneState(_ context.Context, sceneID, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, stateKey(sceneID, slug))
	return nil
}

func (r *MemoryCatalogRepository) GetStateTimeline(_ context.Context, projectID, slug string) ([]*core.CharacterSceneState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.CharacterSceneState
	for _, s := range r.states {
		if s.CharacterSlug != slug {
			continue
		}
		scene, ok := r.scenes[s.SceneID]
		if !ok || scene.ProjectID != projectID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.scenes[out[i].SceneID].SceneNumber < r.scenes[out[j].SceneID].SceneNumber
	})
	return out, nil
}

func (r *MemoryCatalogRepository) EnqueueRegeneration(_ context.Context, e *core.RegenerationQueue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idempotencyKey := fmt.Sprintf("%s|%s|%s|%s", e.SceneID, e.ShotID, e.SourceSceneID, e.SourceField)
	for _, existing := range r.regen {
		existingKey := fmt.Sprintf("%s|%s|%s|%s", existing.SceneID, existing.ShotID, existing.SourceSceneID, existing.SourceField)
		if existingKey == idempotencyKey {
			return nil // duplicate, no-op per ON CONFLICT DO NOTHING semantics
		}
	}
	r.regen[e.ID] = e
	return nil
}

func (r *MemoryCatalogRepository) ListRegenerationPending(_ context.Context, projectID string) ([]*core.RegenerationQueue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.RegenerationQueue
	for _, e := range r.regen {
		if e.Status != "pending" {
			continue
		}
		scene, ok := r.scenes[e.SceneID]
		if !ok || scene.ProjectID != projectID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (r *MemoryCatalogRepository) MarkRegenerationProcessed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.regen[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = "processed"
	return nil
}

func (r *MemoryCatalogRepository) InsertQualityFeedback(_ context.Context, q *core.QualityFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.quality[q.GenerationID]; exists {
		return nil
	}
	r.quality[q.GenerationID] = q
	return nil
}

func (r *MemoryCatalogRepository) GetRecentQuality(_ context.Context, projectID string, limit int) ([]*core.QualityFeedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.QualityFeedback
	for _, q := range r.quality {
		if q.ProjectID == projectID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryCatalogRepository) GetLearnedElements(_ context.Context, projectID string) (successful, failed []string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen, failedSeen := map[string]bool{}, map[string]bool{}
	for _, q := range r.quality {
		if q.ProjectID != projectID {
			continue
		}
		for _, e := range q.SuccessfulElements {
			if !seen[e] {
				seen[e] = true
				successful = append(successful, e)
			}
		}
		for _, e := range q.FailedElements {
			if !failedSeen[e] {
				failedSeen[e] = true
				failed = append(failed, e)
			}
		}
	}
	return successful, failed, nil
}

func (r *MemoryCatalogRepository) GetProjectStats(_ context.Context, projectID string) (*core.ProjectStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &core.ProjectStats{}
	var passCount int
	var scoreSum float64
	for _, q := range r.quality {
		if q.ProjectID != projectID {
			continue
		}
		stats.TotalGenerations++
		scoreSum += q.QualityScore
		if q.ContractPassed {
			passCount++
		}
	}
	if stats.TotalGenerations > 0 {
		stats.PassRate = float64(passCount) / float64(stats.TotalGenerations)
		stats.AverageQuality = scoreSum / float64(stats.TotalGenerations)
	}
	return stats, nil
}

// applyCharacterPatch mirrors catalogdb's PatchCharacter column set so
// the in-memory cache and the database agree on which fields a patch
// touches and how nested values are re-decoded.
func applyCharacterPatch(c *core.Character, fields map[string]any) {
	for name, value := range fields {
		switch name {
		case "display_name":
			if s, ok := value.(string); ok {
				c.DisplayName = s
			}
		case "design_prompt":
			if s, ok := value.(string); ok {
				c.DesignPrompt = s
			}
		case "personality":
			if s, ok := value.(string); ok {
				c.Personality = s
			}
		case "background":
			if s, ok := value.(string); ok {
				c.Background = s
			}
		case "role":
			if s, ok := value.(string); ok {
				c.Role = s
			}
		case "lora_path":
			if s, ok := value.(string); ok {
				c.LoraPath = s
			}
		case "lora_trigger":
			if s, ok := value.(string); ok {
				c.LoraTrigger = s
			}
		case "appearance":
			reencode(value, &c.Appearance)
		case "personality_tags":
			reencode(value, &c.PersonalityTags)
		case "relationships":
			reencode(value, &c.Relationships)
		case "voice_profile":
			reencode(value, &c.VoiceProfile)
		}
	}
}

// reencode round-trips a patch value through JSON so callers can pass
// either a typed struct or a generic map[string]any for nested fields.
func reencode(value any, target any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = json.Unmarshal(encoded, target)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
