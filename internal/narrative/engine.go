package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/llmclient"
	"github.com/storyforge/orchestrator/internal/repository"
)

// Engine owns CharacterSceneState CRUD, AI initialization, and forward
// propagation.
type Engine struct {
	catalog repository.CatalogRepository
	llm     *llmclient.Client
}

func New(catalog repository.CatalogRepository, llm *llmclient.Client) *Engine {
	return &Engine{catalog: catalog, llm: llm}
}

// GetState fetches one character's state in one scene.
func (e *Engine) GetState(ctx context.Context, sceneID, slug string) (*core.CharacterSceneState, error) {
	s, err := e.catalog.GetCharacterSceneState(ctx, sceneID, slug)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "state "+sceneID+"/"+slug, err)
	}
	return s, nil
}

// GetSceneStates lists every character's state in one scene.
func (e *Engine) GetSceneStates(ctx context.Context, sceneID string) ([]*core.CharacterSceneState, error) {
	states, err := e.catalog.GetSceneStates(ctx, sceneID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list scene states", err)
	}
	return states, nil
}

// SetState merges a partial update into the existing state (or starts
// from a zero-value state), bumps its version, and stamps source.
func (e *Engine) SetState(ctx context.Context, sceneID, slug string, partial core.PartialCharacterSceneState, source core.StateSource) (*core.CharacterSceneState, error) {
	existing, err := e.catalog.GetCharacterSceneState(ctx, sceneID, slug)
	if err != nil {
		existing = &core.CharacterSceneState{SceneID: sceneID, CharacterSlug: slug}
	}

	merged := mergePartial(*existing, partial)
	merged.StateSource = source
	merged.Version = existing.Version + 1

	if err := e.catalog.UpsertCharacterSceneState(ctx, &merged); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "set state", err)
	}
	return &merged, nil
}

func mergePartial(base core.CharacterSceneState, p core.PartialCharacterSceneState) core.CharacterSceneState {
	if p.Clothing != nil {
		base.Clothing = *p.Clothing
	}
	if p.HairState != nil {
		base.HairState = *p.HairState
	}
	if p.Injuries != nil {
		base.Injuries = *p.Injuries
	}
	if p.Accessories != nil {
		base.Accessories = *p.Accessories
	}
	if p.BodyState != nil {
		base.BodyState = *p.BodyState
	}
	if p.EmotionalState != nil {
		base.EmotionalState = *p.EmotionalState
	}
	if p.EnergyLevel != nil {
		base.EnergyLevel = *p.EnergyLevel
	}
	if p.RelationshipContext != nil {
		base.RelationshipContext = p.RelationshipContext
	}
	if p.LocationInScene != nil {
		base.LocationInScene = *p.LocationInScene
	}
	if p.Carrying != nil {
		base.Carrying = *p.Carrying
	}
	return base
}

// DeleteState removes a character's state row for one scene.
func (e *Engine) DeleteState(ctx context.Context, sceneID, slug string) error {
	if err := e.catalog.DeleteCharacterSceneState(ctx, sceneID, slug); err != nil {
		return apperr.Wrap(apperr.Internal, "delete state", err)
	}
	return nil
}

type initializedState struct {
	CharacterSlug  string   `json:"character_slug"`
	Clothing       string   `json:"clothing"`
	HairState      string   `json:"hair_state"`
	BodyState      string   `json:"body_state"`
	EmotionalState string   `json:"emotional_state"`
	EnergyLevel    string   `json:"energy_level"`
	Carrying       []string `json:"carrying"`
}

// InitializeFromDescription asks the LLM collaborator to propose an
// initial state for every character present in the scene's shots, and
// persists each with source="ai_initialized".
func (e *Engine) InitializeFromDescription(ctx context.Context, sceneID, projectID string) ([]*core.CharacterSceneState, error) {
	scene, err := e.catalog.GetScene(ctx, sceneID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "scene "+sceneID, err)
	}

	shots, err := e.catalog.ListShots(ctx, sceneID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list shots", err)
	}

	slugs := map[string]bool{}
	for _, shot := range shots {
		for _, slug := range shot.CharactersPresent {
			slugs[slug] = true
		}
	}

	var out []*core.CharacterSceneState
	for slug := range slugs {
		character, err := e.catalog.GetCharacterBySlug(ctx, projectID, slug)
		if err != nil {
			continue
		}

		prompt := fmt.Sprintf(
			"Scene: %s\nLocation: %s\nMood: %s\nCharacter design: %s\n\n"+
				"Propose this character's narrative state at the start of this scene "+
				"as a JSON object with fields clothing, hair_state, body_state, "+
				"emotional_state, energy_level, carrying.",
			scene.Description, scene.Location, scene.Mood, character.DesignPrompt,
		)

		var parsed initializedState
		ok, err := e.llm.QueryJSON(ctx, prompt, nil, &parsed)
		if err != nil || !ok {
			continue
		}

		state := &core.CharacterSceneState{
			SceneID: sceneID, CharacterSlug: slug,
			Clothing: parsed.Clothing, HairState: parsed.HairState,
			BodyState: core.BodyState(parsed.BodyState), EmotionalState: parsed.EmotionalState,
			EnergyLevel: core.EnergyLevel(parsed.EnergyLevel), Carrying: parsed.Carrying,
			StateSource: core.StateSourceAIInitialized, Version: 1,
		}
		if err := e.catalog.UpsertCharacterSceneState(ctx, state); err != nil {
			continue
		}
		out = append(out, state)
	}
	return out, nil
}

// PropagateForward walks every downstream scene of sourceSceneID (in
// ascending scene_number order) for every character that has a state in
// the source scene, carrying a rolling current_state forward and
// applying decay at each step, except where a downstream scene already
// carries a manual override.
func (e *Engine) PropagateForward(ctx context.Context, sourceSceneID, projectID string) ([]*core.CharacterSceneState, error) {
	source, err := e.catalog.GetScene(ctx, sourceSceneID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "scene "+sourceSceneID, err)
	}

	sourceStates, err := e.catalog.GetSceneStates(ctx, sourceSceneID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load source states", err)
	}

	downstream, err := e.catalog.ListScenesAfter(ctx, projectID, source.SceneNumber)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list downstream scenes", err)
	}

	var out []*core.CharacterSceneState
	for _, sourceState := range sourceStates {
		current := *sourceState
		for _, scene := range downstream {
			existing, err := e.catalog.GetCharacterSceneState(ctx, scene.ID, sourceState.CharacterSlug)
			if err == nil && existing.StateSource == core.StateSourceManual {
				// The manual row wins for whichever fields it actually
				// set; fields it left untouched keep rolling forward
				// from current undecayed, so the next non-manual scene
				// resumes their natural decay trajectory instead of
				// jumping an extra step.
				current = overlayManual(current, *existing)
				continue
			}

			decayed := applyDecay(current)
			decayed.SceneID = scene.ID
			decayed.StateSource = core.StateSourcePropagated
			decayed.Version = 1
			if err == nil {
				decayed.Version = existing.Version + 1
			}

			if err := e.catalog.UpsertCharacterSceneState(ctx, &decayed); err != nil {
				continue
			}
			out = append(out, &decayed)
			current = decayed
		}
	}
	return out, nil
}

// overlayManual merges a manually-overridden row onto the rolling
// propagation state: only the fields the manual edit actually set
// (non-zero in the stored row) replace the current value; every other
// field is carried through unchanged so it keeps decaying from its own
// trajectory on the next non-manual scene rather than inheriting the
// manual row's zero defaults.
func overlayManual(current, manual core.CharacterSceneState) core.CharacterSceneState {
	merged := current
	if manual.Clothing != "" {
		merged.Clothing = manual.Clothing
	}
	if manual.HairState != "" {
		merged.HairState = manual.HairState
	}
	if len(manual.Injuries) > 0 {
		merged.Injuries = manual.Injuries
	}
	if len(manual.Accessories) > 0 {
		merged.Accessories = manual.Accessories
	}
	if manual.BodyState != "" {
		merged.BodyState = manual.BodyState
	}
	if manual.EmotionalState != "" {
		merged.EmotionalState = manual.EmotionalState
	}
	if manual.EnergyLevel != "" {
		merged.EnergyLevel = manual.EnergyLevel
	}
	if len(manual.RelationshipContext) > 0 {
		merged.RelationshipContext = manual.RelationshipContext
	}
	if manual.LocationInScene != "" {
		merged.LocationInScene = manual.LocationInScene
	}
	if len(manual.Carrying) > 0 {
		merged.Carrying = manual.Carrying
	}
	return merged
}

func newRegenerationID() string { return uuid.NewString() }

func timeNow() string { return time.Now().UTC().Format(time.RFC3339) }
