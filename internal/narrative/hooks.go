package narrative

import (
	"context"
	"log/slog"

	"github.com/storyforge/orchestrator/internal/core"
)

// changeSensitiveShotFields are the shot fields whose change invalidates
// any rendered output for that shot, per the scene_updated/shot_updated
// hook contract.
var changeSensitiveShotFields = map[string]bool{
	"motion_prompt": true, "characters_present": true, "shot_type": true, "camera_angle": true,
}

// Hooks reacts to scene/shot/episode edits and character-state writes,
// propagating narrative state and enqueuing regeneration work. All
// handlers are idempotent: double delivery never produces duplicate
// regeneration rows because EnqueueRegeneration is an ON CONFLICT DO
// NOTHING upsert at the catalog layer.
type Hooks struct {
	engine *Engine
	log    *slog.Logger
}

func NewHooks(engine *Engine, log *slog.Logger) *Hooks {
	return &Hooks{engine: engine, log: log}
}

// OnSceneUpdated re-propagates state from a scene that already has any,
// then queues regeneration for completed downstream shots.
func (h *Hooks) OnSceneUpdated(ctx context.Context, sceneID, projectID string) {
	states, err := h.engine.GetSceneStates(ctx, sceneID)
	if err != nil {
		h.log.Warn("narrative hook: load scene states failed", "scene_id", sceneID, "err", err)
		return
	}
	if len(states) == 0 {
		return
	}

	propagated, err := h.engine.PropagateForward(ctx, sceneID, projectID)
	if err != nil {
		h.log.Warn("narrative hook: propagate_forward failed", "scene_id", sceneID, "err", err)
		return
	}
	h.log.Info("narrative hook: scene updated, propagated states", "scene_id", sceneID, "count", len(propagated))

	scene, err := h.engine.catalog.GetScene(ctx, sceneID)
	if err != nil {
		return
	}
	downstream, err := h.engine.catalog.ListScenesAfter(ctx, projectID, scene.SceneNumber)
	if err != nil {
		return
	}

	queued := 0
	for _, ds := range downstream {
		shots, err := h.engine.catalog.ListShots(ctx, ds.ID)
		if err != nil {
			continue
		}
		for _, shot := range shots {
			if (shot.Status != core.GenStatusCompleted && shot.Status != core.GenStatusAcceptedBest) || shot.OutputVideoPath == "" {
				continue
			}
			h.enqueue(ctx, ds.ID, shot.ID, "upstream scene edited", 3, sceneID, "scene_description")
			queued++
		}
	}
	if queued > 0 {
		h.log.Info("narrative hook: queued downstream shots for regeneration", "scene_id", sceneID, "queued", queued)
	}
}

// OnShotUpdated queues regeneration when a content-changing field was
// touched and the shot already has rendered output.
func (h *Hooks) OnShotUpdated(ctx context.Context, sceneID, shotID string, changedFields []string) {
	touched := false
	for _, f := range changedFields {
		if changeSensitiveShotFields[f] {
			touched = true
			break
		}
	}
	if !touched {
		return
	}

	shot, err := h.engine.catalog.GetShot(ctx, shotID)
	if err != nil || shot.OutputVideoPath == "" {
		return
	}
	h.enqueue(ctx, sceneID, shotID, "shot content changed", 5, "", "")
}

// OnEpisodeUpdated queues regeneration for every completed scene of the
// episode.
func (h *Hooks) OnEpisodeUpdated(ctx context.Context, episodeID string) {
	scenes, err := h.engine.catalog.ListEpisodeScenes(ctx, episodeID)
	if err != nil {
		return
	}
	for _, es := range scenes {
		scene, err := h.engine.catalog.GetScene(ctx, es.SceneID)
		if err != nil || scene.GenerationStatus != core.GenStatusCompleted {
			continue
		}
		h.enqueue(ctx, scene.ID, "", "episode restructured", 2, "", "")
	}
}

// OnStateUpdated re-propagates from a scene whenever a state write's
// source is manual.
func (h *Hooks) OnStateUpdated(ctx context.Context, sceneID, projectID string, source core.StateSource) {
	if source != core.StateSourceManual {
		return
	}
	if _, err := h.engine.PropagateForward(ctx, sceneID, projectID); err != nil {
		h.log.Warn("narrative hook: propagate_forward after manual edit failed", "scene_id", sceneID, "err", err)
	}
}

// OnDialogueRecorded stamps the scene's dialogue audio path once an
// external voice-synthesis collaborator has produced it, and enqueues
// the shot for regeneration so the render picks up the new audio. Voice
// synthesis itself is out of scope here: this only records the result.
func (h *Hooks) OnDialogueRecorded(ctx context.Context, sceneID, shotID, audioPath string) {
	scene, err := h.engine.catalog.GetScene(ctx, sceneID)
	if err != nil {
		h.log.Warn("narrative hook: dialogue recorded for unknown scene", "scene_id", sceneID, "err", err)
		return
	}
	scene.DialogueAudioPath = audioPath
	if err := h.engine.catalog.UpsertScene(ctx, scene); err != nil {
		h.log.Warn("narrative hook: stamp dialogue audio path failed", "scene_id", sceneID, "err", err)
		return
	}
	h.enqueue(ctx, sceneID, shotID, "dialogue audio recorded", 4, "", "")
	h.log.Info("narrative hook: dialogue recorded", "shot_id", shotID, "audio_path", audioPath)
}

func (h *Hooks) enqueue(ctx context.Context, sceneID, shotID, reason string, priority int, sourceSceneID, sourceField string) {
	entry := &core.RegenerationQueue{
		ID: newRegenerationID(), SceneID: sceneID, ShotID: shotID,
		Reason: reason, Priority: priority, SourceSceneID: sourceSceneID, SourceField: sourceField,
		Status: "pending", CreatedAt: timeNow(),
	}
	if err := h.engine.catalog.EnqueueRegeneration(ctx, entry); err != nil {
		h.log.Warn("narrative hook: enqueue regeneration failed", "scene_id", sceneID, "err", err)
	}
}
