package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
)

func (s *Server) getSceneStates(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	states, err := s.narrative.GetSceneStates(r.Context(), sceneID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	slug := chi.URLParam(r, "slug")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}
	state, err := s.narrative.GetState(r.Context(), sceneID, slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) setState(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	slug := chi.URLParam(r, "slug")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}

	var partial core.PartialCharacterSceneState
	if err := decodeJSON(r, &partial); err != nil {
		writeError(w, err)
		return
	}

	state, err := s.narrative.SetState(r.Context(), sceneID, slug, partial, core.StateSourceManual)
	if err != nil {
		writeError(w, err)
		return
	}

	scene, err := s.catalog.GetScene(r.Context(), sceneID)
	if err == nil {
		s.hooks.OnStateUpdated(r.Context(), sceneID, scene.ProjectID, core.StateSourceManual)
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteState(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	slug := chi.URLParam(r, "slug")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}
	if err := s.narrative.DeleteState(r.Context(), sceneID, slug); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type initializeStateRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) initializeState(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	var req initializeStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	states, err := s.narrative.InitializeFromDescription(r.Context(), sceneID, req.ProjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

type propagateStateRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) propagateState(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	var req propagateStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	states, err := s.narrative.PropagateForward(r.Context(), sceneID, req.ProjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	slug := chi.URLParam(r, "slug")
	if err := validateID("project_id", projectID); err != nil {
		writeError(w, err)
		return
	}
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}
	timeline, err := s.catalog.GetStateTimeline(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "load timeline", err))
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

type recordDialogueRequest struct {
	AudioPath string `json:"audio_path"`
}

// recordDialogue is the voice-synthesis collaborator's completion
// callback: once it has rendered a shot's dialogue audio out of band,
// it reports the resulting path here so the narrative engine can stamp
// the scene and queue the shot for regeneration.
func (s *Server) recordDialogue(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")
	shotID := chi.URLParam(r, "shot_id")
	if err := validateID("scene_id", sceneID); err != nil {
		writeError(w, err)
		return
	}
	if err := validateID("shot_id", shotID); err != nil {
		writeError(w, err)
		return
	}

	var req recordDialogueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AudioPath == "" {
		writeError(w, apperr.New(apperr.BadInput, "audio_path is required"))
		return
	}

	s.hooks.OnDialogueRecorded(r.Context(), sceneID, shotID, req.AudioPath)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getRegenerationQueue(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if err := validateID("project_id", projectID); err != nil {
		writeError(w, err)
		return
	}
	pending, err := s.catalog.ListRegenerationPending(r.Context(), projectID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list regeneration queue", err))
		return
	}
	writeJSON(w, http.StatusOK, pending)
}
