package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/repository"
)

type createCharacterRequest struct {
	ProjectID    string            `json:"project_id"`
	DisplayName  string            `json:"display_name"`
	Slug         string            `json:"slug"`
	DesignPrompt string            `json:"design_prompt"`
	Appearance   core.Appearance   `json:"appearance"`
	Personality  string            `json:"personality"`
	Background   string            `json:"background"`
	Role         string            `json:"role"`
	VoiceProfile core.VoiceProfile `json:"voice_profile"`
}

func (s *Server) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectID == "" || req.Slug == "" || req.DisplayName == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id, slug, and display_name are required"))
		return
	}

	now := time.Now().UTC()
	character := &core.Character{
		ID:           core.GenerateID("char"),
		ProjectID:    req.ProjectID,
		DisplayName:  req.DisplayName,
		Slug:         req.Slug,
		DesignPrompt: req.DesignPrompt,
		Appearance:   req.Appearance,
		Personality:  req.Personality,
		Background:   req.Background,
		Role:         req.Role,
		VoiceProfile: req.VoiceProfile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.catalog.UpsertCharacter(r.Context(), character); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create character", err))
		return
	}
	writeJSON(w, http.StatusCreated, character)
}

// getCharacter resolves a character addressed by its project-unique
// slug; the catalog has no other lookup key, so {id} here is the slug.
func (s *Server) getCharacter(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "id")
	projectID := r.URL.Query().Get("project_id")
	if err := validateID("id", slug); err != nil {
		writeError(w, err)
		return
	}
	if projectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	character, err := s.catalog.GetCharacterBySlug(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, characterLookupErr(slug, err))
		return
	}
	writeJSON(w, http.StatusOK, character)
}

type characterBible struct {
	Character     *core.Character                `json:"character"`
	RecentStates  []*core.CharacterSceneState     `json:"recent_states"`
}

// getCharacterBible aggregates a character's design sheet with its
// most recently touched narrative states across scenes.
func (s *Server) getCharacterBible(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "id")
	projectID := r.URL.Query().Get("project_id")
	if err := validateID("id", slug); err != nil {
		writeError(w, err)
		return
	}
	if projectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	character, err := s.catalog.GetCharacterBySlug(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, characterLookupErr(slug, err))
		return
	}
	timeline, err := s.catalog.GetStateTimeline(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "load state timeline", err))
		return
	}
	writeJSON(w, http.StatusOK, characterBible{Character: character, RecentStates: timeline})
}

// patchCharacter merges a whitelisted set of fields into an existing
// character; PatchCharacter itself enforces the whitelist.
func (s *Server) patchCharacter(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	projectID := r.URL.Query().Get("project_id")
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}
	if projectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, err)
		return
	}

	if err := s.catalog.PatchCharacter(r.Context(), projectID, slug, fields, time.Now().UTC()); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "patch character", err))
		return
	}

	character, err := s.catalog.GetCharacterBySlug(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, characterLookupErr(slug, err))
		return
	}
	writeJSON(w, http.StatusOK, character)
}

type characterDetail struct {
	Character *core.Character             `json:"character"`
	States    []*core.CharacterSceneState `json:"states"`
}

// getCharacterDetail returns a character plus its full state timeline.
func (s *Server) getCharacterDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	projectID := r.URL.Query().Get("project_id")
	if err := validateID("slug", slug); err != nil {
		writeError(w, err)
		return
	}
	if projectID == "" {
		writeError(w, apperr.New(apperr.BadInput, "project_id is required"))
		return
	}

	character, err := s.catalog.GetCharacterBySlug(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, characterLookupErr(slug, err))
		return
	}
	states, err := s.catalog.GetStateTimeline(r.Context(), projectID, slug)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "load state timeline", err))
		return
	}
	writeJSON(w, http.StatusOK, characterDetail{Character: character, States: states})
}

func characterLookupErr(slug string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "character "+slug, err)
	}
	return apperr.Wrap(apperr.Internal, "load character "+slug, err)
}
