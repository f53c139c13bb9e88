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

type createProjectRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DefaultStyle string `json:"default_style"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, apperr.New(apperr.BadInput, "name is required"))
		return
	}

	now := time.Now().UTC()
	project := &core.Project{
		ID:           core.GenerateID("proj"),
		Name:         req.Name,
		Description:  req.Description,
		DefaultStyle: req.DefaultStyle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.catalog.UpsertProject(r.Context(), project); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create project", err))
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.catalog.ListProjects(r.Context())
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list projects", err))
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validateID("id", id); err != nil {
		writeError(w, err)
		return
	}
	project, err := s.catalog.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, apperr.Wrap(apperr.NotFound, "project "+id, err))
		} else {
			writeError(w, apperr.Wrap(apperr.Internal, "load project "+id, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, project)
}
