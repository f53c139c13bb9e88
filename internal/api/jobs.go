package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
)

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validateID("id", id); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.jobMgr.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	status := core.JobStatus(r.URL.Query().Get("status"))

	jobList, err := s.jobMgr.ListJobs(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobList)
}

// cancelJob implements the cancel_job contract: the in-memory status
// flips to cancelled immediately, status monitoring stops within one
// poll cycle (Untrack), and the backend is asked to interrupt on a
// best-effort basis.
func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validateID("id", id); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	job, err := s.jobMgr.GetJob(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Status.Terminal() {
		writeError(w, apperr.New(apperr.Conflict, "job is already in a terminal state"))
		return
	}

	updated, err := s.jobMgr.UpdateStatus(ctx, id, core.JobCancelled, "", "", "Cancelled by user")
	if err != nil {
		writeError(w, err)
		return
	}
	s.mon.Untrack(id)
	s.mon.Complete(id)

	go func() {
		_ = s.backendConn.Interrupt(ctx)
	}()

	writeJSON(w, http.StatusOK, updated)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
