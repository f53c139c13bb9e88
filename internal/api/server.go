// Package api is the HTTP surface (§6): a chi router exposing the
// generation pipeline, the project/character catalog, and the
// narrative state engine, grounded on the teacher's internal/api server
// setup and error-handling conventions.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/backend"
	"github.com/storyforge/orchestrator/internal/fileorg"
	"github.com/storyforge/orchestrator/internal/intent"
	"github.com/storyforge/orchestrator/internal/jobs"
	"github.com/storyforge/orchestrator/internal/monitor"
	"github.com/storyforge/orchestrator/internal/narrative"
	"github.com/storyforge/orchestrator/internal/quality"
	"github.com/storyforge/orchestrator/internal/refindex"
	"github.com/storyforge/orchestrator/internal/repository"
	"github.com/storyforge/orchestrator/internal/resolver"
	"github.com/storyforge/orchestrator/internal/worker"
)

// Server holds every component the HTTP surface dispatches into. It
// carries no business logic of its own beyond request decoding,
// validation, and response shaping.
type Server struct {
	catalog     repository.CatalogRepository
	jobMgr      *jobs.Manager
	classifier  *intent.Classifier
	resolver    *resolver.Resolver
	pool        *worker.Pool
	mon         *monitor.Monitor
	narrative   *narrative.Engine
	hooks       *narrative.Hooks
	quality     *quality.Gate
	files       *fileorg.Organizer
	backendConn *backend.Client
	index       *refindex.Client

	upgrader        websocket.Upgrader
	activeWebsockets atomic.Int64
	log             *slog.Logger
}

func NewServer(
	catalog repository.CatalogRepository,
	jobMgr *jobs.Manager,
	classifier *intent.Classifier,
	res *resolver.Resolver,
	pool *worker.Pool,
	mon *monitor.Monitor,
	narrativeEngine *narrative.Engine,
	hooks *narrative.Hooks,
	qualityGate *quality.Gate,
	files *fileorg.Organizer,
	backendConn *backend.Client,
	index *refindex.Client,
	log *slog.Logger,
) *Server {
	return &Server{
		catalog:     catalog,
		jobMgr:      jobMgr,
		classifier:  classifier,
		resolver:    res,
		pool:        pool,
		mon:         mon,
		narrative:   narrativeEngine,
		hooks:       hooks,
		quality:     qualityGate,
		files:       files,
		backendConn: backendConn,
		index:       index,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:         log,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Post("/generate", s.generate)
	r.Get("/jobs/{id}", s.getJob)
	r.Get("/jobs", s.listJobs)
	r.Delete("/jobs/{id}", s.cancelJob)
	r.Get("/health", s.health)
	r.Get("/ws/{job_id}", s.streamJobProgress)

	r.Route("/api/anime", func(r chi.Router) {
		r.Post("/projects", s.createProject)
		r.Get("/projects", s.listProjects)
		r.Get("/projects/{id}", s.getProject)

		r.Post("/characters", s.createCharacter)
		r.Get("/characters/{id}", s.getCharacter)
		r.Get("/characters/{id}/bible", s.getCharacterBible)
	})

	r.Route("/api/story", func(r chi.Router) {
		r.Patch("/characters/{slug}", s.patchCharacter)
		r.Get("/characters/{slug}/detail", s.getCharacterDetail)
	})

	r.Route("/api/narrative", func(r chi.Router) {
		r.Get("/state/{scene_id}", s.getSceneStates)
		r.Get("/state/{scene_id}/{slug}", s.getState)
		r.Put("/state/{scene_id}/{slug}", s.setState)
		r.Delete("/state/{scene_id}/{slug}", s.deleteState)
		r.Post("/state/{scene_id}/initialize", s.initializeState)
		r.Post("/state/{scene_id}/propagate", s.propagateState)
		r.Get("/timeline/{project_id}/{slug}", s.getTimeline)
		r.Get("/regeneration-queue/{project_id}", s.getRegenerationQueue)
		r.Post("/dialogue/{scene_id}/{shot_id}", s.recordDialogue)
	})

	return r
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a typed apperr.Error (or any other error,
// defaulted to Internal) into the HTTP status the boundary contract
// promises, with a JSON body of {"error": message}.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	writeJSON(w, apperr.HTTPStatus(kind), map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperr.Wrap(apperr.BadInput, "invalid request body", err)
	}
	return nil
}
