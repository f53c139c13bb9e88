package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

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

func testServer(t *testing.T) (http.Handler, repository.CatalogRepository) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog := repository.NewMemoryCatalogRepository()
	jobMgr := jobs.New(repository.NewMemoryJobRepository(), log)
	classifier := intent.NewClassifier(nil)
	res := resolver.New(catalog, nil, nil, nil, "", "", t.TempDir())
	backendConn := backend.New("http://127.0.0.1:1", 1000)
	mon := monitor.New(backendConn, jobMgr, nil, log)
	pool := worker.New(jobMgr, backendConn, mon, 1, 10, log)
	narrativeEngine := narrative.New(catalog, nil)
	hooks := narrative.NewHooks(narrativeEngine, log)
	qualityGate := quality.New()
	organizer, err := fileorg.New(t.TempDir())
	if err != nil {
		t.Fatalf("new organizer: %v", err)
	}
	index := refindex.New("http://127.0.0.1:1", "refs")

	srv := NewServer(catalog, jobMgr, classifier, res, pool, mon, narrativeEngine, hooks, qualityGate, organizer, backendConn, index, log)
	return srv.Handler(), catalog
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetProject(t *testing.T) {
	h, _ := testServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/anime/projects", map[string]any{"name": "My Anime"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	json.Unmarshal(rec.Body.Bytes(), &created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected a generated project id")
	}

	rec = doRequest(t, h, http.MethodGet, "/api/anime/projects/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/api/anime/projects", map[string]any{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing name, got %d", rec.Code)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/anime/projects/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAndGetCharacter(t *testing.T) {
	h, catalog := testServer(t)
	_ = catalog

	rec := doRequest(t, h, http.MethodPost, "/api/anime/characters", map[string]any{
		"project_id": "proj-1", "display_name": "Kai", "slug": "kai",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/anime/characters/kai?project_id=proj-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCharacterRequiresProjectSlugAndName(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/api/anime/characters", map[string]any{"display_name": "Kai"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCharacterRequiresProjectID(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/anime/characters/kai", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without project_id, got %d", rec.Code)
	}
}

func TestJobNotFoundReturns404(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/jobs/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListJobsEmpty(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var jobList []any
	json.Unmarshal(rec.Body.Bytes(), &jobList)
	if len(jobList) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobList))
	}
}

func TestHealthReportsDegradedWhenBackendUnreachable(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status with an unreachable backend, got %q", resp.Status)
	}
	if resp.ModelPreloaded {
		t.Fatal("expected model_preloaded=false")
	}
}

func TestGenerateEndToEndCreatesAndEnqueuesJob(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/generate", map[string]any{
		"prompt": "a portrait of Kai standing in the rain",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.JobID == "" {
		t.Fatal("expected a generated job_id")
	}
	if resp.Status != "queued" {
		t.Fatalf("expected status=queued, got %q", resp.Status)
	}
	if resp.WebsocketURL != "/ws/"+resp.JobID {
		t.Fatalf("expected a matching websocket_url, got %q", resp.WebsocketURL)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/generate", map[string]any{"prompt": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty prompt, got %d", rec.Code)
	}
}

func TestCancelJobTransitionsToCancelled(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/generate", map[string]any{"prompt": "a portrait of Kai"})
	var created generateResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doRequest(t, h, http.MethodDelete, "/jobs/"+created.JobID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var job map[string]any
	json.Unmarshal(rec.Body.Bytes(), &job)
	if job["status"] != "cancelled" {
		t.Fatalf("expected status=cancelled, got %v", job["status"])
	}
}

func TestCancelJobRejectsAlreadyTerminalJob(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/generate", map[string]any{"prompt": "a portrait of Kai"})
	var created generateResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	doRequest(t, h, http.MethodDelete, "/jobs/"+created.JobID, nil)
	rec = doRequest(t, h, http.MethodDelete, "/jobs/"+created.JobID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 cancelling an already-terminal job, got %d", rec.Code)
	}
}

func TestSetAndGetNarrativeState(t *testing.T) {
	h, _ := testServer(t)

	rec := doRequest(t, h, http.MethodPut, "/api/narrative/state/scene-1/kai", map[string]any{"body_state": "wet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state map[string]any
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state["body_state"] != "wet" {
		t.Fatalf("expected body_state=wet, got %v", state)
	}
	if state["state_source"] != "manual" {
		t.Fatalf("expected state_source=manual, got %v", state["state_source"])
	}

	rec = doRequest(t, h, http.MethodGet, "/api/narrative/state/scene-1/kai", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetNarrativeStateNotFound(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/narrative/state/scene-1/kai", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteNarrativeState(t *testing.T) {
	h, _ := testServer(t)
	doRequest(t, h, http.MethodPut, "/api/narrative/state/scene-1/kai", map[string]any{"body_state": "wet"})

	rec := doRequest(t, h, http.MethodDelete, "/api/narrative/state/scene-1/kai", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/narrative/state/scene-1/kai", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after deletion, got %d", rec.Code)
	}
}

func TestGetRegenerationQueueEmpty(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/narrative/regeneration-queue/proj-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var pending []any
	json.Unmarshal(rec.Body.Bytes(), &pending)
	if len(pending) != 0 {
		t.Fatalf("expected no pending regenerations, got %d", len(pending))
	}
}

func TestGetTimelineForUnknownCharacterIsEmpty(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/narrative/timeline/proj-1/kai", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInitializeStateRequiresProjectID(t *testing.T) {
	h, _ := testServer(t)
	rec := doRequest(t, h, http.MethodPost, "/api/narrative/state/scene-1/initialize", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without project_id, got %d", rec.Code)
	}
}
