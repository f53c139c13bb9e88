package refindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpsertRejectsPointsMissingRequiredPayloadFields(t *testing.T) {
	c := New("http://unused", "refs")
	err := c.Upsert(context.Background(), []Point{
		{ID: "1", Payload: Payload{Type: "character"}}, // missing source_table, source_id
	})
	if err == nil {
		t.Fatal("expected an error for a point missing required payload fields")
	}
}

func TestUpsertSendsWireShapedPoints(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/refs/points" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "refs")
	err := c.Upsert(context.Background(), []Point{
		{ID: "1", Vector: []float32{0.1, 0.2}, Payload: Payload{Type: "character", SourceTable: "characters", SourceID: "char-1"}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("expected 1 wire point, got %+v", captured)
	}
}

func TestSearchParsesReferenceOnlyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/refs/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.92, "payload": map[string]any{"type": "scene", "source_table": "scenes", "source_id": "scene-1", "display_name": "The Duel"}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "refs")
	results, err := c.Search(context.Background(), []float32{0.1, 0.2}, 5, "scene")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.SourceTable != "scenes" || r.SourceID != "scene-1" || r.Type != "scene" || r.DisplayName != "The Duel" {
		t.Fatalf("expected a reference-only result, got %+v", r)
	}
	if r.Score != 0.92 {
		t.Fatalf("expected score 0.92, got %f", r.Score)
	}
}

func TestDoSurfacesUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "refs")
	if err := c.CreateCollection(context.Background(), 64); err == nil {
		t.Fatal("expected an error on a 500 response")
	}
}

func TestDropCollectionSendsDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/collections/refs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "refs")
	if err := c.DropCollection(context.Background()); err != nil {
		t.Fatalf("drop collection: %v", err)
	}
}
