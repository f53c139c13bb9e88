package refindex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/repository"
)

func TestRebuildIndexesCharactersLorasAndScenes(t *testing.T) {
	var upsertCalls, dropCalls, createCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			dropCalls++
		case r.Method == http.MethodPut && r.URL.Path == "/collections/refs":
			createCalls++
		case r.Method == http.MethodPut:
			upsertCalls++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	catalog := repository.NewMemoryCatalogRepository()
	ctx := context.Background()
	catalog.UpsertCharacter(ctx, &core.Character{ID: "c1", ProjectID: "p1", DisplayName: "Kai", Slug: "kai", LoraTrigger: "kai_character"})
	catalog.UpsertCharacter(ctx, &core.Character{ID: "c2", ProjectID: "p1", DisplayName: "Mira", Slug: "mira"})
	catalog.UpsertScene(ctx, &core.Scene{ID: "s1", ProjectID: "p1", SceneNumber: 1, Title: "The Duel"})

	index := New(srv.URL, "refs")
	rebuilder := NewRebuilder(index, catalog, NewHashEmbedder(32), 32)

	indexed, err := rebuilder.Rebuild(ctx, "p1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	// 2 characters + 1 lora (Kai only) + 1 scene = 4 points
	if indexed != 4 {
		t.Fatalf("expected 4 points indexed, got %d", indexed)
	}
	if dropCalls != 1 || createCalls != 1 || upsertCalls != 1 {
		t.Fatalf("expected 1 drop, 1 create, 1 upsert call, got %d/%d/%d", dropCalls, createCalls, upsertCalls)
	}
}

func TestRebuildSkipsUpsertWhenNothingToIndex(t *testing.T) {
	var upsertCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/refs/points" {
			upsertCalls++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	catalog := repository.NewMemoryCatalogRepository()
	index := New(srv.URL, "refs")
	rebuilder := NewRebuilder(index, catalog, NewHashEmbedder(32), 32)

	indexed, err := rebuilder.Rebuild(context.Background(), "empty-project")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if indexed != 0 {
		t.Fatalf("expected 0 points indexed, got %d", indexed)
	}
	if upsertCalls != 0 {
		t.Fatal("expected no upsert call when there is nothing to index")
	}
}
