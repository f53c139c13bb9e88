package refindex

import (
	"context"
	"fmt"
	"time"

	"github.com/storyforge/orchestrator/internal/repository"
)

// Rebuilder drives a full (non-incremental) reference-index rebuild
// from the catalog store's known tables.
type Rebuilder struct {
	index    *Client
	catalog  repository.CatalogRepository
	embedder Embedder
	dim      int
}

func NewRebuilder(index *Client, catalog repository.CatalogRepository, embedder Embedder, dim int) *Rebuilder {
	return &Rebuilder{index: index, catalog: catalog, embedder: embedder, dim: dim}
}

// Rebuild drops the collection, recreates it, and reindexes every
// character row, each character's LoRA (when it has a trigger), and
// every scene row for a project. Generation styles and episodes are not
// indexed.
func (r *Rebuilder) Rebuild(ctx context.Context, projectID string) (indexed int, err error) {
	if err := r.index.DropCollection(ctx); err != nil {
		return 0, fmt.Errorf("refindex rebuild: drop collection: %w", err)
	}
	if err := r.index.CreateCollection(ctx, r.dim); err != nil {
		return 0, fmt.Errorf("refindex rebuild: create collection: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var points []Point

	characters, err := r.catalog.ListCharacters(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("refindex rebuild: list characters: %w", err)
	}
	for _, c := range characters {
		text := CharacterSearchText(c)
		points = append(points, Point{
			ID:     "character:" + c.ID,
			Vector: r.embedder.Embed(text),
			Payload: Payload{
				Type: "character", SourceTable: "characters", SourceID: c.ID,
				SearchTextDebug: text, IndexedAt: now, DisplayName: c.DisplayName,
			},
		})
		if loraText := LoraSearchText(c); loraText != "" {
			points = append(points, Point{
				ID:     "lora:" + c.ID,
				Vector: r.embedder.Embed(loraText),
				Payload: Payload{
					Type: "lora", SourceTable: "characters", SourceID: c.ID,
					SearchTextDebug: loraText, IndexedAt: now, DisplayName: c.DisplayName,
				},
			})
		}
	}

	scenes, err := r.catalog.ListScenes(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("refindex rebuild: list scenes: %w", err)
	}
	for _, s := range scenes {
		text := SceneSearchText(s)
		points = append(points, Point{
			ID:     "scene:" + s.ID,
			Vector: r.embedder.Embed(text),
			Payload: Payload{
				Type: "scene", SourceTable: "scenes", SourceID: s.ID,
				SearchTextDebug: text, IndexedAt: now, DisplayName: s.Title,
			},
		})
	}

	if len(points) > 0 {
		if err := r.index.Upsert(ctx, points); err != nil {
			return 0, fmt.Errorf("refindex rebuild: upsert: %w", err)
		}
	}
	return len(points), nil
}
