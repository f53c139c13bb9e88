// Package refindex is a client for the reference index: a semantic
// search layer that returns only (table, id) pointers into the
// catalog store, never authoritative content.
package refindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Point is one embedded row offered to Upsert. Vector is caller-supplied
// (the index client never computes embeddings itself).
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Payload is the reference-only envelope the index is allowed to
// store; it deliberately has no room for any field besides these.
type Payload struct {
	Type          string `json:"type"`
	SourceTable   string `json:"source_table"`
	SourceID      string `json:"source_id"`
	SearchTextDebug string `json:"search_text_debug"`
	IndexedAt     string `json:"indexed_at"`
	DisplayName   string `json:"display_name,omitempty"`
}

// Result is one search hit: a reference back into the catalog store,
// never the indexed content itself.
type Result struct {
	SourceTable string  `json:"source_table"`
	SourceID    string  `json:"source_id"`
	Type        string  `json:"type"`
	DisplayName string  `json:"display_name,omitempty"`
	Score       float64 `json:"score"`
}

// Client talks to a Qdrant-shaped REST vector index.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCollection (re)creates the index's backing collection with the
// given embedding dimensionality, used for a full rebuild.
func (c *Client) CreateCollection(ctx context.Context, dim int) error {
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil)
}

// DropCollection deletes the backing collection, used before a full
// rebuild sweep.
func (c *Client) DropCollection(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+c.collection, nil, nil)
}

// Upsert writes points whose payload is already reference-only; it
// rejects any point whose payload is missing a required field rather
// than silently indexing partial data.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	wirePoints := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if p.Payload.Type == "" || p.Payload.SourceTable == "" || p.Payload.SourceID == "" {
			return fmt.Errorf("refindex: point %s missing required payload field", p.ID)
		}
		wirePoints = append(wirePoints, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	body := map[string]any{"points": wirePoints}
	return c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points", body, nil)
}

// Search returns reference-only hits for a query vector, optionally
// restricted to one type.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, typeFilter string) ([]Result, error) {
	body := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if typeFilter != "" {
		body["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "type", "match": map[string]any{"value": typeFilter}},
			},
		}
	}

	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, Result{
			SourceTable: r.Payload.SourceTable,
			SourceID:    r.Payload.SourceID,
			Type:        r.Payload.Type,
			DisplayName: r.Payload.DisplayName,
			Score:       r.Score,
		})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("refindex: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("refindex: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refindex: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("refindex: %s %s returned %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("refindex: decode response: %w", err)
		}
	}
	return nil
}
