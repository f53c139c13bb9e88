// Package llmclient is a thin client for the external LLM collaborator
// contract: a single-shot query/response exchange with no streaming.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storyforge/orchestrator/internal/llmutil"
)

// Client posts free-text (and optional structured context) to the
// collaborator and returns its raw text reply; callers that expect
// JSON back parse the reply themselves and fall back on a parse
// failure rather than treating it as a transport error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type queryRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// Query sends a prompt to the collaborator's /api/echo/query endpoint
// and returns its textual reply.
func (c *Client) Query(ctx context.Context, prompt string, extraContext map[string]any) (string, error) {
	body, err := json.Marshal(queryRequest{Query: prompt, Context: extraContext})
	if err != nil {
		return "", fmt.Errorf("llmclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/echo/query", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llmclient: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("llmclient: collaborator returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed queryResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Tolerate a bare-text reply: some collaborator deployments skip
		// the envelope and answer with plain text.
		return string(data), nil
	}
	return parsed.Response, nil
}

// QueryJSON sends a prompt and attempts to decode the collaborator's
// reply as JSON into out. It returns ok=false (not an error) when the
// reply isn't valid JSON, since callers treat that as "the LLM
// produced nothing parseable" rather than a transport failure. Before
// giving up, it retries against a markdown-fence-stripped reply, since
// collaborator deployments commonly wrap JSON in a ```json fence.
func (c *Client) QueryJSON(ctx context.Context, prompt string, extraContext map[string]any, out any) (ok bool, err error) {
	text, err := c.Query(ctx, prompt, extraContext)
	if err != nil {
		return false, err
	}
	if jsonErr := json.Unmarshal([]byte(text), out); jsonErr == nil {
		return true, nil
	}
	stripped, stripErr := llmutil.StripMarkdownJSON(text)
	if stripErr != nil {
		return false, nil
	}
	if jsonErr := json.Unmarshal([]byte(stripped), out); jsonErr != nil {
		return false, nil
	}
	return true, nil
}
