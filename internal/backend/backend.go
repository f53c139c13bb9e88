// Package backend is a one-way HTTP client for a node-graph generative
// backend: submit a workflow graph, poll its queue and history, and
// request interruption or a health check.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/storyforge/orchestrator/internal/retryutil"
)

const (
	submitTimeout = 30 * time.Second
	historyTimeout = 5 * time.Second
	healthTimeout  = 5 * time.Second
)

// QueueStatus reports how many prompts the backend currently has
// running and pending.
type QueueStatus struct {
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// ImageOutput is one produced image leaf within a history entry's
// outputs tree.
type ImageOutput struct {
	Filename string `json:"filename"`
	Subfolder string `json:"subfolder,omitempty"`
	AbsPath  string `json:"abs_path,omitempty"`
}

// HistoryEntry is the backend's record of one completed or
// in-progress prompt.
type HistoryEntry struct {
	Status  string                   `json:"status"`
	Outputs map[string]NodeOutput    `json:"outputs"`
}

// NodeOutput is one node's output leaf within a history entry; only
// nodes that produced images populate Images.
type NodeOutput struct {
	Images []ImageOutput `json:"images,omitempty"`
}

// Client talks to the backend over HTTP, with a rate limiter gating
// submissions and retry-with-backoff on transient network errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a backend client. ratePerSecond bounds how often
// SubmitWorkflow may issue a request, protecting a backend that has no
// queue-admission control of its own.
func New(baseURL string, ratePerSecond float64) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// SubmitWorkflow posts a node graph for execution and returns the
// backend-assigned prompt ID, or "" if the backend rejected it.
func (c *Client) SubmitWorkflow(ctx context.Context, graph map[string]any, clientID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	body := map[string]any{"prompt": graph, "client_id": clientID}

	var resp struct {
		PromptID string `json:"prompt_id"`
	}
	err := retryutil.Do(ctx, retryutil.Default, func() error {
		return c.postJSON(ctx, "/prompt", body, &resp)
	})
	if err != nil {
		return "", nil // parse/submit failures yield None to callers, not errors
	}
	return resp.PromptID, nil
}

// GetQueueStatus reports the backend's current running/pending counts.
func (c *Client) GetQueueStatus(ctx context.Context) (QueueStatus, error) {
	var resp struct {
		ExecInfo struct {
			QueueRunning int `json:"queue_running"`
			QueuePending int `json:"queue_pending"`
		} `json:"exec_info"`
	}
	if err := c.getJSON(ctx, "/queue", &resp); err != nil {
		return QueueStatus{}, err
	}
	return QueueStatus{Running: resp.ExecInfo.QueueRunning, Pending: resp.ExecInfo.QueuePending}, nil
}

// GetHistory fetches the backend's record for a prompt ID. It returns
// (nil, nil) rather than an error on any parse failure, per contract.
func (c *Client) GetHistory(ctx context.Context, backendPromptID string) (*HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	var resp map[string]HistoryEntry
	err := retryutil.Do(ctx, retryutil.Default, func() error {
		return c.getJSON(ctx, "/history/"+backendPromptID, &resp)
	})
	if err != nil {
		return nil, nil
	}
	entry, ok := resp[backendPromptID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Interrupt requests the backend cancel its current execution. Best
// effort: it reports success/failure but a caller proceeds with local
// cleanup regardless.
func (c *Client) Interrupt(ctx context.Context) bool {
	err := c.postJSON(ctx, "/interrupt", map[string]any{}, nil)
	return err == nil
}

// CheckHealth reports whether the backend is reachable within a 5s
// timebox.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.getJSON(ctx, "/system_stats", &struct{}{}) == nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend: %s returned %d: %s", req.URL.Path, resp.StatusCode, string(data))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("backend: decode response: %w", err)
		}
	}
	return nil
}
