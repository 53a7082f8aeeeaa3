// Package api is the HTTP client for a running reelsyncd instance. The CLI
// never touches the queue database or the pipeline directly; every command
// goes through this client so the daemon stays the single writer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsync/internal/daemon"
	"reelsync/internal/queue"
	"reelsync/internal/runner"
	"reelsync/internal/services"
)

// Client provides access to the daemon API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for the daemon listening at bind. The token may be
// empty when the daemon runs without authentication.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new", "api bind address required", nil)
	}
	baseURL := bind
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		// Stage endpoints block until the stage finishes, so the client
		// carries no timeout; callers bound requests with a context.
		httpClient: &http.Client{},
	}, nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*daemon.Status, error) {
	var status daemon.Status
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health describes the daemon's view of storage and queue health.
type Health struct {
	Status           string `json:"status"`
	Provider         string `json:"provider"`
	StorageReachable bool   `json:"storage_reachable"`
	QueueTotal       int    `json:"queue_total"`
	QueuePending     int    `json:"queue_pending"`
	QueueFailed      int    `json:"queue_failed"`
}

// Health retrieves daemon health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.get(ctx, "/api/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Reconcile runs the reconciliation stage and returns its report.
func (c *Client) Reconcile(ctx context.Context) (*runner.ReconcileReport, error) {
	var report runner.ReconcileReport
	if err := c.post(ctx, "/api/reconcile", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Acquire runs the acquisition stage and returns its report.
func (c *Client) Acquire(ctx context.Context) (*runner.AcquireReport, error) {
	var report runner.AcquireReport
	if err := c.post(ctx, "/api/acquire", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Run runs reconciliation followed by acquisition.
func (c *Client) Run(ctx context.Context) (*runner.RunReport, error) {
	var report runner.RunReport
	if err := c.post(ctx, "/api/run", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// QueueList returns queue items, optionally filtered by status names.
func (c *Client) QueueList(ctx context.Context, statuses []string) ([]*queue.Item, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		path += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
	}
	var payload struct {
		Items []*queue.Item `json:"items"`
	}
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// QueueAddRequest describes one manually enqueued item.
type QueueAddRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url,omitempty"`
	Source   string `json:"source,omitempty"`
}

// QueueAdd enqueues one item outside reconciliation.
func (c *Client) QueueAdd(ctx context.Context, req QueueAddRequest) (*queue.Item, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var item queue.Item
	if err := c.doBody(ctx, http.MethodPost, "/api/queue/add", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// QueueClear removes all items; returns the number removed.
func (c *Client) QueueClear(ctx context.Context) (int64, error) {
	return c.queueMutation(ctx, "/api/queue/clear")
}

// QueueClearFailed removes terminally failed items.
func (c *Client) QueueClearFailed(ctx context.Context) (int64, error) {
	return c.queueMutation(ctx, "/api/queue/clear-failed")
}

// QueueClearSucceeded removes successfully acquired items.
func (c *Client) QueueClearSucceeded(ctx context.Context) (int64, error) {
	return c.queueMutation(ctx, "/api/queue/clear-succeeded")
}

// QueueReset rolls items stuck mid-acquisition back to pending.
func (c *Client) QueueReset(ctx context.Context) (int64, error) {
	return c.queueMutation(ctx, "/api/queue/reset")
}

func (c *Client) queueMutation(ctx context.Context, path string) (int64, error) {
	var payload struct {
		Affected int64 `json:"affected"`
	}
	if err := c.post(ctx, path, &payload); err != nil {
		return 0, err
	}
	return payload.Affected, nil
}

// Ping reports whether the daemon is reachable at all.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := c.Status(ctx)
	return err == nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, out)
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodPost, path, out)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	return c.doBody(ctx, method, path, nil, out)
}

func (c *Client) doBody(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "api", "request",
			"daemon not reachable (is reelsyncd running?)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return classifyStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrStructural, "api", "request", "decode response", err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	message := readErrorMessage(resp.Body)
	detail := fmt.Sprintf("daemon returned %d: %s", resp.StatusCode, message)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return services.Wrap(services.ErrConfiguration, "api", "request", detail, nil)
	case http.StatusConflict:
		return services.Wrap(services.ErrTransient, "api", "request", detail, nil)
	default:
		return services.Wrap(services.ErrUnavailable, "api", "request", detail, nil)
	}
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "no detail"
}
