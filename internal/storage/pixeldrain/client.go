// Package pixeldrain implements the PixelDrain user-file API: list uploaded
// files, upload a file under a chosen name, and a reachability check. The
// API authenticates with HTTP basic auth using an empty username and the API
// key as password.
package pixeldrain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"reelsync/internal/services"
)

const userAgent = "reelsync/1.0"

// File is one entry from the user file listing.
type File struct {
	ID       string
	Name     string
	Size     int64
	Uploaded time.Time
}

// UploadResult identifies a completed upload.
type UploadResult struct {
	ID  string
	URL string
}

// Client talks to the PixelDrain API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a PixelDrain client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pixeldrain api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("pixeldrain base url required")
	}
	client := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		// Large uploads dominate request time; the timeout covers them.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type fileListResponse struct {
	Files []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		DateUpload string `json:"date_upload"`
	} `json:"files"`
}

// ListFiles fetches the authenticated user's uploaded files.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/files", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "pixeldrain", "list files", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, "pixeldrain", "list files")
	}

	var payload fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}

	files := make([]File, 0, len(payload.Files))
	for _, entry := range payload.Files {
		uploaded, _ := time.Parse(time.RFC3339, entry.DateUpload)
		files = append(files, File{
			ID:       entry.ID,
			Name:     entry.Name,
			Size:     entry.Size,
			Uploaded: uploaded,
		})
	}
	return files, nil
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Upload performs one PUT of the local file under the desired name. Retries
// are the caller's responsibility.
func (c *Client) Upload(ctx context.Context, localPath, desiredName string) (UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, "pixeldrain", "upload", "open local file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, "pixeldrain", "upload", "stat local file", err)
	}

	endpoint := c.baseURL + "/file/" + url.PathEscape(desiredName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "pixeldrain", "upload", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return UploadResult{}, classifyStatus(resp.StatusCode, "pixeldrain",
			fmt.Sprintf("upload (%s)", strings.TrimSpace(string(body))))
	}

	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	if payload.ID == "" {
		return UploadResult{}, services.Wrap(services.ErrValidation, "pixeldrain", "upload", "response missing file id", nil)
	}

	return UploadResult{
		ID:  payload.ID,
		URL: "https://pixeldrain.com/u/" + payload.ID,
	}, nil
}

// Ping verifies the API key by listing files.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListFiles(ctx)
	return err
}

func (c *Client) decorate(req *http.Request) {
	req.SetBasicAuth("", c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}

func classifyStatus(status int, component, operation string) error {
	message := fmt.Sprintf("unexpected status %d", status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, component, operation, message, nil)
	case status >= 500 || status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, component, operation, message, nil)
	default:
		return services.Wrap(services.ErrValidation, component, operation, message, nil)
	}
}
