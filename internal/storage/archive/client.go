// Package archive implements the Internet Archive S3-compatible object API:
// per-collection bucket listings, metadata-tagged uploads, and a
// reachability check. Requests authenticate with the IA "LOW" scheme rather
// than full AWS signatures, which the archive.org S3 endpoint accepts.
package archive

import (
	"context"
	"encoding/xml"
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

// Object is one stored object merged from a collection listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	Collection   string
}

// UploadResult identifies a completed upload.
type UploadResult struct {
	ID  string
	URL string
}

// Options configures a Client.
type Options struct {
	AccessKey string
	SecretKey string
	Uploader  string
	Endpoint  string

	// HTTPClient overrides the default client (used in tests).
	HTTPClient *http.Client
}

// Client talks to the Internet Archive S3 endpoint.
type Client struct {
	accessKey  string
	secretKey  string
	uploader   string
	endpoint   string
	httpClient *http.Client
}

// New creates an Internet Archive client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.AccessKey) == "" || strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("archive credentials required")
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("archive endpoint required")
	}
	client := &Client{
		accessKey: strings.TrimSpace(opts.AccessKey),
		secretKey: strings.TrimSpace(opts.SecretKey),
		uploader:  strings.TrimSpace(opts.Uploader),
		endpoint:  strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	if opts.HTTPClient != nil {
		client.httpClient = opts.HTTPClient
	}
	return client, nil
}

type listBucketResult struct {
	Contents []struct {
		Key          string `xml:"Key"`
		Size         int64  `xml:"Size"`
		LastModified string `xml:"LastModified"`
	} `xml:"Contents"`
}

// ListObjects merges the listings of the given collections. A collection
// that cannot be listed is skipped and the remainder returned; only total
// failure is an error.
func (c *Client) ListObjects(ctx context.Context, collections ...string) ([]Object, error) {
	var (
		merged  []Object
		lastErr error
		failed  int
	)
	for _, collection := range collections {
		objects, err := c.listCollection(ctx, collection)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		merged = append(merged, objects...)
	}
	if failed == len(collections) && len(collections) > 0 {
		return nil, services.Wrap(services.ErrUnavailable, "archive", "list objects", "all collections unreachable", lastErr)
	}
	return merged, nil
}

func (c *Client) listCollection(ctx context.Context, collection string) ([]Object, error) {
	endpoint := fmt.Sprintf("%s/%s?max-keys=1000", c.endpoint, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "archive", "list collection", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Collection not created yet; it materializes on first upload.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUnavailable, "archive", "list collection",
			fmt.Sprintf("%s: unexpected status %d", collection, resp.StatusCode), nil)
	}

	var payload listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bucket listing: %w", err)
	}

	objects := make([]Object, 0, len(payload.Contents))
	for _, entry := range payload.Contents {
		modified, _ := time.Parse(time.RFC3339, entry.LastModified)
		objects = append(objects, Object{
			Key:          entry.Key,
			Size:         entry.Size,
			LastModified: modified,
			Collection:   collection,
		})
	}
	return objects, nil
}

// Upload performs one PUT of the local file into the collection, tagged with
// metadata derived from the file name. Retries are the caller's
// responsibility.
func (c *Client) Upload(ctx context.Context, localPath, desiredName, collection string) (UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, "archive", "upload", "open local file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, "archive", "upload", "stat local file", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.endpoint, url.PathEscape(collection), url.PathEscape(desiredName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-amz-auto-make-bucket", "1")
	req.ContentLength = info.Size()
	for key, value := range metaHeaders(desiredName, collection, c.uploader) {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrTransient, "archive", "upload", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrValidation
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return UploadResult{}, services.Wrap(marker, "archive", "upload",
			fmt.Sprintf("unexpected status %d (%s)", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	return UploadResult{
		ID:  desiredName,
		URL: fmt.Sprintf("https://archive.org/details/%s/%s", collection, url.PathEscape(desiredName)),
	}, nil
}

// Ping verifies credentials against one collection. A missing collection
// still counts as reachable; it is created on first upload.
func (c *Client) Ping(ctx context.Context, collection string) error {
	endpoint := fmt.Sprintf("%s/%s?max-keys=1", c.endpoint, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "archive", "ping", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return services.Wrap(services.ErrUnavailable, "archive", "ping",
		fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("LOW %s:%s", c.accessKey, c.secretKey))
	req.Header.Set("User-Agent", userAgent)
}
