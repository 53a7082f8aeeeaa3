package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reelsync/internal/services"
)

// Listings are scraped pages, not media; a small cap keeps a misconfigured
// endpoint from buffering gigabytes.
const maxListingBytes = 8 << 20

// HTTPSource fetches a catalog listing from an endpoint serving JSON: either
// a bare array of items or an object with an "items" array. Scraper
// deployments sit behind this shape; the source itself never crawls.
type HTTPSource struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewHTTPSource builds a source for one catalog endpoint.
func NewHTTPSource(name, url string) *HTTPSource {
	return &HTTPSource{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the source in logs and queue rows.
func (s *HTTPSource) Name() string { return s.name }

// Fetch retrieves and decodes the listing.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "catalog", "fetch", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUnavailable, "catalog", "fetch",
			fmt.Sprintf("%s: unexpected status %d", s.name, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "catalog", "fetch", s.name, err)
	}

	var wrapped struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Items != nil {
		return wrapped.Items, nil
	}
	var bare []Item
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	return nil, services.Wrap(services.ErrStructural, "catalog", "fetch",
		fmt.Sprintf("%s: undecodable listing", s.name), nil)
}
