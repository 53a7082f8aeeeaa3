// Package catalog defines the scraped release model and the prioritized
// source list with automatic failover. The scraping itself lives behind the
// Source interface; the pipeline only depends on the item shape and the
// fallback ordering.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"reelsync/internal/logging"
	"reelsync/internal/services"
)

// Item is one discoverable release scraped from a source site. Items are
// immutable once scraped.
type Item struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url,omitempty"`
	Source   string `json:"source"`
}

// Source produces catalog items from one endpoint.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Item, error)
}

// Fetcher walks a prioritized source list and returns the first non-empty
// result. A source that errors or yields zero items falls through to the
// next; only full exhaustion is an error.
type Fetcher struct {
	sources []Source
	logger  *slog.Logger
}

// NewFetcher constructs a fetcher over the given sources, tried in order.
func NewFetcher(sources []Source, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		sources: sources,
		logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

// Fetch returns the items of the first source that produced any, along with
// that source's name.
func (f *Fetcher) Fetch(ctx context.Context) ([]Item, string, error) {
	if len(f.sources) == 0 {
		return nil, "", services.Wrap(services.ErrConfiguration, "catalog", "fetch", "no sources configured", nil)
	}

	var lastErr error
	for _, source := range f.sources {
		items, err := source.Fetch(ctx)
		if err != nil {
			lastErr = err
			f.logger.Warn("source failed, trying next",
				logging.String(logging.FieldSource, source.Name()),
				logging.Error(err),
			)
			continue
		}
		if len(items) == 0 {
			f.logger.Warn("source returned no items, trying next",
				logging.String(logging.FieldSource, source.Name()),
			)
			continue
		}
		tagged := make([]Item, len(items))
		for i, item := range items {
			tagged[i] = item
			if strings.TrimSpace(tagged[i].Source) == "" {
				tagged[i].Source = source.Name()
			}
		}
		f.logger.Info("catalog fetched",
			logging.String(logging.FieldSource, source.Name()),
			logging.Int("items", len(tagged)),
		)
		return tagged, source.Name(), nil
	}

	return nil, "", services.Wrap(services.ErrUnavailable, "catalog", "fetch", "all sources exhausted", lastErr)
}
