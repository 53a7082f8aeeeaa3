package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelsync/internal/acquire"
	"reelsync/internal/browse"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/daemon"
	"reelsync/internal/queue"
	"reelsync/internal/reconcile"
	"reelsync/internal/runner"
	"reelsync/internal/services"
	"reelsync/internal/storage"
)

// bootstrap wires the pipeline and wraps it in a daemon. Acquisition is only
// wired when an automation driver is configured; reconciliation never needs
// one.
func bootstrap(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	dispatcher, err := storage.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	reconciler, err := reconcile.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init reconciler: %w", err)
	}

	processor, err := buildProcessor(ctx, cfg, store, dispatcher, logger)
	if err != nil {
		return nil, err
	}

	coordinator := runner.NewCoordinator(
		buildCatalog(cfg, logger),
		dispatcher,
		reconciler,
		store,
		processor,
		time.Duration(cfg.Acquisition.InterItemDelay)*time.Second,
		logger,
	)

	return daemon.New(cfg, store, coordinator, dispatcher, logger)
}

// catalogFeed adapts the failover fetcher to the coordinator, which does not
// care which source produced the listing.
type catalogFeed struct {
	fetcher *catalog.Fetcher
}

func (f catalogFeed) Fetch(ctx context.Context) ([]catalog.Item, error) {
	items, _, err := f.fetcher.Fetch(ctx)
	return items, err
}

func buildCatalog(cfg *config.Config, logger *slog.Logger) runner.CatalogFetcher {
	sources := make([]catalog.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources = append(sources, catalog.NewHTTPSource(src.Name, src.URL))
	}
	return catalogFeed{fetcher: catalog.NewFetcher(sources, logger)}
}

func buildProcessor(ctx context.Context, cfg *config.Config, store *queue.Store, dispatcher *storage.Dispatcher, logger *slog.Logger) (runner.ItemProcessor, error) {
	driver := strings.TrimSpace(cfg.Automation.Driver)
	if driver == "" {
		logger.Warn("no automation driver configured, acquisition disabled")
		return disabledProcessor{}, nil
	}

	session, err := browse.NewSession(ctx, driver, cfg.Automation.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("open automation session: %w", err)
	}

	fetcher := acquire.NewDownloader(
		cfg.Paths.StagingDir,
		time.Duration(cfg.Acquisition.DownloadTimeout)*time.Second,
	)
	return acquire.New(session, store, dispatcher, fetcher, cfg.Acquisition, logger), nil
}

// disabledProcessor fails every item with a configuration error so the
// acquisition stage reports a clear cause instead of hanging.
type disabledProcessor struct{}

func (disabledProcessor) Process(ctx context.Context, item *queue.Item) error {
	return services.Wrap(services.ErrConfiguration, "acquire", "process",
		"automation.driver is not configured; acquisition is disabled", nil)
}
