// Package runner coordinates the two pipeline stages: reconciling the
// scraped catalog against remote storage, and working through the resulting
// missing items one at a time. Stages can run individually or back to back
// as one run.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"reelsync/internal/catalog"
	"reelsync/internal/logging"
	"reelsync/internal/queue"
	"reelsync/internal/reconcile"
	"reelsync/internal/services"
	"reelsync/internal/storage"
	"reelsync/internal/title"
)

// CatalogFetcher produces the current catalog listing.
type CatalogFetcher interface {
	Fetch(ctx context.Context) ([]catalog.Item, error)
}

// AssetLister produces the remote storage inventory.
type AssetLister interface {
	ListAssets(ctx context.Context) ([]storage.RemoteAsset, error)
}

// ItemProcessor runs one queue item through the acquisition flow.
type ItemProcessor interface {
	Process(ctx context.Context, item *queue.Item) error
}

// ReconcileReport summarizes one reconciliation stage.
type ReconcileReport struct {
	RunID       string `json:"run_id"`
	CatalogSize int    `json:"catalog_size"`
	PoolSize    int    `json:"pool_size"`
	Matched     int    `json:"matched"`
	Missing     int    `json:"missing"`
}

// AcquireReport summarizes one acquisition stage.
type AcquireReport struct {
	RunID     string `json:"run_id"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// RunReport combines both stages of a full run.
type RunReport struct {
	Reconcile ReconcileReport `json:"reconcile"`
	Acquire   AcquireReport   `json:"acquire"`
}

// Coordinator wires the stages over their shared queue.
type Coordinator struct {
	catalog    CatalogFetcher
	assets     AssetLister
	reconciler *reconcile.Reconciler
	store      *queue.Store
	processor  ItemProcessor
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewCoordinator builds a coordinator. interItemDelay paces consecutive
// acquisitions; zero disables pacing.
func NewCoordinator(
	fetcher CatalogFetcher,
	assets AssetLister,
	reconciler *reconcile.Reconciler,
	store *queue.Store,
	processor ItemProcessor,
	interItemDelay time.Duration,
	logger *slog.Logger,
) *Coordinator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interItemDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(interItemDelay), 1)
	}
	return &Coordinator{
		catalog:    fetcher,
		assets:     assets,
		reconciler: reconciler,
		store:      store,
		processor:  processor,
		limiter:    limiter,
		logger:     logging.NewComponentLogger(logger, "runner"),
	}
}

// Reconcile fetches the catalog and the remote inventory, partitions them,
// and replaces the pending portion of the queue with the outcome. Source and
// inventory failures are fatal for the stage; nothing is persisted on error.
func (c *Coordinator) Reconcile(ctx context.Context) (ReconcileReport, error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := c.logger.With(logging.String(logging.FieldCorrelationID, runID))
	logger.Info("reconciliation started")

	items, err := c.catalog.Fetch(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("fetch catalog: %w", err)
	}
	assets, err := c.assets.ListAssets(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list remote assets: %w", err)
	}

	outcome := c.reconciler.Partition(items, assets)

	queued := make([]*queue.Item, 0, len(outcome.Matched)+len(outcome.Missing))
	for _, result := range outcome.Matched {
		item, err := queueItemFromResult(result, queue.StatusMatched)
		if err != nil {
			return ReconcileReport{}, err
		}
		queued = append(queued, item)
	}
	for _, result := range outcome.Missing {
		item, err := queueItemFromResult(result, queue.StatusPending)
		if err != nil {
			return ReconcileReport{}, err
		}
		queued = append(queued, item)
	}
	if err := c.store.SaveReconciliation(ctx, queued); err != nil {
		return ReconcileReport{}, fmt.Errorf("persist reconciliation: %w", err)
	}

	report := ReconcileReport{
		RunID:       runID,
		CatalogSize: len(items),
		PoolSize:    len(assets),
		Matched:     len(outcome.Matched),
		Missing:     len(outcome.Missing),
	}
	logger.Info("reconciliation finished",
		logging.Int("catalog_size", report.CatalogSize),
		logging.Int("pool_size", report.PoolSize),
		logging.Int("matched", report.Matched),
		logging.Int("missing", report.Missing),
	)
	return report, nil
}

func queueItemFromResult(result reconcile.MatchResult, status queue.Status) (*queue.Item, error) {
	item := &queue.Item{
		Title:       result.Item.Title,
		URL:         result.Item.URL,
		ImageURL:    result.Item.ImageURL,
		Source:      result.Item.Source,
		ContentType: string(title.Classify(result.Item.Title)),
		Status:      status,
		MatchScore:  result.Score,
	}
	if result.MatchedAsset != nil {
		encoded, err := json.Marshal(result.MatchedAsset)
		if err != nil {
			return nil, fmt.Errorf("encode matched asset: %w", err)
		}
		item.MatchedAssetJSON = string(encoded)
		item.Collection = result.MatchedAsset.Collection
	}
	return item, nil
}

// Acquire works through every pending item sequentially, pacing consecutive
// items. A failed item never aborts the stage; only infrastructure faults
// and cancellation do.
func (c *Coordinator) Acquire(ctx context.Context) (AcquireReport, error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := c.logger.With(logging.String(logging.FieldCorrelationID, runID))

	pending, err := c.store.List(ctx, queue.StatusPending)
	if err != nil {
		return AcquireReport{}, fmt.Errorf("list pending items: %w", err)
	}
	report := AcquireReport{RunID: runID}
	logger.Info("acquisition stage started", logging.Int("pending", len(pending)))

	for _, item := range pending {
		if err := c.limiter.Wait(ctx); err != nil {
			return report, err
		}
		report.Attempted++
		if err := c.processor.Process(services.WithItemID(ctx, item.ID), item); err != nil {
			return report, fmt.Errorf("process item %d: %w", item.ID, err)
		}
		if err := c.store.Update(ctx, item); err != nil {
			return report, fmt.Errorf("persist item %d: %w", item.ID, err)
		}
		if item.Status == queue.StatusSucceeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	logger.Info("acquisition stage finished",
		logging.Int("attempted", report.Attempted),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

// Run executes reconciliation followed by acquisition.
func (c *Coordinator) Run(ctx context.Context) (RunReport, error) {
	reconcileReport, err := c.Reconcile(ctx)
	if err != nil {
		return RunReport{}, err
	}
	acquireReport, err := c.Acquire(ctx)
	if err != nil {
		return RunReport{Reconcile: reconcileReport}, err
	}
	return RunReport{Reconcile: reconcileReport, Acquire: acquireReport}, nil
}

// Health reports aggregated queue counts.
func (c *Coordinator) Health(ctx context.Context) (queue.HealthSummary, error) {
	return c.store.Health(ctx)
}
