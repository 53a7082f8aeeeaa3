package reconcile

import (
	"log/slog"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/storage"
	"reelsync/internal/title"
)

// MatchResult pairs a catalog item with its best remote candidate. A nil
// MatchedAsset means the pool was empty.
type MatchResult struct {
	Item         catalog.Item
	MatchedAsset *storage.RemoteAsset
	Score        float64
	IsMatch      bool
}

// Outcome splits a catalog into items already present remotely and items
// still missing, both in catalog order.
type Outcome struct {
	Matched []MatchResult
	Missing []MatchResult
}

// Reconciler partitions catalogs against remote inventories.
type Reconciler struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewReconciler builds a reconciler over an already-built matcher.
func NewReconciler(matcher *Matcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		matcher: matcher,
		logger:  logging.NewComponentLogger(logger, "reconcile"),
	}
}

// NewFromConfig builds the matcher from the matching settings.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Reconciler, error) {
	matcher, err := NewMatcher(cfg.Matching.SimilarityWeight, cfg.Matching.TokenWeight, cfg.Matching.Threshold)
	if err != nil {
		return nil, err
	}
	return NewReconciler(matcher, logger), nil
}

// Partition scores every catalog item against the remote pool and splits the
// catalog into matched and missing. An empty pool short-circuits: every item
// is missing with a zero score. Each item is scored independently, so one
// remote asset may satisfy several items.
func (r *Reconciler) Partition(items []catalog.Item, assets []storage.RemoteAsset) Outcome {
	outcome := Outcome{}
	if len(items) == 0 {
		return outcome
	}

	if len(assets) == 0 {
		outcome.Missing = make([]MatchResult, len(items))
		for i, item := range items {
			outcome.Missing[i] = MatchResult{Item: item}
		}
		r.logger.Info("remote pool empty, acquiring full catalog",
			logging.Int("catalog_size", len(items)))
		return outcome
	}

	normalizedPool := make([]string, len(assets))
	for i, asset := range assets {
		normalizedPool[i] = title.Normalize(asset.RawName)
	}

	for _, item := range items {
		normalized := title.Normalize(item.Title)
		index, score := r.matcher.BestMatch(normalized, normalizedPool)
		result := MatchResult{
			Item:    item,
			Score:   score,
			IsMatch: r.matcher.Matches(score),
		}
		if index >= 0 {
			asset := assets[index]
			result.MatchedAsset = &asset
		}
		if result.IsMatch {
			outcome.Matched = append(outcome.Matched, result)
		} else {
			outcome.Missing = append(outcome.Missing, result)
		}
		r.logger.Debug("scored catalog item",
			logging.String("item_title", item.Title),
			logging.Float64("score", score),
			logging.Bool("matched", result.IsMatch),
		)
	}

	r.logger.Info("catalog partitioned",
		logging.Int("catalog_size", len(items)),
		logging.Int("pool_size", len(assets)),
		logging.Int("matched", len(outcome.Matched)),
		logging.Int("missing", len(outcome.Missing)),
	)
	return outcome
}
