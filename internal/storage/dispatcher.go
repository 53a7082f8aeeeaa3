package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/services"
	"reelsync/internal/storage/archive"
	"reelsync/internal/storage/pixeldrain"
	"reelsync/internal/title"
)

const defaultBackoffBase = 10 * time.Second

// Dispatcher wraps the configured provider with upload retries. Transient
// faults back off linearly (attempt * base); anything else fails immediately
// without consuming the remaining budget.
type Dispatcher struct {
	provider    Provider
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
}

// Option configures optional Dispatcher behavior.
type Option func(*Dispatcher)

// WithBackoffBase overrides the linear backoff base interval (used in tests).
func WithBackoffBase(base time.Duration) Option {
	return func(d *Dispatcher) {
		if base > 0 {
			d.backoffBase = base
		}
	}
}

// NewDispatcher constructs a dispatcher over an already-built provider.
func NewDispatcher(provider Provider, maxRetries int, logger *slog.Logger, opts ...Option) *Dispatcher {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	d := &Dispatcher{
		provider:    provider,
		maxRetries:  maxRetries,
		backoffBase: defaultBackoffBase,
		logger:      logging.NewComponentLogger(logger, "storage"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig selects and constructs the configured backend.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	var provider Provider
	switch cfg.Storage.Provider {
	case "pixeldrain":
		client, err := pixeldrain.New(cfg.Storage.PixelDrain.APIKey, cfg.Storage.PixelDrain.BaseURL)
		if err != nil {
			return nil, err
		}
		provider = &pixeldrainProvider{client: client}
	case "archive":
		client, err := archive.New(archive.Options{
			AccessKey: cfg.Storage.Archive.AccessKey,
			SecretKey: cfg.Storage.Archive.SecretKey,
			Uploader:  cfg.Storage.Archive.Uploader,
			Endpoint:  cfg.Storage.Archive.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		provider = &archiveProvider{
			client:  client,
			movies:  cfg.Storage.Archive.MoviesCollection,
			tvshows: cfg.Storage.Archive.TVShowsCollection,
		}
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
	return NewDispatcher(provider, cfg.Storage.UploadRetries, logger, opts...), nil
}

// ProviderName reports the active backend for health and status output.
func (d *Dispatcher) ProviderName() string {
	return d.provider.Name()
}

// ListAssets returns the remote inventory of the active backend.
func (d *Dispatcher) ListAssets(ctx context.Context) ([]RemoteAsset, error) {
	return d.provider.ListAssets(ctx)
}

// PutAsset uploads a local file under the desired name, deriving the
// destination collection from the name's content category.
func (d *Dispatcher) PutAsset(ctx context.Context, localPath, desiredName string) (PutResult, error) {
	content := title.Classify(desiredName)
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		result, err := d.provider.PutAsset(ctx, localPath, desiredName, content)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !services.IsTransient(err) {
			return PutResult{}, err
		}
		if attempt == d.maxRetries {
			break
		}
		wait := time.Duration(attempt) * d.backoffBase
		d.logger.Warn("upload attempt failed, backing off",
			logging.String(logging.FieldProvider, d.provider.Name()),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
		select {
		case <-ctx.Done():
			return PutResult{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	return PutResult{}, services.Wrap(services.ErrTransient, "storage", "put asset",
		fmt.Sprintf("upload failed after %d attempts", d.maxRetries), lastErr)
}

// TestConnection reports whether the active backend is reachable. Health
// reporting only; failures are logged, not returned.
func (d *Dispatcher) TestConnection(ctx context.Context) bool {
	if err := d.provider.TestConnection(ctx); err != nil {
		d.logger.Warn("provider connection test failed",
			logging.String(logging.FieldProvider, d.provider.Name()),
			logging.Error(err),
		)
		return false
	}
	return true
}
