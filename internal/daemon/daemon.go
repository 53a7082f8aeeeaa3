// Package daemon hosts the pipeline behind a lock file and a small HTTP
// API. One daemon instance runs per data directory; stages are triggered
// over the API and never overlap.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/queue"
	"reelsync/internal/runner"
)

// Pipeline is the stage surface the daemon exposes over its API.
type Pipeline interface {
	Reconcile(ctx context.Context) (runner.ReconcileReport, error)
	Acquire(ctx context.Context) (runner.AcquireReport, error)
	Run(ctx context.Context) (runner.RunReport, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// StorageChecker reports backend reachability for health output.
type StorageChecker interface {
	ProviderName() string
	TestConnection(ctx context.Context) bool
}

// Daemon enforces single-instance execution and serves the API.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	pipeline Pipeline
	storage  StorageChecker

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	// busy guards against overlapping stage runs triggered over the API.
	busy atomic.Bool

	api    *apiServer
	cancel context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	Provider     string              `json:"provider"`
	QueueDBPath  string              `json:"queue_db_path"`
	LockFilePath string              `json:"lock_file_path"`
	Queue        queue.HealthSummary `json:"queue"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, pipeline Pipeline, storage StorageChecker, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pipeline == nil {
		return nil, errors.New("daemon requires config, store, and pipeline")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "reelsyncd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pipeline: pipeline,
		storage:  storage,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
	)
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if d.storage != nil {
		status.Provider = d.storage.ProviderName()
	}
	if health, err := d.pipeline.Health(ctx); err == nil {
		status.Queue = health
	}
	return status
}

// APIAddr reports the bound API address once Start has succeeded.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// tryAcquireRun claims the single run slot; the caller must releaseRun.
func (d *Daemon) tryAcquireRun() bool {
	return d.busy.CompareAndSwap(false, true)
}

func (d *Daemon) releaseRun() {
	d.busy.Store(false)
}
