package main

import (
	"context"
	"errors"
	"testing"

	"reelsync/internal/logging"
	"reelsync/internal/queue"
	"reelsync/internal/services"
	"reelsync/internal/testsupport"
)

func TestBootstrapWithoutAutomationDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	d, err := bootstrap(ctx, cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running {
		t.Error("daemon not reported running")
	}
	if status.Provider != "pixeldrain" {
		t.Errorf("provider = %q, want pixeldrain", status.Provider)
	}
}

func TestBootstrapRejectsUnknownDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Automation.Driver = "no-such-driver"
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := bootstrap(context.Background(), cfg, store, logging.NewNop()); err == nil {
		t.Fatal("bootstrap accepted unregistered automation driver")
	}
}

func TestDisabledProcessorFailsWithConfigurationError(t *testing.T) {
	err := disabledProcessor{}.Process(context.Background(), &queue.Item{ID: 1})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}
