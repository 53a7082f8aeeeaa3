package catalog

import (
	"context"
	"errors"
	"testing"

	"reelsync/internal/logging"
	"reelsync/internal/services"
)

type stubSource struct {
	name  string
	items []Item
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]Item, error) {
	s.calls++
	return s.items, s.err
}

func TestFetchUsesFirstProductiveSource(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("blocked")}
	empty := &stubSource{name: "empty"}
	fallback := &stubSource{name: "fallback", items: []Item{{Title: "Movie A", URL: "https://x/a"}}}

	fetcher := NewFetcher([]Source{primary, empty, fallback}, logging.NewNop())
	items, source, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if source != "fallback" {
		t.Fatalf("unexpected source: %q", source)
	}
	if len(items) != 1 || items[0].Source != "fallback" {
		t.Fatalf("expected items tagged with source name, got %+v", items)
	}
	if primary.calls != 1 || empty.calls != 1 {
		t.Fatal("expected earlier sources to each be tried once")
	}
}

func TestFetchPreservesExplicitSourceTag(t *testing.T) {
	src := &stubSource{name: "mirror", items: []Item{{Title: "Movie B", URL: "https://x/b", Source: "origin"}}}
	fetcher := NewFetcher([]Source{src}, logging.NewNop())
	items, _, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if items[0].Source != "origin" {
		t.Fatalf("expected explicit source tag preserved, got %q", items[0].Source)
	}
}

func TestFetchExhaustionIsUnavailable(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("down")}
	b := &stubSource{name: "b"}

	fetcher := NewFetcher([]Source{a, b}, logging.NewNop())
	_, _, err := fetcher.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error when all sources are exhausted")
	}
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchNoSourcesIsConfigurationError(t *testing.T) {
	fetcher := NewFetcher(nil, logging.NewNop())
	_, _, err := fetcher.Fetch(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
