package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsync/internal/services"
)

func TestHTTPSourceFetchWrappedListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q, want application/json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"title":"Movie One","url":"https://releases.example/one","image_url":"https://img.example/1.jpg"},
			{"title":"Movie Two","url":"https://releases.example/two"}
		]}`))
	}))
	defer server.Close()

	source := NewHTTPSource("primary", server.URL)
	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "Movie One" || items[0].URL != "https://releases.example/one" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[0].ImageURL != "https://img.example/1.jpg" {
		t.Errorf("image url = %q", items[0].ImageURL)
	}
}

func TestHTTPSourceFetchBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title":"Solo","url":"https://releases.example/solo"}]`))
	}))
	defer server.Close()

	source := NewHTTPSource("mirror", server.URL)
	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Solo" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestHTTPSourceFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewHTTPSource("primary", server.URL)
	_, err := source.Fetch(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestHTTPSourceFetchUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	source := NewHTTPSource("primary", server.URL)
	_, err := source.Fetch(context.Background())
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("error = %v, want ErrStructural", err)
	}
}

func TestHTTPSourceFetchUnreachable(t *testing.T) {
	source := NewHTTPSource("primary", "http://127.0.0.1:1/listing")
	_, err := source.Fetch(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}
