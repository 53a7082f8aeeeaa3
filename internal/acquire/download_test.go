package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsync/internal/services"
)

func TestDownloaderFetchStagesFile(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://gate.example/item" {
			t.Errorf("Referer = %q", got)
		}
		if cookie, err := r.Cookie("session"); err != nil || cookie.Value != "abc" {
			t.Errorf("session cookie not forwarded: %v", err)
		}
		w.Write([]byte(payload))
	}))
	defer server.Close()

	staging := t.TempDir()
	downloader := NewDownloader(staging, time.Minute)
	localPath, err := downloader.Fetch(context.Background(), FetchRequest{
		URL:           server.URL,
		Referrer:      "https://gate.example/item",
		Cookies:       []*http.Cookie{{Name: "session", Value: "abc"}},
		SuggestedName: "Movie Name.mkv",
		ItemTitle:     "Movie Name",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if filepath.Dir(localPath) != staging {
		t.Errorf("scratch file %s outside staging dir", localPath)
	}
	base := filepath.Base(localPath)
	if !strings.HasPrefix(base, "Movie Name-") || !strings.HasSuffix(base, "-Movie Name.mkv") {
		t.Errorf("unexpected scratch name %q", base)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("read scratch file: %v", err)
	}
	if string(data) != payload {
		t.Errorf("scratch file holds %d bytes, want %d", len(data), len(payload))
	}
}

func TestDownloaderFetchEmptyURL(t *testing.T) {
	downloader := NewDownloader(t.TempDir(), time.Minute)
	_, err := downloader.Fetch(context.Background(), FetchRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestDownloaderFetchStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "gone link", status: http.StatusNotFound, want: services.ErrValidation},
		{name: "host overloaded", status: http.StatusServiceUnavailable, want: services.ErrTransient},
		{name: "rate limited", status: http.StatusTooManyRequests, want: services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			downloader := NewDownloader(t.TempDir(), time.Minute)
			_, err := downloader.Fetch(context.Background(), FetchRequest{URL: server.URL})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDownloaderFetchMissingStagingDir(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	downloader := NewDownloader(filepath.Join(t.TempDir(), "does-not-exist"), time.Minute)
	_, err := downloader.Fetch(context.Background(), FetchRequest{URL: server.URL, ItemTitle: "Movie"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestDownloaderFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	downloader := NewDownloader(t.TempDir(), 50*time.Millisecond)
	_, err := downloader.Fetch(context.Background(), FetchRequest{URL: server.URL})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
}

func TestScratchNameFallbacks(t *testing.T) {
	name := scratchName("", "")
	if !strings.HasPrefix(name, "item-") || !strings.HasSuffix(name, "-download.bin") {
		t.Errorf("unexpected fallback scratch name %q", name)
	}
}
