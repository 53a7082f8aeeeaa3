package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelsync/internal/services"
)

func TestClientStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"running":  true,
			"pid":      4242,
			"provider": "pixeldrain",
		})
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 4242 || status.Provider != "pixeldrain" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestClientStagesPostAndDecode(t *testing.T) {
	var gotPaths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotPaths = append(gotPaths, r.URL.Path)
		switch r.URL.Path {
		case "/api/reconcile":
			json.NewEncoder(w).Encode(map[string]any{"run_id": "r1", "matched": 3, "missing": 2})
		case "/api/acquire":
			json.NewEncoder(w).Encode(map[string]any{"run_id": "a1", "attempted": 2, "succeeded": 1, "failed": 1})
		case "/api/run":
			json.NewEncoder(w).Encode(map[string]any{
				"reconcile": map[string]any{"matched": 1},
				"acquire":   map[string]any{"succeeded": 1},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	reconcile, err := client.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if reconcile.RunID != "r1" || reconcile.Matched != 3 || reconcile.Missing != 2 {
		t.Errorf("unexpected reconcile report: %+v", reconcile)
	}

	acquire, err := client.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acquire.Succeeded != 1 || acquire.Failed != 1 {
		t.Errorf("unexpected acquire report: %+v", acquire)
	}

	run, err := client.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Reconcile.Matched != 1 || run.Acquire.Succeeded != 1 {
		t.Errorf("unexpected run report: %+v", run)
	}

	want := []string{"/api/reconcile", "/api/acquire", "/api/run"}
	for i, path := range want {
		if gotPaths[i] != path {
			t.Errorf("request %d hit %s, want %s", i, gotPaths[i], path)
		}
	}
}

func TestClientQueueOperations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/queue":
			if r.Method != http.MethodGet {
				t.Errorf("queue list method = %s", r.Method)
			}
			if got := r.URL.Query().Get("status"); got != "pending,upload_failed" {
				t.Errorf("status filter = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": 7, "title": "Movie", "status": "pending"}},
			})
		case "/api/queue/add":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["title"] != "New Movie" || body["url"] != "https://src/new" {
				t.Errorf("add body = %v", body)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": 9, "title": "New Movie", "status": "pending"})
		case "/api/queue/clear-failed":
			json.NewEncoder(w).Encode(map[string]int64{"affected": 3})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := New(server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	items, err := client.QueueList(ctx, []string{"pending", "upload_failed"})
	if err != nil {
		t.Fatalf("QueueList: %v", err)
	}
	if len(items) != 1 || items[0].ID != 7 {
		t.Errorf("items = %+v", items)
	}

	item, err := client.QueueAdd(ctx, QueueAddRequest{Title: "New Movie", URL: "https://src/new"})
	if err != nil {
		t.Fatalf("QueueAdd: %v", err)
	}
	if item.ID != 9 {
		t.Errorf("added item = %+v", item)
	}

	affected, err := client.QueueClearFailed(ctx)
	if err != nil {
		t.Fatalf("QueueClearFailed: %v", err)
	}
	if affected != 3 {
		t.Errorf("affected = %d, want 3", affected)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"running": true})
	}))
	defer server.Close()

	client, err := New(server.URL, "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: services.ErrConfiguration},
		{name: "busy", status: http.StatusConflict, want: services.ErrTransient},
		{name: "server error", status: http.StatusInternalServerError, want: services.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{"error": "stage is busy"})
			}))
			defer server.Close()

			client, err := New(server.URL, "")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = client.Reconcile(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), "stage is busy") {
				t.Errorf("error %q missing daemon detail", err)
			}
		})
	}
}

func TestClientUnreachableDaemon(t *testing.T) {
	client, err := New("127.0.0.1:1", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Status(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if client.Ping(context.Background()) {
		t.Error("Ping reported reachable daemon")
	}
}

func TestNewRequiresBind(t *testing.T) {
	if _, err := New("  ", ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}
