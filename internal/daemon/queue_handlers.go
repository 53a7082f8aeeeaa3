package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"reelsync/internal/queue"
	"reelsync/internal/title"
)

type queueListResponse struct {
	Items []*queue.Item `json:"items"`
}

func (s *apiServer) handleQueueList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []queue.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := queue.Status(strings.TrimSpace(part))
			if !status.IsValid() {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, queueListResponse{Items: items})
}

type queueAddRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Source   string `json:"source"`
}

// handleQueueAdd enqueues one item manually, outside reconciliation. Items
// are deduplicated by catalog URL.
func (s *apiServer) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queueAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "title and url are required")
		return
	}

	if existing, err := s.daemon.store.FindByURL(r.Context(), req.URL); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if existing != nil {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("item %d already tracks this url", existing.ID))
		return
	}

	item, err := s.daemon.store.Enqueue(r.Context(), &queue.Item{
		Title:       req.Title,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		Source:      req.Source,
		ContentType: string(title.Classify(req.Title)),
		Status:      queue.StatusPending,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

type queueMutationResponse struct {
	Affected int64 `json:"affected"`
}

// queueMutationHandler wraps a store maintenance call as a POST endpoint.
func (s *apiServer) queueMutationHandler(mutate func(ctx context.Context) (int64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		affected, err := mutate(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, queueMutationResponse{Affected: affected})
	}
}
