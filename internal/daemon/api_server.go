package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"reelsync/internal/config"
	"reelsync/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/health", authMiddleware(token, srv.handleHealth))
	mux.HandleFunc("/api/reconcile", authMiddleware(token, srv.stageHandler(func(ctx context.Context) (any, error) {
		return d.pipeline.Reconcile(ctx)
	})))
	mux.HandleFunc("/api/acquire", authMiddleware(token, srv.stageHandler(func(ctx context.Context) (any, error) {
		return d.pipeline.Acquire(ctx)
	})))
	mux.HandleFunc("/api/run", authMiddleware(token, srv.stageHandler(func(ctx context.Context) (any, error) {
		return d.pipeline.Run(ctx)
	})))
	mux.HandleFunc("/api/queue", authMiddleware(token, srv.handleQueueList))
	mux.HandleFunc("/api/queue/add", authMiddleware(token, srv.handleQueueAdd))
	mux.HandleFunc("/api/queue/clear", authMiddleware(token, srv.queueMutationHandler(d.store.Clear)))
	mux.HandleFunc("/api/queue/clear-failed", authMiddleware(token, srv.queueMutationHandler(d.store.ClearFailed)))
	mux.HandleFunc("/api/queue/clear-succeeded", authMiddleware(token, srv.queueMutationHandler(d.store.ClearSucceeded)))
	mux.HandleFunc("/api/queue/reset", authMiddleware(token, srv.queueMutationHandler(d.store.ResetStuck)))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Stage endpoints block until the stage finishes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr reports the bound address, available once start succeeded.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type healthResponse struct {
	Status           string `json:"status"`
	Provider         string `json:"provider"`
	StorageReachable bool   `json:"storage_reachable"`
	QueueTotal       int    `json:"queue_total"`
	QueuePending     int    `json:"queue_pending"`
	QueueFailed      int    `json:"queue_failed"`
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload := healthResponse{Status: "ok"}
	if s.daemon.storage != nil {
		payload.Provider = s.daemon.storage.ProviderName()
		payload.StorageReachable = s.daemon.storage.TestConnection(r.Context())
		if !payload.StorageReachable {
			payload.Status = "degraded"
		}
	}
	health, err := s.daemon.pipeline.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload.QueueTotal = health.Total
	payload.QueuePending = health.Pending
	payload.QueueFailed = health.Failed
	s.writeJSON(w, http.StatusOK, payload)
}

// stageHandler wraps a pipeline stage as a POST endpoint. Stages run inline
// and at most one at a time; a busy daemon answers 409.
func (s *apiServer) stageHandler(stage func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !s.daemon.tryAcquireRun() {
			s.writeError(w, http.StatusConflict, "a stage is already running")
			return
		}
		defer s.daemon.releaseRun()

		report, err := stage(r.Context())
		if err != nil {
			s.logger.Error("stage failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, report)
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
