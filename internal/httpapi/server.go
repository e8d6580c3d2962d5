// Package httpapi exposes the coordinator over a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatscribe/internal/config"
	"chatscribe/internal/coordinator"
	"chatscribe/internal/ledger"
	"chatscribe/internal/logging"
	"chatscribe/internal/services"
)

// Server serves batch submission and status endpoints.
type Server struct {
	cfg    *config.Config
	coord  *coordinator.Coordinator
	store  *ledger.Store
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New constructs the API server. store may be nil when history is disabled.
func New(cfg *config.Config, coord *coordinator.Coordinator, store *ledger.Store, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:    cfg,
		coord:  coord,
		store:  store,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestContext)

	router.Get("/healthz", srv.handleHealth)
	router.Route("/api", func(r chi.Router) {
		r.Post("/batches", srv.handleSubmitBatch)
		r.Get("/batches", srv.handleListBatches)
		r.Get("/batches/{batchID}", srv.handleGetBatch)
		r.Delete("/batches/{batchID}", srv.handleCancelBatch)
		r.Get("/jobs", srv.handleListJobs)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// requestContext threads the chi request ID through the services context so
// log lines carry it.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins serving on the configured bind address and shuts down when ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	if bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", bind)
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
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healths := s.coord.HealthCheck(r.Context())
	ready := true
	stages := make([]stageHealthView, 0, len(healths))
	for _, h := range healths {
		if !h.Ready {
			ready = false
		}
		stages = append(stages, stageHealthView{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, healthResponse{Ready: ready, Stages: stages})
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Archives) == 0 {
		s.writeError(w, http.StatusBadRequest, "archives list is empty")
		return
	}

	paths := make([]string, 0, len(req.Archives))
	for _, name := range req.Archives {
		name = strings.TrimSpace(name)
		if name == "" {
			s.writeError(w, http.StatusBadRequest, "empty archive name")
			return
		}
		// Relative names resolve against the upload directory.
		if !filepath.IsAbs(name) {
			if filepath.Base(name) != name {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("archive name %q must not contain path separators", name))
				return
			}
			name = filepath.Join(s.cfg.Paths.UploadDir, name)
		}
		paths = append(paths, name)
	}

	batch, err := s.coord.SubmitBatch(r.Context(), paths)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, batchView(batch.Snapshot()))
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches := s.coord.Batches()
	views := make([]batchResponse, 0, len(batches))
	for _, batch := range batches {
		views = append(views, batchView(batch.Snapshot()))
	}
	s.writeJSON(w, http.StatusOK, batchListResponse{Batches: views})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.coord.Batch(chi.URLParam(r, "batchID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	s.writeJSON(w, http.StatusOK, batchView(batch.Snapshot()))
}

func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.coord.Batch(chi.URLParam(r, "batchID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	batch.Cancel()
	s.writeJSON(w, http.StatusAccepted, batchView(batch.Snapshot()))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: []jobRecordView{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]jobRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, recordView(record))
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: views})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
