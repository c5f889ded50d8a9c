package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"picpic.bench/internal/adapters/events/redis"
	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/ports"
	"picpic.bench/internal/core/services"
)

// Server exposes the reports of the current run, the archive of past runs and a live
// event stream.
type Server struct {
	router    *chi.Mux
	store     *services.ReportStore
	archive   ports.ReportArchive
	failures  *redis.FailureLog
	healthSvc *services.HealthService
	hub       *Hub
	http      *http.Server
}

// NewServer builds the router. archive and failures may be nil.
func NewServer(store *services.ReportStore, archive ports.ReportArchive, failures *redis.FailureLog, healthSvc *services.HealthService, hub *Hub) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		archive:   archive,
		failures:  failures,
		healthSvc: healthSvc,
		hub:       hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(MetricsMiddleware) // Add metrics middleware
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Metrics endpoint
	s.router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		MetricsHandler().ServeHTTP(w, r)
	})

	// Kubernetes probes
	s.router.Get("/health/live", s.handleLiveness)
	s.router.Get("/health/ready", s.handleReadiness)
	s.router.Get("/api/health/detailed", s.handleDetailedHealth)

	s.router.Get("/api/ws", s.handleWS)

	s.router.Route("/api/reports", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Get("/{dataset}", s.handleGetReport)
	})

	s.router.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{runID}/failures", s.handleListFailures)
		r.Get("/{runID}/{dataset}", s.handleGetArchived)
	})
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, code, body)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	// Liveness probe - just check if server is running
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	// Readiness probe - check if server can handle requests
	status, code := s.healthSvc.SimpleHealthCheck(r.Context())
	w.WriteHeader(code)
	w.Write([]byte(status))
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	report := s.healthSvc.CheckHealth(r.Context())

	// Set appropriate status code based on health status
	statusCode := http.StatusOK
	if report.Status == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, report)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ServeWs(s.hub, w, r)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dataset")
	report, ok := s.store.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no report for dataset "+name, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotImplemented, "archive disabled", nil)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 100 {
			limit = val
		}
	}

	runs, err := s.archive.ListRuns(r.Context(), r.URL.Query().Get("dataset"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotImplemented, "archive disabled", nil)
		return
	}
	report, err := s.archive.Get(r.Context(), chi.URLParam(r, "runID"), chi.URLParam(r, "dataset"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	if s.failures == nil {
		writeError(w, http.StatusNotImplemented, "failure log disabled", nil)
		return
	}

	offset, limit := int64(0), int64(50)
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.ParseInt(o, 10, 64); err == nil && val >= 0 {
			offset = val
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.ParseInt(l, 10, 64); err == nil && val > 0 && val <= 500 {
			limit = val
		}
	}

	runID := chi.URLParam(r, "runID")
	entries, err := s.failures.List(r.Context(), runID, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list failures", err)
		return
	}
	total, err := s.failures.Count(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count failures", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   runID,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
		"failures": entries,
	})
}
