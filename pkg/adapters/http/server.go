package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/pubflow/internal/presentation/graph"
	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend is the build workspace served over HTTP.
type Backend interface {
	// Snapshot returns the task definitions of the workspace.
	Snapshot() []*domain.Task
	// Run executes the named tasks under the project build lock.
	Run(ctx context.Context, names ...string) (*domain.ExecutionReport, error)
}

// Reports is the read side of a run report store.
type Reports interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, runID string) (*domain.ExecutionReport, error)
}

// Server serves the status API of a workspace.
type Server struct {
	Backend  Backend
	Reports  Reports
	Tracker  *observability.Tracker
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
	Version  string
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithReports serves stored run reports.
func WithReports(reports Reports) Option {
	return func(s *Server) { s.Reports = reports }
}

// WithTracker serves the live run state on /status.
func WithTracker(t *observability.Tracker) Option {
	return func(s *Server) { s.Tracker = t }
}

// WithStreams serves executor events on /events.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithGatherer serves the given Prometheus registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.Logger = l }
}

// NewHandler creates a new HTTP handler for the workspace.
func NewHandler(backend Backend, opts ...Option) http.Handler {
	s := &Server{
		Backend: backend,
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/tasks", s.GetTasks)
	r.Get("/graph", s.GetGraph)
	r.Post("/runs", s.PostRun)
	r.Get("/status", s.GetStatus)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.ListReports)
		r.Get("/{id}", s.GetReport)
	})

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.Version != "" {
		resp["version"] = s.Version
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetTasks handles the GET /tasks request.
func (s *Server) GetTasks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Backend.Snapshot())
}

// GetGraph handles the GET /graph request.
// The optional "report" query parameter overlays the statuses of a stored run.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *domain.ExecutionReport
	if id := r.URL.Query().Get("report"); id != "" {
		report, err := s.loadReport(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay = report
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Backend.Snapshot(), overlay))
}

type runRequest struct {
	Tasks []string `json:"tasks"`
}

// PostRun handles the POST /runs request.
func (s *Server) PostRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostRun: Invalid request body", "err", err)
		return
	}
	if len(body.Tasks) == 0 {
		http.Error(w, "No tasks requested", http.StatusBadRequest)
		return
	}

	report, err := s.Backend.Run(r.Context(), body.Tasks...)
	if err != nil {
		s.Logger.Error("Run failed", "tasks", body.Tasks, "err", err)
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	if s.Tracker == nil {
		http.Error(w, "Run tracking not enabled", http.StatusNotFound)
		return
	}
	snap := s.Tracker.Snapshot()
	if snap == nil {
		s.writeJSON(w, http.StatusOK, map[string]bool{"running": false})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ListReports handles the GET /reports request.
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	if s.Reports == nil {
		s.writeJSON(w, http.StatusOK, []string{})
		return
	}
	ids, err := s.Reports.List(r.Context())
	if err != nil {
		s.Logger.Error("List reports failed", "err", err)
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetReport handles the GET /reports/{id} request. The id "latest" resolves
// to the most recent report.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) loadReport(ctx context.Context, id string) (*domain.ExecutionReport, error) {
	if s.Reports == nil {
		return nil, domain.ErrReportNotFound
	}
	if id == "latest" {
		ids, err := s.Reports.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, domain.ErrReportNotFound
		}
		id = ids[0]
	}
	return s.Reports.Load(ctx, id)
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional "run" query parameter limits the stream to one run.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Streams == nil {
		http.Error(w, "Event streaming not enabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	runID := r.URL.Query().Get("run")
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	s.Logger.Info("SSE: Client subscribed", "run_id", runID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "run_id", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownTask), errors.Is(err, domain.ErrCyclicDependency):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLockAcquire):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
