// Package webui serves a prepared sales Dataset over HTTP. Datasets are
// immutable; a reload swaps in a new one while requests in flight finish on
// the old.
//
// Routes:
//
//	GET  /            → minimal dashboard page
//	GET  /healthz     → liveness
//	GET  /api/options → filter options per dimension
//	GET  /api/report  → KPIs and charts; query params are the selection,
//	                    e.g. ?province=California&city=Sekiu,Kerby
//	POST /api/reload  → re-read the sources (only when Config.Reload is set)
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"

	"salesreport/internal/filter"
	"salesreport/internal/report"
)

// Config controls server startup.
type Config struct {
	Addr string
	// AllowedOrigins lists CORS origins; empty allows localhost only.
	AllowedOrigins []string
	Logger         *slog.Logger

	// Reload re-reads the sources and returns the Dataset to serve; changed
	// is false when nothing was prepared again. Nil disables reloading.
	Reload func(ctx context.Context) (ds *report.Dataset, changed bool, err error)
	// ReloadInterval, when positive, calls Reload on a ticker while the
	// server runs.
	ReloadInterval time.Duration
	Clock          clockwork.Clock
}

// Server routes requests to a Dataset.
type Server struct {
	cfg    Config
	router *chi.Mux
	ds     atomic.Pointer[report.Dataset]
	log    *slog.Logger
	srv    *http.Server
}

// NewServer constructs a Server with routes over ds.
func NewServer(cfg Config, ds *report.Dataset) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	s := &Server{cfg: cfg, router: chi.NewRouter(), log: log}
	s.ds.Store(ds)
	s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server and, when configured, the reload
// ticker. The ticker stops when the server does.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)
	return s.srv.ListenAndServe()
}

// Reload asks Config.Reload for the current Dataset and serves it. A failed
// reload keeps the previous Dataset.
func (s *Server) Reload(ctx context.Context) (bool, error) {
	if s.cfg.Reload == nil {
		return false, nil
	}
	ds, changed, err := s.cfg.Reload(ctx)
	if err != nil {
		return false, err
	}
	if changed {
		s.ds.Store(ds)
		s.log.Info("webui: dataset reloaded", "rows", ds.Table().Len())
	}
	return changed, nil
}

// Watch reloads every ReloadInterval until ctx ends. It returns at once when
// no interval or Reload is configured.
func (s *Server) Watch(ctx context.Context) {
	if s.cfg.Reload == nil || s.cfg.ReloadInterval <= 0 {
		return
	}
	tick := s.cfg.Clock.NewTicker(s.cfg.ReloadInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Chan():
			if _, err := s.Reload(ctx); err != nil {
				s.log.Warn("webui: reload failed, serving previous dataset", "err", err)
			}
		}
	}
}

func (s *Server) routes() {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/report", s.handleReport)
		if s.cfg.Reload != nil {
			r.Post("/reload", s.handleReload)
		}
	})
}

// logRequests logs one line per request through slog.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("webui: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Truncate(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": s.ds.Load().Table().Len()})
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ds.Load().Options())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	changed, err := s.Reload(r.Context())
	if err != nil {
		s.log.Error("webui: reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "rows": s.ds.Load().Table().Len()})
}

// handleReport treats every query parameter as a dimension. No parameters
// means no filtering; "dim=" selects the empty set.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var sel filter.Selection
	if q := r.URL.Query(); len(q) > 0 {
		sel = filter.ParseSelection(q)
	}
	res, err := s.ds.Load().Run(sel)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, filter.ErrUnknownDimension):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.log.Error("webui: report failed", "selection", sel.String(), "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// indexHTML is an embedded page that renders /api/report as plain tables.
//
//go:embed index.html
var indexHTML []byte
