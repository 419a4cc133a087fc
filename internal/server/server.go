package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/storage"
)

// maxBodySize caps request bodies. A /visited call from the extension
// carries every URL on the page, so this is generous.
const maxBodySize = 8 << 20

// Querier is the query surface the server exposes. *engine.Engine
// implements it.
type Querier interface {
	Lookup(ctx context.Context, url string) (*engine.Envelope, error)
	Search(ctx context.Context, query string) (*engine.Envelope, error)
	LookupAround(ctx context.Context, ts float64) (*engine.Envelope, error)
	LookupBatch(ctx context.Context, urls []string, clientVersion string) ([]*engine.ShapedVisit, error)
	Status(ctx context.Context) engine.Status
}

// Server serves the browser extension API.
type Server struct {
	q        Querier
	logger   *slog.Logger
	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
	metrics  *metrics
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and error logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry registers metrics on reg and serves /metrics from it instead
// of the Prometheus default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.reg, s.gatherer = reg, reg
		}
	}
}

// New builds the router.
func New(q Querier, opts ...Option) (*Server, error) {
	s := &Server{
		q:        q,
		logger:   slog.Default(),
		reg:      prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, o := range opts {
		o(s)
	}

	m, err := newMetrics(s.reg)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(cors)

	for path, h := range map[string]http.HandlerFunc{
		"/visits":        s.handleVisits,
		"/search":        s.handleSearch,
		"/search_around": s.handleSearchAround,
		"/visited":       s.handleVisited,
		"/status":        s.handleStatus,
	} {
		r.Get(path, h)
		r.Post(path, h)
	}
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// --- Handlers ---

type urlRequest struct {
	URL string `json:"url"`
}

type aroundRequest struct {
	Timestamp *float64 `json:"timestamp"`
}

type visitedRequest struct {
	URLs          []string `json:"urls"`
	ClientVersion string   `json:"client_version"`
}

func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	s.handleURL(w, r, s.q.Lookup)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.handleURL(w, r, s.q.Search)
}

func (s *Server) handleURL(w http.ResponseWriter, r *http.Request,
	query func(context.Context, string) (*engine.Envelope, error)) {

	var req urlRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		req.URL = r.URL.Query().Get("url")
	}
	if req.URL == "" {
		s.writeError(w, r, badRequest("url is required"))
		return
	}

	env, err := query(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleSearchAround(w http.ResponseWriter, r *http.Request) {
	var req aroundRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else if raw := r.URL.Query().Get("timestamp"); raw != "" {
		ts, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, r, badRequest("timestamp must be a number"))
			return
		}
		req.Timestamp = &ts
	}
	if req.Timestamp == nil {
		s.writeError(w, r, badRequest("timestamp is required"))
		return
	}

	env, err := s.q.LookupAround(r.Context(), *req.Timestamp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleVisited(w http.ResponseWriter, r *http.Request) {
	var req visitedRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		q := r.URL.Query()
		req.URLs = q["urls"]
		req.ClientVersion = q.Get("client_version")
	}

	visits, err := s.q.LookupBatch(r.Context(), req.URLs, req.ClientVersion)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.q.Status(r.Context()))
}

// --- Helpers ---

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.As(err, &reqErr):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrSchemaNotInitialized):
		status = http.StatusServiceUnavailable
		msg = "visits database is not indexed yet, run the indexer first"
	case errors.Is(err, storage.ErrStoreNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// Client went away.
		return
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Middleware ---

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// cors lets the browser extension call the API from any page origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
