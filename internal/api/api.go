// Package api serves the reconciliation engine over HTTP.
//
// Routes:
//
//   - POST /v1/reconcile: one document and its suggestions.
//   - POST /v1/reconcile/batch: several independent documents, reconciled
//     concurrently.
//
// Request bodies are validated with go-playground/validator; malformed
// individual suggestions are not request errors and come back as skipped
// outcomes instead.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/redline/internal/health"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/reconcile"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 16 << 20

// Server handles the reconcile routes. Its default pass options can be
// swapped at runtime with [Server.SetOptions].
type Server struct {
	opts     atomic.Pointer[reconcile.Options]
	metrics  *observe.Metrics
	validate *validator.Validate
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics the server's engines record to.
// Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New returns a Server whose requests default to opts.
func New(opts reconcile.Options, options ...Option) *Server {
	s := &Server{validate: validator.New(validator.WithRequiredStructEnabled())}
	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for _, o := range options {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.SetOptions(opts)
	return s
}

// SetOptions replaces the default pass options for subsequent requests.
func (s *Server) SetOptions(opts reconcile.Options) {
	s.opts.Store(&opts)
}

// Options returns the current default pass options.
func (s *Server) Options() reconcile.Options {
	return *s.opts.Load()
}

// Register adds the reconcile routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reconcile", s.handleReconcile)
	mux.HandleFunc("POST /v1/reconcile/batch", s.handleBatch)
}

// NewHandler assembles the full server surface: reconcile routes, health
// probes and the Prometheus scrape endpoint for gatherer, wrapped in the
// observability middleware.
func NewHandler(s *Server, h *health.Handler, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) engine(override *OptionsOverride) (*reconcile.Engine, error) {
	opts := override.apply(s.Options())
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return reconcile.New(reconcile.WithOptions(opts), reconcile.WithMetrics(s.metrics)), nil
}

// decodeBody reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", formatValidationErrors(err)...)
		return false
	}
	return true
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReconcileRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	eng, err := s.engine(req.Options)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid options", err.Error())
		return
	}
	doc, batch, dropped, err := req.decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	res, err := eng.Reconcile(ctx, doc, batch)
	if err != nil {
		observe.Logger(ctx).Warn("reconcile aborted", slog.Any("err", err))
		respondError(w, http.StatusServiceUnavailable, "reconciliation aborted", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, newResponse("", res, dropped))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req BatchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	eng, err := s.engine(req.Options)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid options", err.Error())
		return
	}

	jobs := make([]reconcile.Job, len(req.Jobs))
	dropped := make([]int, len(req.Jobs))
	var problems []string
	for i, j := range req.Jobs {
		doc, batch, n, err := ReconcileRequest{Format: j.Format, Document: j.Document, Suggestions: j.Suggestions}.decode()
		if err != nil {
			problems = append(problems, fmt.Sprintf("jobs[%d] (%s): %v", i, j.ID, err))
			continue
		}
		jobs[i] = reconcile.Job{ID: j.ID, Document: doc, Suggestions: batch}
		dropped[i] = n
	}
	if len(problems) > 0 {
		respondError(w, http.StatusBadRequest, "invalid request", problems...)
		return
	}

	results, err := eng.ReconcileBatch(ctx, jobs)
	if err != nil {
		observe.Logger(ctx).Warn("batch reconcile aborted", slog.Any("err", err))
		respondError(w, http.StatusServiceUnavailable, "reconciliation aborted", err.Error())
		return
	}
	out := BatchResponse{Results: make([]ReconcileResponse, len(results))}
	for i, res := range results {
		out.Results[i] = newResponse(jobs[i].ID, res, dropped[i])
	}
	respondJSON(w, http.StatusOK, out)
}
