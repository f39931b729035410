// Package app wires the redline server subsystems into a running
// application.
//
// The App struct owns the full lifecycle: New creates the listener, the
// reconcile API and the health probes, Run serves until the context ends, and
// Shutdown drains and tears everything down in order.
//
// For testing, inject a listener or metrics via functional options
// (WithListener, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrWong99/redline/internal/api"
	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/health"
	"github.com/MrWong99/redline/internal/observe"
)

// DefaultListenAddr is used when the config names no address.
const DefaultListenAddr = ":8080"

// App owns all subsystem lifetimes of the redline server.
type App struct {
	cfg *config.Config

	// Subsystems, initialised in New and torn down in Shutdown.
	listener net.Listener
	api      *api.Server
	health   *health.Handler
	server   *http.Server
	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
	level    *slog.LevelVar

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithListener serves on l instead of listening on the configured address.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// WithMetrics injects the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithGatherer sets what /metrics exposes. Default: [prometheus.DefaultGatherer].
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) { a.gatherer = g }
}

// WithLevelVar lets the App change the log level on hot reload.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App from cfg. The listener is opened immediately so that
// address conflicts surface before Run.
func New(_ context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.DefaultGatherer
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}
	a.level.Set(cfg.Server.LogLevel.SlogLevel())

	// ── 1. Listener ──────────────────────────────────────────────────────
	if a.listener == nil {
		addr := cfg.Server.ListenAddr
		if addr == "" {
			addr = DefaultListenAddr
		}
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("app: listen %q: %w", addr, err)
		}
		a.listener = l
	}

	// ── 2. API + health ──────────────────────────────────────────────────
	a.api = api.New(cfg.Reconcile.Options(), api.WithMetrics(a.metrics))
	a.health = health.New(health.Checker{
		Name: "options",
		Check: func(context.Context) error {
			opts := a.api.Options()
			return opts.Validate()
		},
	})

	// ── 3. HTTP server ───────────────────────────────────────────────────
	a.server = &http.Server{
		Handler:           api.NewHandler(a.api, a.health, a.gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.closers = append(a.closers, func() error {
		// Shutdown already closed the listener; Close is idempotent.
		err := a.listener.Close()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	})

	return a, nil
}

// Addr returns the address the App serves on.
func (a *App) Addr() net.Addr { return a.listener.Addr() }

// API returns the reconcile API server.
func (a *App) API() *api.Server { return a.api }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is done or the server fails. It returns ctx.Err()
// when ctx ends; call Shutdown afterwards to drain in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- a.server.ServeTLS(a.listener, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.server.Serve(a.listener)
	}()

	slog.Info("app running", "addr", a.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyChange is the config watcher callback. It applies a hot-reloadable
// edit; restart-only settings are already pinned by the watcher.
func (a *App) ApplyChange(ch config.Change) {
	d := ch.Diff
	if d.LogLevelChanged {
		a.level.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ReconcileChanged {
		a.api.SetOptions(d.NewReconcile)
		slog.Info("reconcile options changed",
			"min_confidence", d.NewReconcile.MinConfidence,
			"apply_all", d.NewReconcile.ApplyAll,
			"allow_partial_match", d.NewReconcile.AllowPartialMatch,
			"merge_segments", d.NewReconcile.MergeSegments,
			"segment_policy", d.NewReconcile.SegmentPolicy,
		)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown marks the App as draining, so /readyz fails, then stops accepting
// requests and waits for in-flight ones. It respects the context deadline: if
// ctx expires before all closers finish, remaining closers are skipped and
// the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		a.health.SetDraining()

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		// Run closers in order.
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// AddCloser registers fn to run during Shutdown, after the HTTP server has
// stopped. Closers run in registration order.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}
