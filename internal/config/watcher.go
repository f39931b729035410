package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrUnchanged is returned by [Watcher.Reload] when the file holds the bytes
// already in effect.
var ErrUnchanged = errors.New("config: file unchanged")

// Change is an accepted edit of the watched file.
type Change struct {
	// Diff holds the hot-reloadable part of the edit.
	Diff ConfigDiff

	// RestartPending is set when the edit also touched listen address, TLS
	// or telemetry. Those fields keep their running values until restart.
	RestartPending bool
}

// Watcher keeps the running config in sync with a YAML file. Only the
// server log level and the reconcile section are hot-reloaded; edits to
// restart-only fields are logged and otherwise ignored. An edit that fails
// to parse or validate leaves the running config untouched.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	apply    func(Change)

	// reload serialises Reload calls from the poller and from callers.
	reload sync.Mutex

	mu      sync.Mutex
	running *Config
	raw     []byte
	stamp   fileStamp

	cancel context.CancelFunc
	done   chan struct{}
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger used for reload reports.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher loads path and starts polling it until ctx ends or Stop is
// called. apply receives every edit that changes a hot-reloadable setting;
// it may be nil.
func NewWatcher(ctx context.Context, path string, apply func(Change), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		logger:   slog.Default(),
		apply:    apply,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, raw, stamp, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.running, w.raw, w.stamp = cfg, raw, stamp

	ctx, w.cancel = context.WithCancel(ctx)
	go w.poll(ctx)
	return w, nil
}

// Current returns the config in effect.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stop ends polling and waits for an in-progress reload to finish. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

// Reload re-reads the file now, regardless of its modification time. It
// returns [ErrUnchanged] when the content is what is already running, and
// the load or validation error when the edit was rejected.
func (w *Watcher) Reload() (Change, error) {
	w.reload.Lock()
	defer w.reload.Unlock()

	cfg, raw, stamp, err := w.read()
	if err != nil {
		if raw != nil {
			w.mu.Lock()
			w.stamp = stamp
			w.mu.Unlock()
		}
		w.logger.Warn("config reload rejected", "path", w.path, "err", err)
		return Change{}, err
	}
	return w.commit(cfg, raw, stamp)
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.stale() {
				_, _ = w.Reload()
			}
		}
	}
}

// stale reports whether the file's mtime or size moved since the last read.
func (w *Watcher) stale() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stamp != fileStamp{mtime: info.ModTime(), size: info.Size()}
}

func (w *Watcher) commit(next *Config, raw []byte, stamp fileStamp) (Change, error) {
	w.mu.Lock()
	w.stamp = stamp
	if bytes.Equal(raw, w.raw) {
		w.mu.Unlock()
		return Change{}, ErrUnchanged
	}

	old := w.running
	effective := pinRestartFields(old, next)
	ch := Change{Diff: Diff(old, effective), RestartPending: RestartRequired(old, next)}
	w.running, w.raw = effective, raw
	w.mu.Unlock()

	if ch.RestartPending {
		w.logger.Warn("config edit needs a restart for listen_addr, tls or telemetry; keeping running values",
			"path", w.path)
	}
	if !ch.Diff.LogLevelChanged && !ch.Diff.ReconcileChanged {
		return ch, nil
	}

	w.logger.Info("config reloaded", "path", w.path,
		"log_level_changed", ch.Diff.LogLevelChanged,
		"reconcile_changed", ch.Diff.ReconcileChanged)
	if w.apply != nil {
		w.apply(ch)
	}
	return ch, nil
}

// read loads and validates the file. raw and stamp are returned even when
// validation fails so a rejected edit is not re-read on every poll.
func (w *Watcher) read() (*Config, []byte, fileStamp, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, nil, fileStamp{}, err
	}
	stamp := fileStamp{mtime: info.ModTime(), size: info.Size()}

	raw, err := os.ReadFile(w.path)
	if err != nil {
		return nil, nil, stamp, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, raw, stamp, err
	}
	return cfg, raw, stamp, nil
}

// pinRestartFields returns a copy of next carrying running's restart-only
// settings.
func pinRestartFields(running, next *Config) *Config {
	out := *next
	out.Server.ListenAddr = running.Server.ListenAddr
	out.Server.TLS = running.Server.TLS
	out.Telemetry = running.Telemetry
	return &out
}
