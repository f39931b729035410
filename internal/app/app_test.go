package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/redline/internal/app"
	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/schedule"
)

func newTestApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	base := []app.Option{app.WithListener(l), app.WithMetrics(m), app.WithGatherer(prometheus.NewRegistry())}
	a, err := app.New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func get(t *testing.T, a *app.App, path string) int {
	t.Helper()
	resp, err := http.Get("http://" + a.Addr().String() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestApp_Lifecycle(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &config.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	// Serve may not have started accepting yet; the listener queues the
	// connection, so the first request still succeeds.
	if status := get(t, a, "/readyz"); status != http.StatusOK {
		t.Fatalf("/readyz status=%d, want 200", status)
	}

	resp, err := http.Post("http://"+a.Addr().String()+"/v1/reconcile", "application/json",
		strings.NewReader(`{"document": {"segments": [{"speakerId": "a", "start": 0, "end": 1, "text": "tere"}]}, "suggestions": [{"originalText": "tere", "suggestedText": "Tere"}]}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /v1/reconcile status=%d", resp.StatusCode)
	}

	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := a.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	// Idempotent.
	if err := a.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if _, err := http.Get("http://" + a.Addr().String() + "/healthz"); err == nil {
		t.Error("server still accepting after Shutdown")
	}
}

func TestApp_RunReturnsNilAfterShutdown(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &config.Config{})
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(context.Background()) }()
	_ = get(t, a, "/healthz")

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestApp_ApplyChange(t *testing.T) {
	t.Parallel()

	lv := new(slog.LevelVar)
	oldCfg := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	a := newTestApp(t, oldCfg, app.WithLevelVar(lv))
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	if lv.Level() != slog.LevelInfo {
		t.Fatalf("initial level=%s, want INFO", lv.Level())
	}

	newCfg := &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogDebug},
		Reconcile: config.ReconcileConfig{SegmentPolicy: schedule.SegmentPolicyStrict, MinConfidence: 0.3},
	}
	a.ApplyChange(config.Change{Diff: config.Diff(oldCfg, newCfg)})

	if lv.Level() != slog.LevelDebug {
		t.Errorf("level=%s, want DEBUG", lv.Level())
	}
	got := a.API().Options()
	if got.SegmentPolicy != schedule.SegmentPolicyStrict || got.MinConfidence != 0.3 {
		t.Errorf("options=%+v, want strict/0.3", got)
	}
}

func TestApp_CloserOrder(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &config.Config{})
	var order []int
	a.AddCloser(func() error { order = append(order, 1); return nil })
	a.AddCloser(func() error { order = append(order, 2); return errors.New("ignored") })
	a.AddCloser(func() error { order = append(order, 3); return nil })

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Errorf("closer order=%v, want [1 2 3]", order)
	}
}

func TestNew_ListenError(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	cfg := &config.Config{Server: config.ServerConfig{ListenAddr: l.Addr().String()}}
	if _, err := app.New(context.Background(), cfg); err == nil {
		t.Error("expected error when address is in use")
	}
}
