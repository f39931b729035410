package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/redline/internal/app"
	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/observe"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconcile HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", configPath)
		}
		return err
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	lv := levelVar(cfg.Server.LogLevel)
	slog.SetDefault(newLogger(os.Stderr, lv))

	slog.Info("redline starting",
		"version", version,
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	serviceVersion := cfg.Telemetry.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, app.WithLevelVar(lv))
	if err != nil {
		_ = otelShutdown(context.Background())
		return err
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(ctx, configPath, application.ApplyChange)
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		stopHUP := reloadOnHangup(watcher)
		application.AddCloser(func() error {
			stopHUP()
			watcher.Stop()
			return nil
		})
	}

	slog.Info("server ready; press Ctrl+C to shut down", "addr", application.Addr().String())

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	err = errors.Join(application.Shutdown(shutdownCtx), otelShutdown(shutdownCtx))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = errors.Join(runErr, err)
	}
	if err != nil {
		return err
	}
	slog.Info("goodbye")
	return nil
}

// reloadOnHangup re-reads the config on SIGHUP without waiting for the next
// poll. The returned func stops listening.
func reloadOnHangup(w *config.Watcher) func() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-hup:
				if _, err := w.Reload(); errors.Is(err, config.ErrUnchanged) {
					slog.Info("SIGHUP: config unchanged")
				}
			}
		}
	}()
	return func() {
		signal.Stop(hup)
		close(done)
	}
}
