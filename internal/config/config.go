// Package config provides the configuration schema, loader, and hot-reload
// watcher for the redline server.
package config

import (
	"log/slog"

	"github.com/MrWong99/redline/internal/reconcile"
	"github.com/MrWong99/redline/internal/schedule"
)

// LogLevel controls log verbosity for the redline server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for redline.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings for the HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ReconcileConfig holds the server-wide default pass options. Request-level
// options override them field by field. Booleans are pointers so that an
// omitted key keeps the engine default (true) rather than YAML's zero value.
type ReconcileConfig struct {
	MinConfidence       float64                `yaml:"min_confidence"`
	ApplyAll            *bool                  `yaml:"apply_all"`
	AllowPartialMatch   *bool                  `yaml:"allow_partial_match"`
	MergeSegments       *bool                  `yaml:"merge_segments"`
	SegmentPolicy       schedule.SegmentPolicy `yaml:"segment_policy"`
	MaxConcurrentPasses int                    `yaml:"max_concurrent_passes"`
}

// Options converts the section into engine options, filling unset values
// from [reconcile.DefaultOptions].
func (c ReconcileConfig) Options() reconcile.Options {
	o := reconcile.DefaultOptions()
	o.MinConfidence = c.MinConfidence
	if c.ApplyAll != nil {
		o.ApplyAll = *c.ApplyAll
	}
	if c.AllowPartialMatch != nil {
		o.AllowPartialMatch = *c.AllowPartialMatch
	}
	if c.MergeSegments != nil {
		o.MergeSegments = *c.MergeSegments
	}
	if c.SegmentPolicy != "" {
		o.SegmentPolicy = c.SegmentPolicy
	}
	if c.MaxConcurrentPasses > 0 {
		o.MaxConcurrentPasses = c.MaxConcurrentPasses
	}
	return o
}

// TelemetryConfig names the service in exported metrics and traces.
type TelemetryConfig struct {
	// ServiceName defaults to "redline".
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// SlogLevel maps l to a [slog.Level]. The empty level is info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
