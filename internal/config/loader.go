package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals. An
// empty document yields the zero Config, which is valid.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Reconcile
	rc := cfg.Reconcile
	if rc.MinConfidence < 0 || rc.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("reconcile.min_confidence %.2f is out of range [0, 1]", rc.MinConfidence))
	}
	if !rc.SegmentPolicy.Valid() {
		errs = append(errs, fmt.Errorf("reconcile.segment_policy %q is invalid; valid values: any, strict", rc.SegmentPolicy))
	}
	if rc.MaxConcurrentPasses < 0 {
		errs = append(errs, fmt.Errorf("reconcile.max_concurrent_passes %d must not be negative", rc.MaxConcurrentPasses))
	}
	if rc.MinConfidence == 1 {
		slog.Warn("reconcile.min_confidence is 1; only suggestions with full confidence will be applied")
	}

	return errors.Join(errs...)
}
