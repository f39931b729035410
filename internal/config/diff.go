package config

import "github.com/MrWong99/redline/internal/reconcile"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; listen address,
// TLS and telemetry changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ReconcileChanged bool
	NewReconcile     reconcile.Options
}

// Diff compares old and new configs and returns what changed.
// Reconcile sections are compared after defaults are applied, so spelling out
// a default value is not reported as a change.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if oldOpts, newOpts := old.Reconcile.Options(), new.Reconcile.Options(); oldOpts != newOpts {
		d.ReconcileChanged = true
		d.NewReconcile = newOpts
	}

	return d
}

// RestartRequired reports whether old and new differ in fields that only
// take effect after a restart.
func RestartRequired(old, new *Config) bool {
	if old.Server.ListenAddr != new.Server.ListenAddr || old.Telemetry != new.Telemetry {
		return true
	}
	switch {
	case old.Server.TLS == nil && new.Server.TLS == nil:
		return false
	case old.Server.TLS == nil || new.Server.TLS == nil:
		return true
	}
	return *old.Server.TLS != *new.Server.TLS
}
