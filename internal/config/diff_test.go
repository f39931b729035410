package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/schedule"
)

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

func TestDiff(t *testing.T) {
	t.Parallel()

	base := "server:\n  log_level: info\n"

	tests := []struct {
		name          string
		newYAML       string
		wantLogLevel  bool
		wantReconcile bool
	}{
		{name: "identical", newYAML: base},
		{name: "log level", newYAML: "server:\n  log_level: warn\n", wantLogLevel: true},
		{
			name:          "reconcile option",
			newYAML:       base + "reconcile:\n  segment_policy: strict\n",
			wantReconcile: true,
		},
		{
			name:    "explicit default is not a change",
			newYAML: base + "reconcile:\n  apply_all: true\n  segment_policy: any\n",
		},
		{
			name:    "listen address is not hot reloadable",
			newYAML: "server:\n  log_level: info\n  listen_addr: \":1234\"\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := config.Diff(mustLoad(t, base), mustLoad(t, tc.newYAML))
			if d.LogLevelChanged != tc.wantLogLevel {
				t.Errorf("LogLevelChanged = %v, want %v", d.LogLevelChanged, tc.wantLogLevel)
			}
			if d.ReconcileChanged != tc.wantReconcile {
				t.Errorf("ReconcileChanged = %v, want %v", d.ReconcileChanged, tc.wantReconcile)
			}
		})
	}
}

func TestDiff_CarriesNewValues(t *testing.T) {
	t.Parallel()

	d := config.Diff(
		mustLoad(t, "server:\n  log_level: info\n"),
		mustLoad(t, "server:\n  log_level: error\nreconcile:\n  segment_policy: strict\n"),
	)
	if d.NewLogLevel != config.LogError {
		t.Errorf("NewLogLevel = %q, want error", d.NewLogLevel)
	}
	if d.NewReconcile.SegmentPolicy != schedule.SegmentPolicyStrict || !d.NewReconcile.ApplyAll {
		t.Errorf("NewReconcile = %+v", d.NewReconcile)
	}
}

func TestRestartRequired(t *testing.T) {
	t.Parallel()

	base := mustLoad(t, "server:\n  listen_addr: \":8080\"\n")
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{"same", "server:\n  listen_addr: \":8080\"\n", false},
		{"log level only", "server:\n  listen_addr: \":8080\"\n  log_level: debug\n", false},
		{"listen addr", "server:\n  listen_addr: \":9090\"\n", true},
		{"tls added", "server:\n  listen_addr: \":8080\"\n  tls:\n    cert_file: c\n    key_file: k\n", true},
		{"service name", "server:\n  listen_addr: \":8080\"\ntelemetry:\n  service_name: other\n", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := config.RestartRequired(base, mustLoad(t, tc.yaml)); got != tc.want {
				t.Errorf("RestartRequired = %v, want %v", got, tc.want)
			}
		})
	}
}
