package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/MrWong99/redline/internal/classify"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/schedule"
)

// DefaultMaxConcurrentPasses bounds [Engine.ReconcileBatch] when no limit is
// configured.
const DefaultMaxConcurrentPasses = 4

// Options are the caller-facing knobs of a reconciliation pass.
type Options struct {
	// MinConfidence rejects suggestions below it. Default 0.
	MinConfidence float64 `json:"minConfidence" validate:"gte=0,lte=1"`

	// ApplyAll ignores per-suggestion autoApply flags. Default true.
	ApplyAll bool `json:"applyAll"`

	// AllowPartialMatch enables the punctuation-normalized and flexible
	// locator strategies. Default true.
	AllowPartialMatch bool `json:"allowPartialMatch"`

	// MergeSegments runs the merge pass after patching. Default true.
	MergeSegments bool `json:"mergeSegments"`

	// SegmentPolicy decides how segmentIndex hints are enforced.
	SegmentPolicy schedule.SegmentPolicy `json:"segmentPolicy,omitempty" validate:"omitempty,oneof=any strict"`

	// MaxConcurrentPasses bounds ReconcileBatch. Default 4.
	MaxConcurrentPasses int `json:"maxConcurrentPasses,omitempty" validate:"gte=0"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ApplyAll:            true,
		AllowPartialMatch:   true,
		MergeSegments:       true,
		SegmentPolicy:       schedule.SegmentPolicyAny,
		MaxConcurrentPasses: DefaultMaxConcurrentPasses,
	}
}

// Validate reports option values the engine cannot honour.
func (o Options) Validate() error {
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("reconcile: minConfidence %v outside [0,1]", o.MinConfidence)
	}
	if !o.SegmentPolicy.Valid() {
		return fmt.Errorf("reconcile: unknown segment policy %q", o.SegmentPolicy)
	}
	if o.MaxConcurrentPasses < 0 {
		return fmt.Errorf("reconcile: maxConcurrentPasses %d is negative", o.MaxConcurrentPasses)
	}
	return nil
}

func (o Options) scheduleOptions() schedule.Options {
	return schedule.Options{
		MinConfidence:     o.MinConfidence,
		ApplyAll:          o.ApplyAll,
		AllowPartialMatch: o.AllowPartialMatch,
		SegmentPolicy:     o.SegmentPolicy,
	}
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithOptions replaces the engine's pass options.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		e.opts = o
	}
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger pins the logger. By default the logger is derived per pass from
// the context via [observe.Logger].
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClassifier sets the change classifier used for outcome kinds.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}
