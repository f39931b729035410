// Package reconcile runs a complete reconciliation pass: schedule a
// suggestion batch against a document, apply the plan, then re-merge
// segments whose sentence boundary an accepted correction erased.
//
// A pass is a deterministic function of its document, suggestions and
// options. It never shares state with other passes, so independent
// documents may be reconciled concurrently (see [Engine.ReconcileBatch]).
// Per-suggestion problems never surface as Go errors; they are reported as
// [Outcome]s.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/redline/internal/classify"
	"github.com/MrWong99/redline/internal/locate"
	"github.com/MrWong99/redline/internal/merge"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/patch"
	"github.com/MrWong99/redline/internal/schedule"
	"github.com/MrWong99/redline/pkg/suggestion"
	"github.com/MrWong99/redline/pkg/transcript"
)

// Outcome is the final disposition of one input suggestion.
type Outcome struct {
	Suggestion suggestion.Suggestion `json:"suggestion"`
	Status     suggestion.Status     `json:"status"`
	Reason     suggestion.Reason     `json:"reason,omitempty"`
	Detail     string                `json:"detail,omitempty"`

	// Matches is the candidate count behind an Ambiguous skip.
	Matches int `json:"matches,omitempty"`

	// Span is the located span in the document as it was when the pass
	// started. It is nil when location never succeeded.
	Span *locate.Span `json:"span,omitempty"`

	Strategy string        `json:"strategy,omitempty"`
	Partial  bool          `json:"partial,omitempty"`

	// Matched is the document text the span covered. For partial matches it
	// differs from the suggestion's original text.
	Matched string `json:"matched,omitempty"`
	Kind     classify.Kind `json:"kind,omitempty"`
}

// SegmentChange is the before/after text of a segment edited by patches.
// Index refers to the document as it was before the pass.
type SegmentChange struct {
	Index  int    `json:"index"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// MergeFailure is a merge candidate that could not be executed.
type MergeFailure struct {
	merge.Candidate
	Error string `json:"error"`
}

// Result is the report of one pass.
type Result struct {
	Document transcript.Document `json:"-"`

	AppliedCount int `json:"appliedCount"`
	SkippedCount int `json:"skippedCount"`

	// Outcomes is in input order, one per suggestion.
	Outcomes []Outcome `json:"outcomes"`

	SegmentChanges []SegmentChange `json:"segmentChanges"`
	Merges         []merge.Merged  `json:"merges"`
	MergeFailures  []MergeFailure  `json:"mergeFailures,omitempty"`
}

// Summary renders the applied count for people, e.g. "12 of 15 corrections
// applied".
func (r *Result) Summary() string {
	total := r.AppliedCount + r.SkippedCount
	noun := "corrections"
	if total == 1 {
		noun = "correction"
	}
	return fmt.Sprintf("%d of %d %s applied", r.AppliedCount, total, noun)
}

// Engine runs reconciliation passes. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	opts       Options
	metrics    *observe.Metrics
	logger     *slog.Logger
	classifier *classify.Classifier
	scheduler  *schedule.Scheduler
}

// New returns an Engine configured with opts.
func New(opts ...Option) *Engine {
	e := &Engine{opts: DefaultOptions()}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.classifier == nil {
		e.classifier = classify.New()
	}
	e.scheduler = schedule.New(e.opts.scheduleOptions())
	return e
}

// Options returns the engine's pass options.
func (e *Engine) Options() Options { return e.opts }

// Reconcile applies batch to doc. It returns ctx.Err() without doing any work
// when ctx is already done; once started, a pass runs to completion. The
// input document is never modified.
func (e *Engine) Reconcile(ctx context.Context, doc transcript.Document, batch []suggestion.Suggestion) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "reconcile.pass")
	defer span.End()
	e.metrics.ActivePasses.Add(ctx, 1)
	defer e.metrics.ActivePasses.Add(ctx, -1)
	start := time.Now()

	log := e.logger
	if log == nil {
		log = observe.Logger(ctx)
	}

	batch = suggestion.AssignIDs(batch)
	plan := e.scheduler.Schedule(doc, batch)
	patched, applied, failed := patch.Apply(doc, plan.Accepted)

	res := &Result{Outcomes: make([]Outcome, len(batch))}
	for i, sg := range batch {
		res.Outcomes[i] = Outcome{Suggestion: sg, Kind: e.kind(sg)}
	}
	for _, r := range plan.Rejected {
		o := &res.Outcomes[r.Index]
		o.Status, o.Reason, o.Detail, o.Matches, o.Span = suggestion.StatusSkipped, r.Reason, r.Detail, r.Matches, r.Span
	}
	for _, a := range applied {
		o := &res.Outcomes[a.Index]
		sp := a.Span
		o.Status, o.Span, o.Strategy, o.Partial, o.Matched = suggestion.StatusApplied, &sp, a.Strategy, a.Partial, a.Matched
	}
	for _, f := range failed {
		o := &res.Outcomes[f.Index]
		sp := f.Span
		o.Status, o.Reason, o.Detail = suggestion.StatusSkipped, suggestion.ReasonApplyFailed, f.Err.Error()
		o.Span, o.Strategy, o.Partial, o.Matched = &sp, f.Strategy, f.Partial, f.Matched
	}

	before, after := doc.SegmentTexts(), patched.SegmentTexts()
	for i := range min(len(before), len(after)) {
		if before[i] != after[i] {
			res.SegmentChanges = append(res.SegmentChanges, SegmentChange{Index: i, Before: before[i], After: after[i]})
		}
	}

	final := patched
	if e.opts.MergeSegments {
		var mfailed []merge.Failure
		final, res.Merges, mfailed = merge.Execute(patched, merge.Detect(doc, patched))
		for _, f := range mfailed {
			res.MergeFailures = append(res.MergeFailures, MergeFailure{Candidate: f.Candidate, Error: f.Err.Error()})
		}
	}
	res.Document = final

	for _, o := range res.Outcomes {
		if o.Status == suggestion.StatusApplied {
			res.AppliedCount++
		} else {
			res.SkippedCount++
			log.Debug("suggestion skipped",
				"id", o.Suggestion.ID,
				"reason", o.Reason,
				"detail", o.Detail,
			)
		}
		e.metrics.RecordSuggestion(ctx, string(o.Status), string(o.Reason))
	}
	for _, m := range res.Merges {
		e.metrics.RecordMerge(ctx, string(m.Reason), "merged")
	}
	for _, f := range res.MergeFailures {
		e.metrics.RecordMerge(ctx, string(f.Reason), "failed")
		log.Warn("segment merge failed", "segment", f.Segment, "reason", f.Reason, "err", f.Error)
	}

	elapsed := time.Since(start)
	e.metrics.ReconcileDuration.Record(ctx, elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("redline.suggestions", len(batch)),
		attribute.Int("redline.applied", res.AppliedCount),
		attribute.Int("redline.skipped", res.SkippedCount),
		attribute.Int("redline.merges", len(res.Merges)),
	)
	if len(failed) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d planned suggestions failed to apply", len(failed)))
	}

	log.Info("reconciliation pass complete",
		"suggestions", len(batch),
		"applied", res.AppliedCount,
		"skipped", res.SkippedCount,
		"merged", len(res.Merges),
		"duration", elapsed,
	)
	return res, nil
}

func (e *Engine) kind(sg suggestion.Suggestion) classify.Kind {
	if sg.OriginalText == "" || sg.SuggestedText == "" {
		return ""
	}
	return e.classifier.Classify(sg.OriginalText, sg.SuggestedText)
}
