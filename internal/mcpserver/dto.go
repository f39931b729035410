package mcpserver

import (
	"github.com/MrWong99/redline/internal/format"
	"github.com/MrWong99/redline/internal/reconcile"
	"github.com/MrWong99/redline/internal/schedule"
	"github.com/MrWong99/redline/pkg/suggestion"
)

// ToolSuggestion is the tool-facing form of [suggestion.Suggestion]. Only
// the two texts are required.
type ToolSuggestion struct {
	OriginalText  string   `json:"originalText" jsonschema:"exact text currently in the transcript"`
	SuggestedText string   `json:"suggestedText" jsonschema:"replacement text"`
	Confidence    *float64 `json:"confidence,omitempty" jsonschema:"confidence in [0,1], default 0.5"`
	From          *int     `json:"from,omitempty" jsonschema:"optional rune offset where originalText starts"`
	To            *int     `json:"to,omitempty" jsonschema:"optional rune offset where originalText ends"`
	SegmentIndex  *int     `json:"segmentIndex,omitempty" jsonschema:"optional index of the segment the text belongs to"`
	Explanation   string   `json:"explanation,omitempty"`
}

func (t ToolSuggestion) suggestion() suggestion.Suggestion {
	conf := suggestion.DefaultConfidence
	if t.Confidence != nil {
		conf = *t.Confidence
	}
	return suggestion.Suggestion{
		OriginalText:  t.OriginalText,
		SuggestedText: t.SuggestedText,
		Confidence:    conf,
		From:          t.From,
		To:            t.To,
		SegmentIndex:  t.SegmentIndex,
		Explanation:   t.Explanation,
	}
}

// ToolOptions selectively overrides the server's pass options.
type ToolOptions struct {
	MinConfidence *float64 `json:"minConfidence,omitempty" jsonschema:"skip suggestions below this confidence"`
	MergeSegments *bool    `json:"mergeSegments,omitempty" jsonschema:"re-merge segments whose sentence boundary was removed"`
	StrictSegment *bool    `json:"strictSegment,omitempty" jsonschema:"skip matches outside the suggestion's segmentIndex"`
}

func (o *ToolOptions) apply(base reconcile.Options) reconcile.Options {
	// Agents decide what to send, so per-suggestion autoApply is moot.
	base.ApplyAll = true
	if o == nil {
		return base
	}
	if o.MinConfidence != nil {
		base.MinConfidence = *o.MinConfidence
	}
	if o.MergeSegments != nil {
		base.MergeSegments = *o.MergeSegments
	}
	if o.StrictSegment != nil {
		base.SegmentPolicy = schedule.SegmentPolicyAny
		if *o.StrictSegment {
			base.SegmentPolicy = schedule.SegmentPolicyStrict
		}
	}
	return base
}

// ApplyInput is the argument of apply_corrections.
type ApplyInput struct {
	Document    format.Document  `json:"document" jsonschema:"transcript in native format"`
	Suggestions []ToolSuggestion `json:"suggestions"`
	Options     *ToolOptions     `json:"options,omitempty"`
}

// ToolOutcome reports one suggestion.
type ToolOutcome struct {
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	Detail        string `json:"detail,omitempty"`
	Kind          string `json:"kind,omitempty"`

	// Matched is the document text that was replaced when it differs from
	// OriginalText.
	Matched string `json:"matched,omitempty"`
}

// ApplyOutput is the result of apply_corrections.
type ApplyOutput struct {
	Summary        string          `json:"summary"`
	AppliedCount   int             `json:"appliedCount"`
	SkippedCount   int             `json:"skippedCount"`
	Outcomes       []ToolOutcome   `json:"outcomes"`
	MergedSegments int             `json:"mergedSegments"`
	Document       format.Document `json:"document"`
}

func newApplyOutput(res *reconcile.Result) ApplyOutput {
	out := ApplyOutput{
		Summary:        res.Summary(),
		AppliedCount:   res.AppliedCount,
		SkippedCount:   res.SkippedCount,
		Outcomes:       make([]ToolOutcome, len(res.Outcomes)),
		MergedSegments: len(res.Merges),
		Document:       format.FromDocument(res.Document),
	}
	for i, o := range res.Outcomes {
		out.Outcomes[i] = ToolOutcome{
			OriginalText:  o.Suggestion.OriginalText,
			SuggestedText: o.Suggestion.SuggestedText,
			Status:        string(o.Status),
			Reason:        string(o.Reason),
			Detail:        o.Detail,
			Kind:          string(o.Kind),
		}
		if o.Partial {
			out.Outcomes[i].Matched = o.Matched
		}
	}
	return out
}

// LocateInput is the argument of locate_text.
type LocateInput struct {
	Document          format.Document `json:"document" jsonschema:"transcript in native format"`
	Text              string          `json:"text" jsonschema:"phrase to find"`
	AllowPartialMatch *bool           `json:"allowPartialMatch,omitempty" jsonschema:"also try punctuation-insensitive matching"`
}

// LocateOutput is the result of locate_text. Offsets are runes into the
// document text with segments joined by a newline.
type LocateOutput struct {
	Kind     string `json:"kind"`
	Matches  int    `json:"matches"`
	Strategy string `json:"strategy,omitempty"`
	From     *int   `json:"from,omitempty"`
	To       *int   `json:"to,omitempty"`
	Segment  *int   `json:"segment,omitempty"`
	Matched  string `json:"matched,omitempty"`
}
