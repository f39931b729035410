package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MrWong99/redline/internal/format"
	"github.com/MrWong99/redline/internal/reconcile"
	"github.com/MrWong99/redline/internal/schedule"
	"github.com/MrWong99/redline/pkg/suggestion"
	"github.com/MrWong99/redline/pkg/transcript"
)

// OptionsOverride selectively replaces the server's default pass options.
// Nil fields keep the server default.
type OptionsOverride struct {
	MinConfidence     *float64                `json:"minConfidence,omitempty" validate:"omitnil,gte=0,lte=1"`
	ApplyAll          *bool                   `json:"applyAll,omitempty"`
	AllowPartialMatch *bool                   `json:"allowPartialMatch,omitempty"`
	MergeSegments     *bool                   `json:"mergeSegments,omitempty"`
	SegmentPolicy     *schedule.SegmentPolicy `json:"segmentPolicy,omitempty" validate:"omitnil,oneof=any strict"`
}

func (o *OptionsOverride) apply(base reconcile.Options) reconcile.Options {
	if o == nil {
		return base
	}
	if o.MinConfidence != nil {
		base.MinConfidence = *o.MinConfidence
	}
	if o.ApplyAll != nil {
		base.ApplyAll = *o.ApplyAll
	}
	if o.AllowPartialMatch != nil {
		base.AllowPartialMatch = *o.AllowPartialMatch
	}
	if o.MergeSegments != nil {
		base.MergeSegments = *o.MergeSegments
	}
	if o.SegmentPolicy != nil {
		base.SegmentPolicy = *o.SegmentPolicy
	}
	return base
}

// ReconcileRequest is the body of POST /v1/reconcile.
//
// Document is decoded according to Format ("native" when empty). Suggestions
// accepts every payload shape [suggestion.Decode] understands, including a
// bare array and the {"suggestions": [...]} wrapper.
type ReconcileRequest struct {
	Format      string           `json:"format,omitempty" validate:"omitempty,oneof=native asr"`
	Document    json.RawMessage  `json:"document" validate:"required"`
	Suggestions json.RawMessage  `json:"suggestions" validate:"required"`
	Options     *OptionsOverride `json:"options,omitempty"`
}

// decode turns the raw document and suggestions into domain values.
func (r ReconcileRequest) decode() (transcript.Document, []suggestion.Suggestion, int, error) {
	f, err := format.ParseFormat(r.Format)
	if err != nil {
		return transcript.Document{}, nil, 0, err
	}
	doc, err := format.Decode(bytes.NewReader(r.Document), f)
	if err != nil {
		return transcript.Document{}, nil, 0, fmt.Errorf("document: %w", err)
	}
	batch, dropped, err := suggestion.Decode(r.Suggestions)
	if err != nil {
		return transcript.Document{}, nil, 0, fmt.Errorf("suggestions: %w", err)
	}
	return doc, batch, dropped, nil
}

// ReconcileResponse is the data of a successful reconcile call.
type ReconcileResponse struct {
	ID       string          `json:"id,omitempty"`
	Summary  string          `json:"summary"`
	Document format.Document `json:"document"`
	*reconcile.Result

	// DroppedSuggestions counts payload entries missing either text, which
	// never became suggestions.
	DroppedSuggestions int `json:"droppedSuggestions,omitempty"`
}

func newResponse(id string, res *reconcile.Result, dropped int) ReconcileResponse {
	return ReconcileResponse{
		ID:                 id,
		Summary:            res.Summary(),
		Document:           format.FromDocument(res.Document),
		Result:             res,
		DroppedSuggestions: dropped,
	}
}

// BatchJob is one entry of a batch request.
type BatchJob struct {
	ID          string          `json:"id" validate:"required"`
	Format      string          `json:"format,omitempty" validate:"omitempty,oneof=native asr"`
	Document    json.RawMessage `json:"document" validate:"required"`
	Suggestions json.RawMessage `json:"suggestions" validate:"required"`
}

// BatchRequest is the body of POST /v1/reconcile/batch. Options apply to
// every job.
type BatchRequest struct {
	Jobs    []BatchJob       `json:"jobs" validate:"required,min=1,max=100,dive"`
	Options *OptionsOverride `json:"options,omitempty"`
}

// BatchResponse is the data of a successful batch call, in job order.
type BatchResponse struct {
	Results []ReconcileResponse `json:"results"`
}
