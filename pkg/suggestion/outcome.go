package suggestion

// Status is the final disposition of a suggestion in one reconciliation pass.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
)

// Reason explains why a suggestion was skipped.
type Reason string

const (
	// ReasonInvalid marks a malformed suggestion (missing or out-of-range fields).
	ReasonInvalid Reason = "invalid_suggestion"

	// ReasonLowConfidence marks confidence below the caller's minimum.
	ReasonLowConfidence Reason = "low_confidence"

	// ReasonNotMarkedForAutoApply marks autoApply=false when the caller did
	// not request "apply all".
	ReasonNotMarkedForAutoApply Reason = "not_marked_for_auto_apply"

	// ReasonDuplicateSuggestion marks a repeat of an earlier suggestion in
	// the same batch.
	ReasonDuplicateSuggestion Reason = "duplicate_suggestion"

	// ReasonNotFound marks original text that no locator strategy found.
	ReasonNotFound Reason = "not_found"

	// ReasonAmbiguous marks original text found more than once.
	ReasonAmbiguous Reason = "ambiguous"

	// ReasonSegmentMismatch marks a match outside the suggestion's segment
	// under the strict segment policy.
	ReasonSegmentMismatch Reason = "segment_mismatch"

	// ReasonDuplicatePunctuation marks a suggestion that would re-add
	// punctuation the document already has.
	ReasonDuplicatePunctuation Reason = "duplicate_punctuation"

	// ReasonOverlapsAccepted marks a span overlapping one already committed
	// in the same scheduling pass.
	ReasonOverlapsAccepted Reason = "overlaps_accepted_suggestion"

	// ReasonApplyFailed marks a replacement that failed at apply time.
	ReasonApplyFailed Reason = "apply_failed"
)

// Reasons lists every skip reason in a stable order.
var Reasons = []Reason{
	ReasonInvalid,
	ReasonLowConfidence,
	ReasonNotMarkedForAutoApply,
	ReasonDuplicateSuggestion,
	ReasonNotFound,
	ReasonAmbiguous,
	ReasonSegmentMismatch,
	ReasonDuplicatePunctuation,
	ReasonOverlapsAccepted,
	ReasonApplyFailed,
}
