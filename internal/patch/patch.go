// Package patch executes a scheduled plan against a document.
package patch

import (
	"errors"
	"fmt"

	"github.com/MrWong99/redline/internal/locate"
	"github.com/MrWong99/redline/internal/schedule"
	"github.com/MrWong99/redline/pkg/transcript"
)

// ErrTextMismatch is reported when the text at a scheduled span no longer
// equals the text the scheduler located there.
var ErrTextMismatch = errors.New("patch: text at span does not match original")

// Applied records one successful replacement.
type Applied struct {
	schedule.Planned

	// Segment is the index of the edited segment.
	Segment int
}

// Failure records a planned replacement that could not be executed.
type Failure struct {
	schedule.Planned
	Err error
}

// Apply executes accepted in order. The position index is rebuilt before
// every replacement and the span is re-verified against it. A failing entry
// is recorded and skipped; it never aborts the remaining entries and never
// alters the document.
func Apply(doc transcript.Document, accepted []schedule.Planned) (transcript.Document, []Applied, []Failure) {
	var (
		applied []Applied
		failed  []Failure
	)
	for _, p := range accepted {
		next, seg, err := applyOne(doc, p)
		if err != nil {
			failed = append(failed, Failure{Planned: p, Err: err})
			continue
		}
		doc = next
		applied = append(applied, Applied{Planned: p, Segment: seg})
	}
	return doc, applied, failed
}

func applyOne(doc transcript.Document, p schedule.Planned) (transcript.Document, int, error) {
	text, ix := doc.Flatten()
	seg, err := ix.SegmentOf(p.Span.From, p.Span.To)
	if err != nil {
		return transcript.Document{}, 0, err
	}
	want := p.Matched
	if want == "" {
		want = p.Suggestion.OriginalText
	}
	if got := locate.TextAt(text, p.Span); !locate.EqualFold(got, want) {
		return transcript.Document{}, 0, fmt.Errorf("%w: %s holds %q, want %q", ErrTextMismatch, p.Span, got, want)
	}
	next, err := doc.ReplaceSpan(p.Span.From, p.Span.To, p.Suggestion.SuggestedText)
	if err != nil {
		return transcript.Document{}, 0, err
	}
	return next, seg, nil
}
