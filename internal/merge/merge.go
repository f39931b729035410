// Package merge finds adjacent segments whose boundary no longer marks a
// sentence break after patching, and joins them.
package merge

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/redline/pkg/transcript"
)

// Reason names the signal that produced a [Candidate].
type Reason string

const (
	ReasonLowercaseStart          Reason = "lowercase_start"
	ReasonContinuationPunctuation Reason = "continuation_punctuation"
)

// Confidence per reason.
const (
	LowercaseStartConfidence          = 0.9
	ContinuationPunctuationConfidence = 0.7
)

const (
	terminalMarks     = ".!?…"
	continuationMarks = ",;:-–—"
)

// ErrAlreadyMerged is reported for a second candidate naming a segment that
// an earlier candidate in the same run already consumed.
var ErrAlreadyMerged = errors.New("merge: segment already merged")

// Candidate proposes merging segment Segment into segment Segment-1.
type Candidate struct {
	Segment    int     `json:"segment"`
	Reason     Reason  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Merged records an executed candidate and the resulting segment text.
type Merged struct {
	Candidate
	Text string `json:"text"`
}

// Failure records a candidate that could not be executed.
type Failure struct {
	Candidate
	Err error `json:"-"`
}

// Detect inspects every adjacent segment pair of after. before is the same
// document prior to patching; patches never add or remove segments, so both
// share segment indices.
//
// A pair yields LowercaseStart when the current segment starts lowercase,
// the previous segment started uppercase before patching and does not end in
// terminal punctuation now. Otherwise it yields ContinuationPunctuation when
// the previous segment ends in continuation punctuation and the current
// segment starts lowercase. A segment ending in terminal punctuation is never
// a merge target.
func Detect(before, after transcript.Document) []Candidate {
	prevBefore := before.SegmentTexts()
	texts := after.SegmentTexts()

	var out []Candidate
	for i := 1; i < len(texts); i++ {
		prev, cur := texts[i-1], texts[i]
		if !startsWith(cur, unicode.IsLower) || endsWithAny(prev, terminalMarks) {
			continue
		}
		origPrev := prev
		if i-1 < len(prevBefore) {
			origPrev = prevBefore[i-1]
		}
		switch {
		case startsWith(origPrev, unicode.IsUpper):
			out = append(out, Candidate{Segment: i, Reason: ReasonLowercaseStart, Confidence: LowercaseStartConfidence})
		case endsWithAny(prev, continuationMarks):
			out = append(out, Candidate{Segment: i, Reason: ReasonContinuationPunctuation, Confidence: ContinuationPunctuationConfidence})
		}
	}
	return out
}

// Execute merges candidates into doc in descending segment order so that
// pending candidates keep valid indices. Failures are collected, never
// fatal.
func Execute(doc transcript.Document, candidates []Candidate) (transcript.Document, []Merged, []Failure) {
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b Candidate) int { return cmp.Compare(b.Segment, a.Segment) })

	var (
		merged []Merged
		failed []Failure
	)
	done := make(map[int]bool, len(ordered))
	for _, c := range ordered {
		if done[c.Segment] {
			failed = append(failed, Failure{Candidate: c, Err: fmt.Errorf("%w: %d", ErrAlreadyMerged, c.Segment)})
			continue
		}
		next, err := doc.MergeWithPrevious(c.Segment)
		if err != nil {
			failed = append(failed, Failure{Candidate: c, Err: err})
			continue
		}
		done[c.Segment] = true
		doc = next
		seg, _ := doc.Segment(c.Segment - 1)
		merged = append(merged, Merged{Candidate: c, Text: seg.Text()})
	}
	return doc, merged, failed
}

func startsWith(s string, pred func(rune) bool) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && pred(r)
}

func endsWithAny(s, marks string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && strings.ContainsRune(marks, r)
}
