// Package schedule filters, locates and orders a suggestion batch into a
// conflict-free application plan.
//
// The plan applies edits from the end of the document towards its start, so
// an applied edit never shifts the offsets of the edits still pending. Every
// suggestion that does not make it into the plan is reported with a
// [suggestion.Reason]; nothing in this package returns an error.
package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/redline/internal/locate"
	"github.com/MrWong99/redline/pkg/suggestion"
	"github.com/MrWong99/redline/pkg/transcript"
)

// SegmentPolicy decides what happens when a located span lies outside the
// segment a suggestion names.
type SegmentPolicy string

const (
	// SegmentPolicyAny applies the match wherever it was found.
	SegmentPolicyAny SegmentPolicy = "any"

	// SegmentPolicyStrict rejects the suggestion with
	// [suggestion.ReasonSegmentMismatch].
	SegmentPolicyStrict SegmentPolicy = "strict"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// behaves like [SegmentPolicyAny].
func (p SegmentPolicy) Valid() bool {
	return p == "" || p == SegmentPolicyAny || p == SegmentPolicyStrict
}

// Options tune filtering and location.
type Options struct {
	MinConfidence     float64
	ApplyAll          bool
	AllowPartialMatch bool
	SegmentPolicy     SegmentPolicy
}

// DefaultOptions returns the defaults: no confidence floor, apply all,
// partial matching enabled, segment policy "any".
func DefaultOptions() Options {
	return Options{ApplyAll: true, AllowPartialMatch: true, SegmentPolicy: SegmentPolicyAny}
}

// Planned is one accepted suggestion with its located span.
type Planned struct {
	// Index is the suggestion's position in the input batch.
	Index      int
	Suggestion suggestion.Suggestion
	Span       locate.Span
	Strategy   string
	Partial    bool

	// Matched is the document text inside Span when the plan was built. It
	// differs from OriginalText for partial matches.
	Matched string
}

// Rejected is one suggestion left out of the plan.
type Rejected struct {
	Index      int
	Suggestion suggestion.Suggestion
	Reason     suggestion.Reason
	Detail     string

	// Matches is the candidate count for Ambiguous rejections.
	Matches int

	// Span is set for rejections decided after location.
	Span *locate.Span
}

// Plan is the output of one scheduling pass.
type Plan struct {
	// Accepted is in application order: descending span start.
	Accepted []Planned

	// Rejected is in input order.
	Rejected []Rejected
}

// Scheduler builds plans. It holds no per-pass state and is safe for
// concurrent use.
type Scheduler struct {
	opts    Options
	locator *locate.Locator
}

// New returns a Scheduler for opts.
func New(opts Options) *Scheduler {
	return &Scheduler{opts: opts, locator: locate.New(opts.AllowPartialMatch)}
}

// Schedule plans batch against doc. The result depends only on its inputs.
func (s *Scheduler) Schedule(doc transcript.Document, batch []suggestion.Suggestion) Plan {
	text, ix := doc.Flatten()
	runes := []rune(text)

	var plan Plan
	reject := func(i int, sg suggestion.Suggestion, reason suggestion.Reason, detail string) *Rejected {
		plan.Rejected = append(plan.Rejected, Rejected{Index: i, Suggestion: sg, Reason: reason, Detail: detail})
		return &plan.Rejected[len(plan.Rejected)-1]
	}

	seen := make(map[string]int, len(batch))
	var candidates []Planned
	for i, sg := range batch {
		if err := sg.Validate(); err != nil {
			reject(i, sg, suggestion.ReasonInvalid, err.Error())
			continue
		}
		if sg.Confidence < s.opts.MinConfidence {
			reject(i, sg, suggestion.ReasonLowConfidence,
				fmt.Sprintf("confidence %.2f below minimum %.2f", sg.Confidence, s.opts.MinConfidence))
			continue
		}
		if !s.opts.ApplyAll && !sg.ShouldAutoApply() {
			reject(i, sg, suggestion.ReasonNotMarkedForAutoApply, "")
			continue
		}
		key := dedupeKey(sg)
		if first, dup := seen[key]; dup {
			reject(i, sg, suggestion.ReasonDuplicateSuggestion, fmt.Sprintf("duplicate of suggestion %d", first))
			continue
		}
		seen[key] = i

		res := s.locator.LocateText(text, sg)
		switch res.Kind {
		case locate.NotFound:
			reject(i, sg, suggestion.ReasonNotFound, fmt.Sprintf("%q not found", sg.OriginalText))
			continue
		case locate.Ambiguous:
			r := reject(i, sg, suggestion.ReasonAmbiguous,
				fmt.Sprintf("%d matches via %s search", res.Matches, res.Strategy))
			r.Matches = res.Matches
			continue
		}

		span := res.Span
		if s.opts.SegmentPolicy == SegmentPolicyStrict && sg.SegmentIndex != nil {
			if si, err := ix.SegmentOf(span.From, span.To); err != nil || si != *sg.SegmentIndex {
				r := reject(i, sg, suggestion.ReasonSegmentMismatch,
					fmt.Sprintf("match %s is not in segment %d", span, *sg.SegmentIndex))
				r.Span = &span
				continue
			}
		}
		if mark, dup := duplicatePunctuation(runes, sg, span); dup {
			r := reject(i, sg, suggestion.ReasonDuplicatePunctuation,
				fmt.Sprintf("document already has %q after %s", mark, span))
			r.Span = &span
			continue
		}

		candidates = append(candidates, Planned{
			Index:      i,
			Suggestion: sg,
			Span:       span,
			Strategy:   res.Strategy,
			Partial:    res.Partial,
			Matched:    string(runes[span.From:span.To]),
		})
	}

	slices.SortStableFunc(candidates, compareApplication)

	for _, c := range candidates {
		if j := slices.IndexFunc(plan.Accepted, func(p Planned) bool { return p.Span.Overlaps(c.Span) }); j >= 0 {
			r := reject(c.Index, c.Suggestion, suggestion.ReasonOverlapsAccepted,
				fmt.Sprintf("span %s overlaps %s of suggestion %d", c.Span, plan.Accepted[j].Span, plan.Accepted[j].Index))
			span := c.Span
			r.Span = &span
			continue
		}
		plan.Accepted = append(plan.Accepted, c)
	}

	slices.SortStableFunc(plan.Rejected, func(a, b Rejected) int { return cmp.Compare(a.Index, b.Index) })
	return plan
}

// compareApplication orders planned edits: later spans first, then higher
// severity, higher confidence, shorter original text and input position.
func compareApplication(a, b Planned) int {
	if c := cmp.Compare(b.Span.From, a.Span.From); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Suggestion.Severity.Rank(), a.Suggestion.Severity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Suggestion.Confidence, a.Suggestion.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(utf8.RuneCountInString(a.Suggestion.OriginalText), utf8.RuneCountInString(b.Suggestion.OriginalText)); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

func dedupeKey(sg suggestion.Suggestion) string {
	pos := "-"
	if sg.HasPosition() {
		pos = strconv.Itoa(*sg.From) + ":" + strconv.Itoa(*sg.To)
	}
	return strings.ToLower(sg.OriginalText) + "\x00" + sg.SuggestedText + "\x00" + pos
}

const appendableMarks = ".!?,;:"

// duplicatePunctuation reports whether sg only appends one punctuation mark
// that the document already has right after span, or that the original
// text already ends with.
func duplicatePunctuation(doc []rune, sg suggestion.Suggestion, span locate.Span) (rune, bool) {
	rest, ok := strings.CutPrefix(sg.SuggestedText, sg.OriginalText)
	if !ok || utf8.RuneCountInString(rest) != 1 || !strings.ContainsAny(rest, appendableMarks) {
		return 0, false
	}
	mark, _ := utf8.DecodeRuneInString(rest)
	if strings.HasSuffix(sg.OriginalText, rest) {
		return mark, true
	}
	if span.To < len(doc) && doc[span.To] == mark {
		return mark, true
	}
	return mark, false
}
