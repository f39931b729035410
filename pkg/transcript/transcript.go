// Package transcript defines the in-memory transcript document that the
// reconciliation engine edits.
//
// A [Document] is an ordered list of speaker [Segment]s, each holding timed
// [Word]s. Documents are immutable values: every mutating operation
// ([Document.ReplaceSpan], [Document.MergeWithPrevious]) returns a new
// Document and leaves the receiver untouched, so a failed edit can never
// corrupt the caller's copy.
//
// The flattened text of a Document joins the segment texts with a single
// newline. All offsets in this package are rune (Unicode code point) offsets
// into that flattened text, never byte offsets. A [PositionIndex] maps them
// back to structural locations; it is derived from one Document value and
// must be rebuilt (via [Document.Flatten]) after every edit.
package transcript

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SegmentSeparator joins segment texts in the flattened document text.
const SegmentSeparator = "\n"

var (
	// ErrOutOfBounds is returned when a span lies outside the flattened text
	// or has from > to.
	ErrOutOfBounds = errors.New("transcript: span out of bounds")

	// ErrCrossSegment is returned when a span crosses a segment separator.
	ErrCrossSegment = errors.New("transcript: span crosses segment boundary")

	// ErrSegmentNotFound is returned when a segment index does not exist.
	ErrSegmentNotFound = errors.New("transcript: segment not found")

	// ErrNotChronological is returned by [NewDocument] when segment start
	// times decrease.
	ErrNotChronological = errors.New("transcript: segments are not chronological")
)

// Word is the leaf unit of a transcript.
type Word struct {
	// Text is the word including any attached punctuation. It never contains
	// whitespace.
	Text string

	// Start and End bound the word in the source audio.
	Start time.Duration
	End   time.Duration

	// Derived marks words created or edited by a patch. Their timing is
	// interpolated from the words they replaced and is not authoritative.
	Derived bool
}

// Segment is a contiguous run of words attributed to one speaker.
// The zero value is an empty segment without a speaker.
type Segment struct {
	index       int
	speakerID   string
	speakerName string
	words       []Word
	text        string
}

// NewSegment builds a segment from words. Words whose text is blank are
// dropped; a word whose text contains whitespace is split into several words
// sharing its timing.
func NewSegment(speakerID, speakerName string, words []Word) Segment {
	s := Segment{
		speakerID:   speakerID,
		speakerName: speakerName,
		words:       normalizeWords(words),
	}
	s.text = joinWords(s.words)
	return s
}

// Index returns the segment's position in its Document. It is positional,
// not a stable identifier.
func (s Segment) Index() int { return s.index }

// SpeakerID returns the speaker identifier.
func (s Segment) SpeakerID() string { return s.speakerID }

// SpeakerName returns the human-readable speaker name.
func (s Segment) SpeakerName() string { return s.speakerName }

// Text returns the whitespace-joined text of all words.
func (s Segment) Text() string { return s.text }

// Len returns the number of words in the segment.
func (s Segment) Len() int { return len(s.words) }

// Words returns a copy of the segment's words.
func (s Segment) Words() []Word {
	out := make([]Word, len(s.words))
	copy(out, s.words)
	return out
}

// Start returns the earliest word start time, or zero for an empty segment.
func (s Segment) Start() time.Duration {
	if len(s.words) == 0 {
		return 0
	}
	start := s.words[0].Start
	for _, w := range s.words[1:] {
		start = min(start, w.Start)
	}
	return start
}

// End returns the latest word end time, or zero for an empty segment.
func (s Segment) End() time.Duration {
	var end time.Duration
	for _, w := range s.words {
		end = max(end, w.End)
	}
	return end
}

func (s Segment) clone() Segment {
	c := s
	c.words = s.Words()
	return c
}

// Document is an ordered, chronological sequence of segments.
// The zero value is an empty document.
type Document struct {
	segments []Segment
}

// NewDocument assembles segments into a Document and assigns their indices.
// It returns [ErrNotChronological] when a segment starts before its
// predecessor. Empty segments are exempt from the ordering check.
func NewDocument(segments ...Segment) (Document, error) {
	var last time.Duration
	for i, s := range segments {
		if s.Len() == 0 {
			continue
		}
		if st := s.Start(); st < last {
			return Document{}, fmt.Errorf("%w: segment %d starts at %s before %s", ErrNotChronological, i, st, last)
		}
		last = s.Start()
	}
	return withSegments(segments), nil
}

// withSegments deep-copies segments into a new Document and renumbers them.
func withSegments(segments []Segment) Document {
	d := Document{segments: make([]Segment, len(segments))}
	for i, s := range segments {
		c := s.clone()
		c.index = i
		d.segments[i] = c
	}
	return d
}

// Len returns the number of segments.
func (d Document) Len() int { return len(d.segments) }

// Segment returns the segment at index i.
func (d Document) Segment(i int) (Segment, bool) {
	if i < 0 || i >= len(d.segments) {
		return Segment{}, false
	}
	return d.segments[i].clone(), true
}

// Segments returns copies of all segments in order.
func (d Document) Segments() []Segment {
	out := make([]Segment, len(d.segments))
	for i, s := range d.segments {
		out[i] = s.clone()
	}
	return out
}

// SegmentTexts returns the text of every segment in order.
func (d Document) SegmentTexts() []string {
	out := make([]string, len(d.segments))
	for i, s := range d.segments {
		out[i] = s.text
	}
	return out
}

// Text returns the flattened document text.
func (d Document) Text() string {
	return strings.Join(d.SegmentTexts(), SegmentSeparator)
}

// Flatten returns the flattened text together with a fresh [PositionIndex]
// valid for this Document value only.
func (d Document) Flatten() (string, *PositionIndex) {
	return d.Text(), buildIndex(d.segments)
}

func normalizeWords(in []Word) []Word {
	out := make([]Word, 0, len(in))
	for _, w := range in {
		for _, f := range strings.Fields(w.Text) {
			nw := w
			nw.Text = f
			out = append(out, nw)
		}
	}
	return out
}

func joinWords(words []Word) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
