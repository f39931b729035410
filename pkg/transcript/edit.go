package transcript

import (
	"fmt"
	"strings"
)

// ReplaceSpan returns a new Document in which the flat-text rune span
// [from, to) is replaced by newText. The owning segment's words are re-split
// on whitespace; words whose text is unchanged keep their timing, new or
// edited words are marked Derived.
//
// It fails with [ErrOutOfBounds] if from < 0, to > len or from > to, and with
// [ErrCrossSegment] if the span crosses a segment separator. On failure the
// returned Document is the zero value and the receiver is unchanged.
func (d Document) ReplaceSpan(from, to int, newText string) (Document, error) {
	_, ix := d.Flatten()
	if from < 0 || to > ix.Len() || from > to {
		return Document{}, fmt.Errorf("%w: [%d,%d) in text of length %d", ErrOutOfBounds, from, to, ix.Len())
	}
	si, err := ix.SegmentOf(from, to)
	if err != nil {
		return Document{}, err
	}
	start, _, _ := ix.SegmentSpan(si)

	seg := d.segments[si]
	local := []rune(seg.text)
	edited := string(local[:from-start]) + newText + string(local[to-start:])

	segs := make([]Segment, len(d.segments))
	copy(segs, d.segments)
	segs[si] = NewSegment(seg.speakerID, seg.speakerName, realign(seg.words, strings.Fields(edited)))
	return withSegments(segs), nil
}

// MergeWithPrevious returns a new Document in which segment i is appended to
// segment i-1 and then removed. The merged segment keeps the speaker of i-1.
// Segment text never ends in whitespace, so the join inserts exactly one
// space between the two word lists.
func (d Document) MergeWithPrevious(i int) (Document, error) {
	if i < 1 || i >= len(d.segments) {
		return Document{}, fmt.Errorf("%w: cannot merge segment %d of %d", ErrSegmentNotFound, i, len(d.segments))
	}
	prev, cur := d.segments[i-1], d.segments[i]

	words := make([]Word, 0, len(prev.words)+len(cur.words))
	words = append(words, prev.words...)
	words = append(words, cur.words...)

	segs := make([]Segment, 0, len(d.segments)-1)
	segs = append(segs, d.segments[:i-1]...)
	segs = append(segs, NewSegment(prev.speakerID, prev.speakerName, words))
	segs = append(segs, d.segments[i+1:]...)
	return withSegments(segs), nil
}
