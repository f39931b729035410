package transcript

import (
	"fmt"
	"sort"
)

// Location is the structural address of a flat-text offset.
type Location struct {
	// Segment is the index of the owning segment.
	Segment int

	// Word is the index of the word within the segment. When Gap is true it
	// is the index of the word that follows the gap (len(words) at the end
	// of a segment).
	Word int

	// Char is the rune offset within the word. Zero when Gap is true.
	Char int

	// Gap reports that the offset falls on inter-word whitespace or on a
	// segment separator.
	Gap bool
}

// PositionIndex maps flat-text rune offsets to structural locations. It is
// derived from a single Document value and is never updated incrementally.
type PositionIndex struct {
	segStarts  []int
	segLens    []int
	wordStarts [][]int
	wordLens   [][]int
	total      int
}

func buildIndex(segments []Segment) *PositionIndex {
	ix := &PositionIndex{
		segStarts:  make([]int, len(segments)),
		segLens:    make([]int, len(segments)),
		wordStarts: make([][]int, len(segments)),
		wordLens:   make([][]int, len(segments)),
	}
	off := 0
	for i, s := range segments {
		if i > 0 {
			off += runeLen(SegmentSeparator)
		}
		ix.segStarts[i] = off
		starts := make([]int, len(s.words))
		lens := make([]int, len(s.words))
		local := 0
		for j, w := range s.words {
			if j > 0 {
				local++
			}
			starts[j] = local
			lens[j] = runeLen(w.Text)
			local += lens[j]
		}
		ix.wordStarts[i] = starts
		ix.wordLens[i] = lens
		ix.segLens[i] = local
		off += local
	}
	ix.total = off
	return ix
}

// Len returns the rune length of the flattened text.
func (ix *PositionIndex) Len() int { return ix.total }

// SegmentSpan returns the [start, end) rune range of segment i, excluding
// separators.
func (ix *PositionIndex) SegmentSpan(i int) (start, end int, ok bool) {
	if i < 0 || i >= len(ix.segStarts) {
		return 0, 0, false
	}
	return ix.segStarts[i], ix.segStarts[i] + ix.segLens[i], true
}

// segmentAt returns the last segment starting at or before offset.
func (ix *PositionIndex) segmentAt(offset int) int {
	return sort.Search(len(ix.segStarts), func(i int) bool {
		return ix.segStarts[i] > offset
	}) - 1
}

// Locate maps offset to a [Location]. The end-of-text offset (Len) is valid
// and resolves to the gap after the last word.
func (ix *PositionIndex) Locate(offset int) (Location, error) {
	if offset < 0 || offset > ix.total || len(ix.segStarts) == 0 {
		return Location{}, fmt.Errorf("%w: offset %d in text of length %d", ErrOutOfBounds, offset, ix.total)
	}
	si := ix.segmentAt(offset)
	local := offset - ix.segStarts[si]
	starts := ix.wordStarts[si]
	if local >= ix.segLens[si] {
		return Location{Segment: si, Word: len(starts), Gap: true}, nil
	}
	wi := sort.Search(len(starts), func(j int) bool { return starts[j] > local }) - 1
	if wi < 0 {
		return Location{Segment: si, Word: 0, Gap: true}, nil
	}
	if c := local - starts[wi]; c < ix.wordLens[si][wi] {
		return Location{Segment: si, Word: wi, Char: c}, nil
	}
	return Location{Segment: si, Word: wi + 1, Gap: true}, nil
}

// SegmentOf returns the index of the segment that fully contains [from, to).
// An empty span belongs to the segment whose closed range holds it.
func (ix *PositionIndex) SegmentOf(from, to int) (int, error) {
	if from < 0 || to > ix.total || from > to || len(ix.segStarts) == 0 {
		return 0, fmt.Errorf("%w: [%d,%d) in text of length %d", ErrOutOfBounds, from, to, ix.total)
	}
	si := ix.segmentAt(from)
	end := ix.segStarts[si] + ix.segLens[si]
	if from > end || to > end {
		return 0, fmt.Errorf("%w: [%d,%d) leaves segment %d ending at %d", ErrCrossSegment, from, to, si, end)
	}
	return si, nil
}

// SegmentAt returns the index of the segment owning offset. A separator
// offset belongs to the segment before it.
func (ix *PositionIndex) SegmentAt(offset int) (int, error) {
	if offset < 0 || offset > ix.total || len(ix.segStarts) == 0 {
		return 0, fmt.Errorf("%w: offset %d in text of length %d", ErrOutOfBounds, offset, ix.total)
	}
	return ix.segmentAt(offset), nil
}
