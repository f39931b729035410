package transcript_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/redline/pkg/transcript"
)

// seg builds a segment whose words are one second apart, starting at start.
func seg(speaker string, start time.Duration, text string) transcript.Segment {
	var words []transcript.Word
	for i, f := range strings.Fields(text) {
		s := start + time.Duration(i)*time.Second
		words = append(words, transcript.Word{Text: f, Start: s, End: s + 900*time.Millisecond})
	}
	return transcript.NewSegment(speaker, strings.ToUpper(speaker), words)
}

func mustDoc(t *testing.T, segs ...transcript.Segment) transcript.Document {
	t.Helper()
	d, err := transcript.NewDocument(segs...)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}

func TestNewSegment_NormalizesWords(t *testing.T) {
	t.Parallel()

	s := transcript.NewSegment("s1", "Anna", []transcript.Word{
		{Text: "  Tere. ", Start: 0, End: time.Second},
		{Text: "   "},
		{Text: "see on", Start: time.Second, End: 2 * time.Second},
	})
	if got, want := s.Text(), "Tere. see on"; got != want {
		t.Errorf("Text()=%q, want %q", got, want)
	}
	if s.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", s.Len())
	}
	if s.Start() != 0 || s.End() != 2*time.Second {
		t.Errorf("Start/End = %s/%s, want 0s/2s", s.Start(), s.End())
	}
}

func TestSegment_WordsReturnsCopy(t *testing.T) {
	t.Parallel()

	s := seg("a", 0, "one two")
	w := s.Words()
	w[0].Text = "changed"
	if s.Text() != "one two" {
		t.Errorf("mutating Words() leaked into segment: %q", s.Text())
	}
}

func TestNewDocument_RejectsNonChronological(t *testing.T) {
	t.Parallel()

	_, err := transcript.NewDocument(seg("a", 10*time.Second, "later"), seg("b", 0, "earlier"))
	if !errors.Is(err, transcript.ErrNotChronological) {
		t.Fatalf("err=%v, want ErrNotChronological", err)
	}
}

func TestDocument_FlattenAndIndex(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "Tere. see"), seg("b", 5*time.Second, "õun on"))
	text, ix := d.Flatten()
	if want := "Tere. see\nõun on"; text != want {
		t.Fatalf("text=%q, want %q", text, want)
	}
	if ix.Len() != 16 {
		t.Fatalf("Len()=%d, want 16 runes", ix.Len())
	}

	tests := []struct {
		offset int
		want   transcript.Location
	}{
		{0, transcript.Location{Segment: 0, Word: 0, Char: 0}},
		{4, transcript.Location{Segment: 0, Word: 0, Char: 4}},
		{5, transcript.Location{Segment: 0, Word: 1, Gap: true}},
		{8, transcript.Location{Segment: 0, Word: 1, Char: 2}},
		{9, transcript.Location{Segment: 0, Word: 2, Gap: true}},
		{10, transcript.Location{Segment: 1, Word: 0, Char: 0}},
		{11, transcript.Location{Segment: 1, Word: 0, Char: 1}},
		{15, transcript.Location{Segment: 1, Word: 1, Char: 1}},
		{16, transcript.Location{Segment: 1, Word: 2, Gap: true}},
	}
	for _, tc := range tests {
		got, err := ix.Locate(tc.offset)
		if err != nil {
			t.Errorf("Locate(%d): %v", tc.offset, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Locate(%d)=%+v, want %+v", tc.offset, got, tc.want)
		}
	}

	if _, err := ix.Locate(17); !errors.Is(err, transcript.ErrOutOfBounds) {
		t.Errorf("Locate(17) err=%v, want ErrOutOfBounds", err)
	}
}

func TestDocument_ReplaceSpan(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "Tere. see on"))
	text := d.Text()
	from := strings.Index(text, "see on")

	got, err := d.ReplaceSpan(from, from+len("see on"), "see on test")
	if err != nil {
		t.Fatalf("ReplaceSpan: %v", err)
	}
	if want := "Tere. see on test"; got.Text() != want {
		t.Fatalf("Text()=%q, want %q", got.Text(), want)
	}
	if d.Text() != "Tere. see on" {
		t.Errorf("receiver was modified: %q", d.Text())
	}

	s, _ := got.Segment(0)
	words := s.Words()
	for i, w := range words[:3] {
		if w.Derived {
			t.Errorf("word %d %q marked derived, want original timing kept", i, w.Text)
		}
		if w.Start != time.Duration(i)*time.Second {
			t.Errorf("word %d start=%s, want %s", i, w.Start, time.Duration(i)*time.Second)
		}
	}
	if !words[3].Derived {
		t.Errorf("inserted word %q not derived", words[3].Text)
	}
}

func TestDocument_ReplaceSpan_EditedWordGetsReplacedTiming(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "suur kala. Teine"))
	from := strings.Index(d.Text(), "kala.")
	got, err := d.ReplaceSpan(from, from+5, "kala!")
	if err != nil {
		t.Fatalf("ReplaceSpan: %v", err)
	}
	s, _ := got.Segment(0)
	w := s.Words()[1]
	if w.Text != "kala!" || !w.Derived {
		t.Fatalf("word=%+v, want derived kala!", w)
	}
	if w.Start != time.Second || w.End != time.Second+900*time.Millisecond {
		t.Errorf("timing=%s-%s, want the replaced word's range", w.Start, w.End)
	}
}

func TestDocument_ReplaceSpan_Errors(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "one two"), seg("b", 3*time.Second, "three"))
	tests := []struct {
		name     string
		from, to int
		want     error
	}{
		{"negative from", -1, 2, transcript.ErrOutOfBounds},
		{"to past end", 0, 99, transcript.ErrOutOfBounds},
		{"from after to", 5, 2, transcript.ErrOutOfBounds},
		{"crosses separator", 4, 10, transcript.ErrCrossSegment},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := d.ReplaceSpan(tc.from, tc.to, "x")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
			if got.Len() != 0 {
				t.Errorf("failed ReplaceSpan returned non-zero document")
			}
		})
	}
	if d.Text() != "one two\nthree" {
		t.Errorf("receiver changed after failures: %q", d.Text())
	}
}

func TestDocument_MergeWithPrevious(t *testing.T) {
	t.Parallel()

	d := mustDoc(t,
		seg("a", 0, "HELLO"),
		seg("b", 2*time.Second, "world"),
		seg("c", 5*time.Second, "Next one."),
	)
	got, err := d.MergeWithPrevious(1)
	if err != nil {
		t.Fatalf("MergeWithPrevious: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len()=%d, want 2", got.Len())
	}
	first, _ := got.Segment(0)
	if first.Text() != "HELLO world" {
		t.Errorf("merged text=%q, want %q", first.Text(), "HELLO world")
	}
	if first.SpeakerID() != "a" {
		t.Errorf("speaker=%q, want a", first.SpeakerID())
	}
	if first.End() != 2*time.Second+900*time.Millisecond {
		t.Errorf("End()=%s, want end of last merged word", first.End())
	}
	second, _ := got.Segment(1)
	if second.Index() != 1 {
		t.Errorf("index not renumbered: %d", second.Index())
	}

	for _, i := range []int{0, 3} {
		if _, err := d.MergeWithPrevious(i); !errors.Is(err, transcript.ErrSegmentNotFound) {
			t.Errorf("MergeWithPrevious(%d) err=%v, want ErrSegmentNotFound", i, err)
		}
	}
}

func TestPositionIndex_SegmentOf(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "ab cd"), seg("b", time.Second, "ef"))
	_, ix := d.Flatten()

	if si, err := ix.SegmentOf(3, 5); err != nil || si != 0 {
		t.Errorf("SegmentOf(3,5)=%d,%v want 0,nil", si, err)
	}
	if si, err := ix.SegmentOf(6, 8); err != nil || si != 1 {
		t.Errorf("SegmentOf(6,8)=%d,%v want 1,nil", si, err)
	}
	if si, err := ix.SegmentOf(5, 5); err != nil || si != 0 {
		t.Errorf("SegmentOf(5,5)=%d,%v want 0,nil", si, err)
	}
	if _, err := ix.SegmentOf(4, 7); !errors.Is(err, transcript.ErrCrossSegment) {
		t.Errorf("SegmentOf(4,7) err=%v, want ErrCrossSegment", err)
	}
}

func TestPositionIndex_SegmentAt(t *testing.T) {
	t.Parallel()

	d := mustDoc(t, seg("a", 0, "ab cd"), seg("b", time.Second, "ef"))
	_, ix := d.Flatten()

	for offset, want := range map[int]int{0: 0, 4: 0, 5: 0, 6: 1, 8: 1} {
		got, err := ix.SegmentAt(offset)
		if err != nil || got != want {
			t.Errorf("SegmentAt(%d)=%d,%v want %d,nil", offset, got, err, want)
		}
	}
	if _, err := ix.SegmentAt(9); !errors.Is(err, transcript.ErrOutOfBounds) {
		t.Errorf("SegmentAt(9) err=%v, want ErrOutOfBounds", err)
	}
}
