package merge_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/redline/internal/merge"
	"github.com/MrWong99/redline/pkg/transcript"
)

func docOf(t *testing.T, texts ...string) transcript.Document {
	t.Helper()
	var segs []transcript.Segment
	for i, text := range texts {
		var words []transcript.Word
		for j, f := range strings.Fields(text) {
			start := time.Duration(i*10+j) * time.Second
			words = append(words, transcript.Word{Text: f, Start: start, End: start + time.Second})
		}
		segs = append(segs, transcript.NewSegment("s", "S", words))
	}
	d, err := transcript.NewDocument(segs...)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before []string
		after  []string
		want   []merge.Candidate
	}{
		{
			name:   "lowercase start after uppercase segment",
			before: []string{"HELLO", "world"},
			after:  []string{"HELLO", "world"},
			want:   []merge.Candidate{{Segment: 1, Reason: merge.ReasonLowercaseStart, Confidence: 0.9}},
		},
		{
			name:   "patch lowercased the successor",
			before: []string{"Tere", "Kuidas läheb"},
			after:  []string{"Tere", "kuidas läheb"},
			want:   []merge.Candidate{{Segment: 1, Reason: merge.ReasonLowercaseStart, Confidence: 0.9}},
		},
		{
			name:   "continuation punctuation",
			before: []string{"and so,", "we left"},
			after:  []string{"and so,", "we left"},
			want:   []merge.Candidate{{Segment: 1, Reason: merge.ReasonContinuationPunctuation, Confidence: 0.7}},
		},
		{
			name:   "dash continuation",
			before: []string{"ja siis —", "läksime"},
			after:  []string{"ja siis —", "läksime"},
			want:   []merge.Candidate{{Segment: 1, Reason: merge.ReasonContinuationPunctuation, Confidence: 0.7}},
		},
		{
			name:   "uppercase successor",
			before: []string{"Tere", "Kuidas"},
			after:  []string{"Tere", "Kuidas"},
		},
		{
			name:   "lowercase predecessor without continuation mark",
			before: []string{"tere", "kuidas"},
			after:  []string{"tere", "kuidas"},
		},
		{
			name:   "patch added terminal punctuation",
			before: []string{"Tere", "kuidas"},
			after:  []string{"Tere.", "kuidas"},
		},
		{
			name:   "every pair is inspected",
			before: []string{"One", "two", "Three,", "four"},
			after:  []string{"One", "two", "Three,", "four"},
			want: []merge.Candidate{
				{Segment: 1, Reason: merge.ReasonLowercaseStart, Confidence: 0.9},
				{Segment: 3, Reason: merge.ReasonLowercaseStart, Confidence: 0.9},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := merge.Detect(docOf(t, tc.before...), docOf(t, tc.after...))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Detect()=%+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDetect_NeverMergesAfterTerminalPunctuation(t *testing.T) {
	t.Parallel()

	for _, prev := range []string{"Done.", "Done!", "Done?", "Done…", "DONE."} {
		d := docOf(t, prev, "next")
		if got := merge.Detect(d, d); len(got) != 0 {
			t.Errorf("%q followed by lowercase produced %+v", prev, got)
		}
	}
}

func TestExecute_DescendingOrder(t *testing.T) {
	t.Parallel()

	d := docOf(t, "Alpha", "beta", "gamma", "Delta.")
	cands := []merge.Candidate{
		{Segment: 1, Reason: merge.ReasonLowercaseStart, Confidence: 0.9},
		{Segment: 2, Reason: merge.ReasonLowercaseStart, Confidence: 0.9},
	}
	got, merged, failed := merge.Execute(d, cands)
	if len(failed) != 0 {
		t.Fatalf("failed=%+v", failed)
	}
	if want := []string{"Alpha beta gamma", "Delta."}; !reflect.DeepEqual(got.SegmentTexts(), want) {
		t.Fatalf("segments=%q, want %q", got.SegmentTexts(), want)
	}
	if len(merged) != 2 || merged[0].Segment != 2 || merged[0].Text != "beta gamma" || merged[1].Text != "Alpha beta gamma" {
		t.Errorf("merged=%+v", merged)
	}
	s, _ := got.Segment(0)
	if s.End() != 21*time.Second {
		t.Errorf("merged End()=%s, want 21s", s.End())
	}
}

func TestExecute_FailuresAreReported(t *testing.T) {
	t.Parallel()

	d := docOf(t, "HELLO", "world")
	got, merged, failed := merge.Execute(d, []merge.Candidate{
		{Segment: 1, Reason: merge.ReasonLowercaseStart},
		{Segment: 1, Reason: merge.ReasonContinuationPunctuation},
		{Segment: 7, Reason: merge.ReasonLowercaseStart},
	})
	if got.Text() != "HELLO world" || len(merged) != 1 {
		t.Fatalf("text=%q merged=%d", got.Text(), len(merged))
	}
	if len(failed) != 2 {
		t.Fatalf("failed=%d, want 2", len(failed))
	}
	if !errors.Is(failed[0].Err, transcript.ErrSegmentNotFound) {
		t.Errorf("out of range err=%v", failed[0].Err)
	}
	if !errors.Is(failed[1].Err, merge.ErrAlreadyMerged) {
		t.Errorf("duplicate err=%v", failed[1].Err)
	}
}
