package format_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/redline/internal/format"
	"github.com/MrWong99/redline/pkg/transcript"
)

const asrPayload = `{
  "best_hypothesis": {
    "speakers": {"S0": {"name": "Anna"}, "S1": {}},
    "sections": [
      {"type": "non-speech", "start": 0, "end": 1.5},
      {"type": "speech", "start": 1.5, "end": 9, "turns": [
        {"speaker": "S0", "start": 1.5, "end": 3, "transcript": "Tere. see on",
         "words": [
           {"word_with_punctuation": "Tere.", "start": 1.5, "end": 2},
           {"word_with_punctuation": "see", "start": 2.1, "end": 2.4},
           {"word_with_punctuation": "on", "start": 2.5, "end": 3}
         ]},
        {"speaker": "S1", "start": 4, "end": 6, "transcript": "suur kala"},
        {"start": 7, "end": 9, "transcript": "Teine",
         "words": [{"word": "Teine", "start": 7, "end": 9}]}
      ]}
    ]
  }
}`

func TestImportASR(t *testing.T) {
	t.Parallel()

	doc, err := format.ImportASR([]byte(asrPayload))
	if err != nil {
		t.Fatalf("ImportASR: %v", err)
	}
	if want := []string{"Tere. see on", "suur kala", "Teine"}; !reflect.DeepEqual(doc.SegmentTexts(), want) {
		t.Fatalf("segments=%q, want %q", doc.SegmentTexts(), want)
	}

	segs := doc.Segments()
	wantNames := []string{"Anna", "S1", format.DefaultSpeakerName}
	for i, s := range segs {
		if s.SpeakerName() != wantNames[i] {
			t.Errorf("segment %d speaker=%q, want %q", i, s.SpeakerName(), wantNames[i])
		}
		if s.SpeakerID() != format.SpeakerID(wantNames[i]) {
			t.Errorf("segment %d speaker id not derived from name", i)
		}
	}

	first := segs[0].Words()
	if first[1].Start != 2100*time.Millisecond || first[1].Derived {
		t.Errorf("word timing=%+v, want 2.1s recognized word", first[1])
	}

	split := segs[1].Words()
	if len(split) != 2 || !split[0].Derived {
		t.Fatalf("turn without words: %+v", split)
	}
	if split[0].Start != 4*time.Second || split[1].Start != 5*time.Second || split[1].End != 6*time.Second {
		t.Errorf("derived timing=%+v, want spread over 4s-6s", split)
	}
}

func TestImportASR_BareHypothesis(t *testing.T) {
	t.Parallel()

	doc, err := format.ImportASR([]byte(`{"sections":[{"type":"speech","turns":[{"speaker":"X","start":0,"end":1,"transcript":"hi"}]}]}`))
	if err != nil {
		t.Fatalf("ImportASR: %v", err)
	}
	s, _ := doc.Segment(0)
	if doc.Len() != 1 || s.SpeakerName() != "X" || s.Text() != "hi" {
		t.Errorf("got %d segments, first=%q by %q", doc.Len(), s.Text(), s.SpeakerName())
	}
}

func TestImportASR_Errors(t *testing.T) {
	t.Parallel()

	if _, err := format.ImportASR([]byte(`{"sections": 3}`)); err == nil {
		t.Error("malformed payload accepted")
	}
	_, err := format.ImportASR([]byte(`{"sections":[{"type":"speech","turns":[
		{"speaker":"A","start":5,"end":6,"transcript":"later"},
		{"speaker":"B","start":1,"end":2,"transcript":"earlier"}]}]}`))
	if !errors.Is(err, transcript.ErrNotChronological) {
		t.Errorf("err=%v, want ErrNotChronological", err)
	}
}

func TestNative_RoundTripPreservesTiming(t *testing.T) {
	t.Parallel()

	doc, err := format.ImportASR([]byte(asrPayload))
	if err != nil {
		t.Fatalf("ImportASR: %v", err)
	}

	var buf bytes.Buffer
	if err := format.Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"speakerName": "Anna"`) {
		t.Errorf("encoded document lacks speaker name:\n%s", buf.String())
	}

	back, err := format.Decode(&buf, format.Native)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(back.Segments(), doc.Segments()) {
		t.Errorf("round trip changed the document:\n got %+v\nwant %+v", back.Segments(), doc.Segments())
	}
}

func TestNative_SegmentWithoutWords(t *testing.T) {
	t.Parallel()

	in := `{"segments":[{"speakerId":"a","speakerName":"A","text":"üks kaks","start":1,"end":3}]}`
	doc, err := format.Decode(strings.NewReader(in), format.Native)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, _ := doc.Segment(0)
	if s.Text() != "üks kaks" || s.Start() != time.Second || s.End() != 3*time.Second {
		t.Errorf("segment=%q %s-%s", s.Text(), s.Start(), s.End())
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]format.Format{"": format.Native, "native": format.Native, "asr": format.ASR} {
		got, err := format.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := format.ParseFormat("srt"); err == nil {
		t.Error("ParseFormat(srt) accepted")
	}
}
