// Package format converts transcript documents to and from their JSON wire
// representations.
//
// The native format mirrors [transcript.Document] with times in seconds. The
// ASR format is the speech recognizer's result document, which can be
// imported but not written.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MrWong99/redline/pkg/transcript"
)

// Document is the native wire form of a transcript.
type Document struct {
	Segments []Segment `json:"segments" validate:"dive"`
}

// Segment is the native wire form of one speaker segment. Text is
// informational on output; on input it is only used when Words is empty.
type Segment struct {
	Index       int     `json:"index"`
	SpeakerID   string  `json:"speakerId"`
	SpeakerName string  `json:"speakerName,omitempty"`
	Text        string  `json:"text,omitempty"`
	Start       float64 `json:"start" validate:"gte=0"`
	End         float64 `json:"end" validate:"gtefield=Start"`
	Words       []Word  `json:"words,omitempty" validate:"dive"`
}

// Word is the native wire form of one timed word.
type Word struct {
	Text    string  `json:"text" validate:"required"`
	Start   float64 `json:"start" validate:"gte=0"`
	End     float64 `json:"end" validate:"gtefield=Start"`
	Derived bool    `json:"derived,omitempty"`
}

// FromDocument converts d to its wire form.
func FromDocument(d transcript.Document) Document {
	segs := d.Segments()
	out := Document{Segments: make([]Segment, len(segs))}
	for i, s := range segs {
		words := s.Words()
		ws := make([]Word, len(words))
		for j, w := range words {
			ws[j] = Word{Text: w.Text, Start: seconds(w.Start), End: seconds(w.End), Derived: w.Derived}
		}
		out.Segments[i] = Segment{
			Index:       s.Index(),
			SpeakerID:   s.SpeakerID(),
			SpeakerName: s.SpeakerName(),
			Text:        s.Text(),
			Start:       seconds(s.Start()),
			End:         seconds(s.End()),
			Words:       ws,
		}
	}
	return out
}

// ToDocument converts the wire form into a [transcript.Document]. A segment
// without words is split from its text, with timing spread over the
// segment's range and marked derived.
func (d Document) ToDocument() (transcript.Document, error) {
	segs := make([]transcript.Segment, len(d.Segments))
	for i, s := range d.Segments {
		var words []transcript.Word
		if len(s.Words) > 0 {
			words = make([]transcript.Word, len(s.Words))
			for j, w := range s.Words {
				words[j] = transcript.Word{Text: w.Text, Start: duration(w.Start), End: duration(w.End), Derived: w.Derived}
			}
		} else {
			words = splitTimed(s.Text, duration(s.Start), duration(s.End))
		}
		segs[i] = transcript.NewSegment(s.SpeakerID, s.SpeakerName, words)
	}
	doc, err := transcript.NewDocument(segs...)
	if err != nil {
		return transcript.Document{}, fmt.Errorf("format: native document: %w", err)
	}
	return doc, nil
}

// splitTimed splits text on whitespace and spreads the words evenly over
// [start, end].
func splitTimed(text string, start, end time.Duration) []transcript.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	end = max(end, start)
	step := (end - start) / time.Duration(len(fields))
	words := make([]transcript.Word, len(fields))
	for i, f := range fields {
		words[i] = transcript.Word{
			Text:    f,
			Start:   start + time.Duration(i)*step,
			End:     start + time.Duration(i+1)*step,
			Derived: true,
		}
	}
	words[len(words)-1].End = end
	return words
}

func seconds(d time.Duration) float64 { return d.Seconds() }

func duration(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}
