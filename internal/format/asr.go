package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrWong99/redline/pkg/transcript"
)

// DefaultSpeakerName names turns that carry no speaker at all.
const DefaultSpeakerName = "S1"

// speakerNamespace scopes the speaker IDs derived from speaker names, so the
// same name always maps to the same ID.
var speakerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/MrWong99/redline/speaker"))

type asrResult struct {
	BestHypothesis *asrHypothesis `json:"best_hypothesis"`
	asrHypothesis
}

type asrHypothesis struct {
	Speakers map[string]asrSpeaker `json:"speakers"`
	Sections []asrSection          `json:"sections"`
}

type asrSpeaker struct {
	Name string `json:"name"`
}

type asrSection struct {
	Type  string    `json:"type"`
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Turns []asrTurn `json:"turns"`
}

type asrTurn struct {
	Speaker    string    `json:"speaker"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Transcript string    `json:"transcript"`
	Words      []asrWord `json:"words"`
}

type asrWord struct {
	WordWithPunctuation string  `json:"word_with_punctuation"`
	Word                string  `json:"word"`
	Start               float64 `json:"start"`
	End                 float64 `json:"end"`
}

// ImportASR converts a speech recognizer result into a Document with one
// segment per speech turn. The result may be the bare hypothesis or wrap it
// in "best_hypothesis". Non-speech sections are skipped.
func ImportASR(data []byte) (transcript.Document, error) {
	var res asrResult
	if err := json.Unmarshal(data, &res); err != nil {
		return transcript.Document{}, fmt.Errorf("format: asr result: %w", err)
	}
	hyp := res.asrHypothesis
	if res.BestHypothesis != nil {
		hyp = *res.BestHypothesis
	}

	var segs []transcript.Segment
	for _, sec := range hyp.Sections {
		if sec.Type != "speech" {
			continue
		}
		for _, turn := range sec.Turns {
			name := speakerName(hyp.Speakers, turn.Speaker)
			segs = append(segs, transcript.NewSegment(SpeakerID(name), name, turnWords(turn)))
		}
	}

	doc, err := transcript.NewDocument(segs...)
	if err != nil {
		return transcript.Document{}, fmt.Errorf("format: asr result: %w", err)
	}
	return doc, nil
}

// SpeakerID derives the stable speaker ID used for a speaker name.
func SpeakerID(name string) string {
	return uuid.NewSHA1(speakerNamespace, []byte(name)).String()
}

// speakerName resolves a turn's speaker: the declared name, else the raw
// speaker label, else [DefaultSpeakerName].
func speakerName(speakers map[string]asrSpeaker, label string) string {
	if label == "" {
		return DefaultSpeakerName
	}
	if sp, ok := speakers[label]; ok && strings.TrimSpace(sp.Name) != "" {
		return sp.Name
	}
	return label
}

func turnWords(turn asrTurn) []transcript.Word {
	if len(turn.Words) == 0 {
		return splitTimed(turn.Transcript, duration(turn.Start), duration(turn.End))
	}
	words := make([]transcript.Word, 0, len(turn.Words))
	for _, w := range turn.Words {
		text := w.WordWithPunctuation
		if text == "" {
			text = w.Word
		}
		words = append(words, transcript.Word{Text: text, Start: duration(w.Start), End: duration(w.End)})
	}
	return words
}
