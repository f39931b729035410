package suggestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultConfidence is assigned to decoded suggestions that carry no
// confidence value.
const DefaultConfidence = 0.5

// ErrEmptyPayload is returned by [Decode] when the payload holds no JSON.
var ErrEmptyPayload = errors.New("suggestion: empty payload")

// wireSuggestion is the tolerant decoding shape. Pointer fields distinguish
// "absent" from zero so defaults and aliases can be resolved.
type wireSuggestion struct {
	ID              string   `json:"id"`
	OriginalText    string   `json:"originalText"`
	SuggestedText   string   `json:"suggestedText"`
	Confidence      *float64 `json:"confidence"`
	From            *int     `json:"from"`
	To              *int     `json:"to"`
	StartOffset     *int     `json:"startOffset"`
	EndOffset       *int     `json:"endOffset"`
	SegmentIndex    *int     `json:"segmentIndex"`
	AutoApply       *bool    `json:"autoApply"`
	ShouldAutoApply *bool    `json:"shouldAutoApply"`
	Severity        Severity `json:"severity"`
	Type            string   `json:"type"`
	Explanation     string   `json:"explanation"`
}

// segmentRecord is one entry of a per-segment analysis result.
type segmentRecord struct {
	SegmentIndex *int             `json:"segmentIndex"`
	Suggestions  []wireSuggestion `json:"suggestions"`
}

// Decode parses an upstream analysis payload into suggestions.
//
// The payload may be wrapped in markdown code fences and may be any of:
//
//   - a bare array of suggestions;
//   - an object {"suggestions": [...]};
//   - an array of per-segment records {"segmentIndex": n, "suggestions": [...]},
//     whose index is stamped on suggestions that lack one.
//
// Entries missing either originalText or suggestedText are dropped; their
// count is returned alongside the decoded suggestions. Decode does not call
// [Suggestion.Validate]; the scheduler does that per suggestion.
func Decode(data []byte) ([]Suggestion, int, error) {
	cleaned := stripFences(string(data))
	if cleaned == "" {
		return nil, 0, ErrEmptyPayload
	}

	var wire []wireSuggestion
	switch cleaned[0] {
	case '{':
		var wrapper struct {
			Suggestions *[]json.RawMessage `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
			return nil, 0, fmt.Errorf("suggestion: decode object: %w", err)
		}
		if wrapper.Suggestions == nil {
			return nil, 0, errors.New(`suggestion: decode object: missing "suggestions" array`)
		}
		var err error
		if wire, err = decodeEntries(*wrapper.Suggestions); err != nil {
			return nil, 0, err
		}
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
			return nil, 0, fmt.Errorf("suggestion: decode array: %w", err)
		}
		var err error
		if wire, err = decodeEntries(entries); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, fmt.Errorf("suggestion: payload must be a JSON array or object, got %q", cleaned[:1])
	}

	out := make([]Suggestion, 0, len(wire))
	dropped := 0
	for _, w := range wire {
		if w.OriginalText == "" || w.SuggestedText == "" {
			dropped++
			continue
		}
		out = append(out, w.resolve())
	}
	return out, dropped, nil
}

// decodeEntries decodes array entries, flattening per-segment records.
func decodeEntries(entries []json.RawMessage) ([]wireSuggestion, error) {
	var out []wireSuggestion
	for i, raw := range entries {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("suggestion: entry %d: %w", i, err)
		}
		_, hasNested := probe["suggestions"]
		_, hasOriginal := probe["originalText"]
		if hasNested && !hasOriginal {
			var rec segmentRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("suggestion: segment record %d: %w", i, err)
			}
			for _, w := range rec.Suggestions {
				if w.SegmentIndex == nil && rec.SegmentIndex != nil {
					idx := *rec.SegmentIndex
					w.SegmentIndex = &idx
				}
				out = append(out, w)
			}
			continue
		}
		var w wireSuggestion
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("suggestion: entry %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func (w wireSuggestion) resolve() Suggestion {
	s := Suggestion{
		ID:            w.ID,
		OriginalText:  w.OriginalText,
		SuggestedText: w.SuggestedText,
		Confidence:    DefaultConfidence,
		From:          w.From,
		To:            w.To,
		SegmentIndex:  w.SegmentIndex,
		AutoApply:     w.AutoApply,
		Severity:      Severity(strings.ToLower(string(w.Severity))),
		Type:          w.Type,
		Explanation:   w.Explanation,
	}
	if w.Confidence != nil {
		s.Confidence = *w.Confidence
	}
	if s.From == nil {
		s.From = w.StartOffset
	}
	if s.To == nil {
		s.To = w.EndOffset
	}
	if s.AutoApply == nil {
		s.AutoApply = w.ShouldAutoApply
	}
	return s
}

// stripFences removes optional markdown code fences (```json ... ```) that
// language models wrap around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
