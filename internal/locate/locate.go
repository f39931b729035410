// Package locate finds where a suggestion's original text sits in the
// current flattened document text.
//
// Lookup first honours an explicit position hint when the text under it
// still matches, then runs an ordered cascade of strategies (exact,
// punctuation-normalized, flexible word-gap) and decides on the first
// strategy that yields anything. A strategy yielding several spans makes the
// outcome Ambiguous; looser strategies are never used to disambiguate.
package locate

import (
	"github.com/MrWong99/redline/pkg/suggestion"
	"github.com/MrWong99/redline/pkg/transcript"
)

// Locator resolves suggestions to spans. It is stateless and safe for
// concurrent use.
type Locator struct {
	strategies []Strategy
}

// New returns a Locator. With allowPartial false only the exact strategy
// runs.
func New(allowPartial bool) *Locator {
	if !allowPartial {
		return &Locator{strategies: []Strategy{Exact}}
	}
	return &Locator{strategies: []Strategy{Exact, Punctuation, Flexible}}
}

// WithStrategies returns a Locator using a custom cascade.
func WithStrategies(strategies ...Strategy) *Locator {
	return &Locator{strategies: append([]Strategy(nil), strategies...)}
}

// Locate resolves s against doc.
func (l *Locator) Locate(doc transcript.Document, s suggestion.Suggestion) Result {
	return l.LocateText(doc.Text(), s)
}

// LocateText resolves s against an already flattened text.
func (l *Locator) LocateText(text string, s suggestion.Suggestion) Result {
	if s.HasPosition() {
		sp := Span{From: *s.From, To: *s.To}
		if sp.Len() > 0 && EqualFold(TextAt(text, sp), s.OriginalText) {
			return Result{Kind: Found, Span: sp, Matches: 1, Strategy: StrategyHint}
		}
	}
	return FirstNonEmpty(text, s.OriginalText, l.strategies...)
}

// TextAt returns the runes of text in sp, or "" when sp is out of range.
func TextAt(text string, sp Span) string {
	if sp.From < 0 || sp.From > sp.To {
		return ""
	}
	i, from, to := 0, -1, -1
	for b := range text {
		if i == sp.From {
			from = b
		}
		if i == sp.To {
			to = b
			break
		}
		i++
	}
	if from < 0 && i == sp.From {
		from = len(text)
	}
	if to < 0 {
		if i != sp.To {
			return ""
		}
		to = len(text)
	}
	return text[from:to]
}
