package locate

import "fmt"

// Span is a half-open rune range [From, To) of the flattened document text.
type Span struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len returns the rune length of the span.
func (s Span) Len() int { return s.To - s.From }

// Overlaps reports whether s and o share at least one rune.
func (s Span) Overlaps(o Span) bool { return s.From < o.To && o.From < s.To }

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.From, s.To) }

// Kind is the outcome category of a lookup.
type Kind int

const (
	NotFound Kind = iota
	Found
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Result is the tagged outcome of locating one suggestion.
type Result struct {
	Kind Kind

	// Span is valid only when Kind is Found.
	Span Span

	// Matches is the number of candidate spans the deciding strategy
	// produced. It is 0 for NotFound.
	Matches int

	// Strategy names the strategy that decided the outcome.
	Strategy string

	// Partial is set when the span came from a normalizing strategy rather
	// than an exact match.
	Partial bool
}
