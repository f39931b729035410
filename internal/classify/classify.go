// Package classify labels a text correction by the kind of change it makes.
//
// The label is a reporting aid; it never influences whether a suggestion is
// applied. Word pairs are compared with Double Metaphone codes (sound-alike
// corrections, typical of speech recognition errors) and Damerau-Levenshtein
// distance (typos).
package classify

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Kind is a change category.
type Kind string

const (
	KindUnchanged   Kind = "unchanged"
	KindPunctuation Kind = "punctuation"
	KindCasing      Kind = "casing"
	KindPhonetic    Kind = "phonetic"
	KindSpelling    Kind = "spelling"
	KindRewrite     Kind = "rewrite"
)

const (
	defaultSimilarityThreshold = 0.85
	defaultEditRatio           = 0.34
)

// Option configures a [Classifier].
type Option func(*Classifier)

// WithSimilarityThreshold sets the minimum Jaro-Winkler score for two
// phrases with different word counts to count as a spelling change.
// Default: 0.85.
func WithSimilarityThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.similarityThreshold = threshold
	}
}

// WithEditRatio sets the maximum Damerau-Levenshtein distance, relative to
// the longer word, for a word pair to count as a spelling change. A distance
// of one is always accepted. Default: 0.34.
func WithEditRatio(ratio float64) Option {
	return func(c *Classifier) {
		c.editRatio = ratio
	}
}

// Classifier is read-only after construction and safe for concurrent use.
type Classifier struct {
	similarityThreshold float64
	editRatio           float64
}

// New returns a Classifier configured with opts.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		similarityThreshold: defaultSimilarityThreshold,
		editRatio:           defaultEditRatio,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns the kind of change that turns original into suggested.
// Checks run from the narrowest kind to the broadest.
func (c *Classifier) Classify(original, suggested string) Kind {
	if original == suggested {
		return KindUnchanged
	}

	a, b := stripPunctuation(original), stripPunctuation(suggested)
	switch {
	case a == b:
		return KindPunctuation
	case strings.EqualFold(a, b):
		return KindCasing
	}

	ta, tb := strings.Fields(strings.ToLower(a)), strings.Fields(strings.ToLower(b))
	if len(ta) != len(tb) {
		joinedA, joinedB := strings.Join(ta, ""), strings.Join(tb, "")
		switch {
		case joinedA == joinedB:
			return KindSpelling
		case soundsAlike(joinedA, joinedB):
			return KindPhonetic
		case matchr.JaroWinkler(joinedA, joinedB, false) >= c.similarityThreshold:
			return KindSpelling
		}
		return KindRewrite
	}

	kind := KindPhonetic
	for i := range ta {
		if ta[i] == tb[i] {
			continue
		}
		switch {
		case soundsAlike(ta[i], tb[i]):
		case c.closeSpelling(ta[i], tb[i]):
			kind = KindSpelling
		default:
			return KindRewrite
		}
	}
	return kind
}

func (c *Classifier) closeSpelling(a, b string) bool {
	d := matchr.DamerauLevenshtein(a, b)
	if d <= 1 {
		return true
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return float64(d) <= c.editRatio*float64(longest)
}

// soundsAlike reports whether two words share a Double Metaphone code.
func soundsAlike(a, b string) bool {
	pa, sa := matchr.DoubleMetaphone(a)
	pb, sb := matchr.DoubleMetaphone(b)
	for _, x := range []string{pa, sa} {
		if x == "" {
			continue
		}
		if x == pb || x == sb {
			return true
		}
	}
	return false
}

// stripPunctuation drops punctuation and collapses whitespace.
func stripPunctuation(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, s)), " ")
}
