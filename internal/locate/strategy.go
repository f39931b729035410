package locate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy names reported in [Result.Strategy].
const (
	StrategyHint        = "hint"
	StrategyExact       = "exact"
	StrategyPunctuation = "punctuation"
	StrategyFlexible    = "flexible"
)

// Strategy is one search technique. Find returns every candidate span of
// needle in text; it must be a pure function of its arguments.
type Strategy struct {
	Name    string
	Partial bool
	Find    func(text, needle string) []Span
}

// Built-in strategies, in cascade order.
var (
	Exact       = Strategy{Name: StrategyExact, Find: findExact}
	Punctuation = Strategy{Name: StrategyPunctuation, Partial: true, Find: findPunctuation}
	Flexible    = Strategy{Name: StrategyFlexible, Partial: true, Find: findFlexible}
)

// FirstNonEmpty runs strategies in order and decides on the first one that
// yields any span. More than one span is Ambiguous; later strategies are
// never consulted to break the tie.
func FirstNonEmpty(text, needle string, strategies ...Strategy) Result {
	for _, st := range strategies {
		spans := st.Find(text, needle)
		switch len(spans) {
		case 0:
			continue
		case 1:
			return Result{Kind: Found, Span: spans[0], Matches: 1, Strategy: st.Name, Partial: st.Partial}
		default:
			return Result{Kind: Ambiguous, Matches: len(spans), Strategy: st.Name, Partial: st.Partial}
		}
	}
	return Result{Kind: NotFound}
}

const punctMarks = ",.;:!?"

func isPunct(r rune) bool { return strings.ContainsRune(punctMarks, r) }

// isGap reports in-segment whitespace. The segment separator is excluded so
// no strategy produces a span crossing a segment boundary through padding.
func isGap(r rune) bool { return r != '\n' && unicode.IsSpace(r) }

func isPunctOrSpace(r rune) bool { return isPunct(r) || unicode.IsSpace(r) }

// fold lowercases s rune by rune, so rune offsets into the result equal rune
// offsets into s.
func fold(s string) string { return strings.Map(unicode.ToLower, s) }

// EqualFold reports whether a and b are equal under the same rune-wise
// lowercasing the exact strategy searches with.
func EqualFold(a, b string) bool { return fold(a) == fold(b) }

func findExact(text, needle string) []Span {
	if needle == "" {
		return nil
	}
	hay, n := fold(text), fold(needle)
	nlen := utf8.RuneCountInString(n)

	var spans []Span
	pos, off := 0, 0
	for {
		i := strings.Index(hay[pos:], n)
		if i < 0 {
			return spans
		}
		from := off + utf8.RuneCountInString(hay[pos:pos+i])
		spans = append(spans, Span{From: from, To: from + nlen})
		pos += i + len(n)
		off = from + nlen
	}
}

func findPunctuation(text, needle string) []Span {
	core := strings.TrimFunc(needle, isPunctOrSpace)
	if core == "" {
		return nil
	}
	trimmed := strings.TrimSpace(needle)
	first, _ := utf8.DecodeRuneInString(trimmed)
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	leading, trailing := isPunct(first), isPunct(last)

	cores := findExact(text, core)
	if len(cores) == 0 || (!leading && !trailing) {
		return cores
	}

	runes := []rune(text)
	spans := make([]Span, 0, len(cores))
	for _, sp := range cores {
		if leading {
			k := sp.From
			for k > 0 && isGap(runes[k-1]) {
				k--
			}
			p := k
			for p > 0 && isPunct(runes[p-1]) {
				p--
			}
			if p < k {
				sp.From = p
			}
		}
		if trailing {
			for sp.To < len(runes) && isPunct(runes[sp.To]) {
				sp.To++
			}
		}
		if n := len(spans); n > 0 && spans[n-1] == sp {
			continue
		}
		spans = append(spans, sp)
	}
	return spans
}

func findFlexible(text, needle string) []Span {
	re := flexiblePattern(needle)
	if re == nil {
		return nil
	}
	var spans []Span
	for _, m := range re.FindAllStringIndex(text, -1) {
		from := utf8.RuneCountInString(text[:m[0]])
		spans = append(spans, Span{From: from, To: from + utf8.RuneCountInString(text[m[0]:m[1]])})
	}
	return spans
}

// flexiblePattern compiles a case-insensitive pattern matching the words of
// needle separated by any in-segment whitespace, tolerating punctuation
// between words. Punctuation before the first and after the last word is
// optional and only admitted when needle itself has it there.
func flexiblePattern(needle string) *regexp.Regexp {
	var words []string
	for _, tok := range strings.Fields(needle) {
		if w := strings.TrimFunc(tok, isPunct); w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	if len(words) == 0 {
		return nil
	}

	trimmed := strings.TrimSpace(needle)
	first, _ := utf8.DecodeRuneInString(trimmed)
	last, _ := utf8.DecodeLastRuneInString(trimmed)

	const p, gap = `[,.;:!?]`, `[^\S\n]`
	var sb strings.Builder
	sb.WriteString(`(?i)`)
	if isPunct(first) {
		sb.WriteString(`(?:` + p + gap + `*)?`)
	}
	sb.WriteString(strings.Join(words, p+`*`+gap+`+`))
	if isPunct(last) {
		sb.WriteString(`(?:` + gap + `*` + p + `)?`)
	}
	return regexp.MustCompile(sb.String())
}
