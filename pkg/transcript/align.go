package transcript

import "time"

// anchor pairs a word index in the old sequence with the index of the
// identical token in the new sequence.
type anchor struct {
	oldIdx int
	newIdx int
}

// tokenLCS computes the longest common subsequence of two token slices and
// returns anchor pairs in order. Standard O(m×n) DP; segments are short.
func tokenLCS(a, b []string) []anchor {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1] + 1
			case dp[i-1][j] >= dp[i][j-1]:
				dp[i][j] = dp[i-1][j]
			default:
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	k := dp[m][n]
	if k == 0 {
		return nil
	}
	anchors := make([]anchor, k)
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			k--
			anchors[k] = anchor{oldIdx: i - 1, newIdx: j - 1}
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return anchors
}

// realign rebuilds a word list from the edited token sequence. Tokens that
// the LCS anchors to an unchanged old word keep that word (and its timing);
// every other token becomes a Derived word whose timing is spread over the
// range of the old words it replaced.
func realign(old []Word, tokens []string) []Word {
	texts := make([]string, len(old))
	for i, w := range old {
		texts[i] = w.Text
	}

	out := make([]Word, 0, len(tokens))
	oi, ti := 0, 0
	fill := func(oEnd, tEnd int) {
		if ti < tEnd {
			lo, hi := gapBounds(old, oi, oEnd)
			out = append(out, spread(tokens[ti:tEnd], lo, hi)...)
		}
	}
	for _, a := range tokenLCS(texts, tokens) {
		fill(a.oldIdx, a.newIdx)
		out = append(out, old[a.oldIdx])
		oi, ti = a.oldIdx+1, a.newIdx+1
	}
	fill(len(old), len(tokens))
	return out
}

// gapBounds returns the time range covered by old[from:to]. For an empty
// range it returns the slot between the neighbouring words.
func gapBounds(old []Word, from, to int) (lo, hi time.Duration) {
	if from < to {
		lo, hi = old[from].Start, old[from].End
		for _, w := range old[from+1 : to] {
			lo = min(lo, w.Start)
			hi = max(hi, w.End)
		}
		return lo, hi
	}
	switch {
	case from > 0:
		lo = old[from-1].End
	case from < len(old):
		lo = old[from].Start
	}
	hi = lo
	if to < len(old) && old[to].Start > lo {
		hi = old[to].Start
	}
	return lo, hi
}

func spread(tokens []string, lo, hi time.Duration) []Word {
	n := time.Duration(len(tokens))
	step := (hi - lo) / n
	words := make([]Word, len(tokens))
	for k, t := range tokens {
		kd := time.Duration(k)
		words[k] = Word{
			Text:    t,
			Start:   lo + kd*step,
			End:     lo + (kd+1)*step,
			Derived: true,
		}
	}
	words[len(words)-1].End = hi
	return words
}
