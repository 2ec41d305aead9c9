// file: internal/matcher/fuzzy.go
// version: 1.0.0
// guid: 4d8b2f1a-9c3e-47a5-b6d0-8e2f1a3c5d7b

package matcher

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Ratio returns a 0-100 similarity score between two strings based on
// Levenshtein edit distance. 100 means identical after normalization.
func Ratio(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	score := (1.0 - float64(dist)/float64(maxLen)) * 100
	if score < 0 {
		return 0
	}
	return score
}

// TokenSortRatio tokenizes both strings, sorts the tokens, and compares the
// rejoined forms. Word order does not affect the score, so
// "empire final the" matches "The Final Empire".
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio compares the token intersection against each side's
// remainder and returns the best pairwise ratio. Extra subtitle or series
// tokens on one side barely lower the score.
func TokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return Ratio(a, b)
	}

	var common, diffA, diffB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common = append(common, tok)
		} else {
			diffA = append(diffA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			diffB = append(diffB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(diffA)
	sort.Strings(diffB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(diffA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(diffB, " "))

	best := Ratio(withA, withB)
	if base != "" {
		if s := Ratio(base, withA); s > best {
			best = s
		}
		if s := Ratio(base, withB); s > best {
			best = s
		}
	}
	return best
}

// PartialRatio slides the shorter string across the longer one and returns
// the best window score. "Sanderson" scores 100 against "Brandon Sanderson".
func PartialRatio(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == len(longer) {
		return Ratio(shorter, longer)
	}

	runes := []rune(longer)
	window := len([]rune(shorter))
	best := 0.0
	for i := 0; i+window <= len(runes); i++ {
		score := Ratio(shorter, string(runes[i:i+window]))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

// sortTokens normalizes s and rejoins its tokens in sorted order.
func sortTokens(s string) string {
	fields := strings.Fields(normalize(s))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// tokenSet returns the unique normalized tokens of s.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalize(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// normalize lowercases and strips non-alphanumeric characters except spaces.
func normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
