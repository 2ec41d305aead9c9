// file: internal/library/normalize.go
// version: 1.0.0
// guid: e7c1a5f3-8b4d-4962-a0e7-2f9c5d8b1a36

package library

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reYearSuffix    = regexp.MustCompile(`\s*\(\d{4}\)`)
	reParenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	rePunctuation   = regexp.MustCompile(`[^\w\s]`)
	reWhitespace    = regexp.MustCompile(`\s+`)
	reEditedBy      = regexp.MustCompile(`^edited\s+by\s+`)
	reAuthorSplit   = regexp.MustCompile(`,\s*|\s+and\s+`)
)

// diacritic folding so "Kazuo Ishiguro" matches a folder saved with
// combining marks intact
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeForCompare reduces a folder name to a comparison key: years,
// parentheticals, punctuation, and case are stripped, whitespace is
// collapsed, and a single trailing "s" is dropped so "Chronicles" matches
// "Chronicle". The trailing-s rule also turns "James" into "jame", which
// is acceptable since both sides get the same treatment.
func NormalizeForCompare(name string) string {
	s := strings.ToLower(fold(name))
	s = reYearSuffix.ReplaceAllString(s, "")
	s = reParenthetical.ReplaceAllString(s, "")
	s = rePunctuation.ReplaceAllString(s, "")
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
	s = strings.TrimSuffix(s, "s")
	return s
}

// IsNearMatch reports whether two normalized folder names refer to the
// same thing. Catches redundant author prefixes ("the raven tower" inside
// "ann leckie the raven tower") via token subset, with a 70% Jaccard
// fallback for reordered or partial overlaps.
func IsNearMatch(desiredNorm, existingNorm string) bool {
	if desiredNorm == existingNorm {
		return true
	}

	desired := tokenSet(desiredNorm)
	existing := tokenSet(existingNorm)
	if len(desired) < 2 && len(existing) < 2 {
		return false
	}

	smaller, larger := desired, existing
	if len(existing) < len(desired) {
		smaller, larger = existing, desired
	}
	if len(smaller) >= 2 && isSubset(smaller, larger) {
		return true
	}

	intersection := 0
	for tok := range desired {
		if existing[tok] {
			intersection++
		}
	}
	union := len(desired) + len(existing) - intersection
	if union == 0 {
		return false
	}
	return float64(intersection)/float64(union) >= 0.7
}

// NormalizeAuthor reduces an author name to a matching key: "Edited by"
// prefixes dropped, "&" and "and" unified, periods removed, and spaced
// single letters collapsed so "J. R. R. Tolkien" equals "J.R.R. Tolkien".
func NormalizeAuthor(author string) string {
	s := strings.ToLower(strings.TrimSpace(fold(author)))
	s = reEditedBy.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " & ", " and ")
	s = strings.ReplaceAll(s, ".", "")
	s = collapseInitials(s)
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// Surname extracts the matching surname: the last word of the first
// author when several are joined by commas or "and".
func Surname(name string) string {
	if name == "" {
		return ""
	}
	parts := reAuthorSplit.Split(name, -1)
	words := strings.Fields(strings.TrimSpace(parts[0]))
	if len(words) == 0 {
		return ""
	}
	return strings.TrimRight(strings.ToLower(fold(words[len(words)-1])), ".,;:")
}

// collapseInitials merges runs of single-letter words: "j r r tolkien"
// becomes "jrr tolkien".
func collapseInitials(s string) string {
	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	fromInitials := false
	for _, w := range words {
		if len(w) == 1 && fromInitials {
			out[len(out)-1] += w
			continue
		}
		out = append(out, w)
		fromInitials = len(w) == 1
	}
	return strings.Join(out, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func isSubset(smaller, larger map[string]bool) bool {
	for tok := range smaller {
		if !larger[tok] {
			return false
		}
	}
	return true
}
