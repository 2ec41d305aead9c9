// file: internal/audit/normalize.go
// version: 1.0.0
// guid: 9e2c7b41-5d8f-4a03-ae69-f14b82d6c357

package audit

import (
	"regexp"
	"strings"
)

// FranchiseFolders are umbrella folders that consolidate books from many
// authors (compared by normalized name).
var FranchiseFolders = map[string]bool{
	"dragonlance":         true,
	"forgotten realms":    true,
	"star wars":           true,
	"warhammer":           true,
	"dungeons & dragons":  true,
	"magic the gathering": true,
}

var (
	reBookNumPrefix   = regexp.MustCompile(`^(book\s+)?\d+\s*-\s*`)
	reASINCode        = regexp.MustCompile(`(?i)\[B0[A-Z0-9]+\]`)
	reBracketed       = regexp.MustCompile(`\[.*?\]`)
	reAbridgedParen   = regexp.MustCompile(`(?i)\(\s*(?:un)?abridged\s*\)`)
	reParenContent    = regexp.MustCompile(`\(.*?\)`)
	rePartSuffix      = regexp.MustCompile(`(?i),?\s*part\s+\d+\s*$`)
	reBookNumSuffix   = regexp.MustCompile(`(?i)\s*-\s*book\s+\d+\s*$`)
	reDragonlanceSfx  = regexp.MustCompile(`(?i)\s*-\s*dragonlance[^-]*$`)
	reVolumeSuffix    = regexp.MustCompile(`(?i)\s*-?\s*,?\s*volume\s+\w+\s*$`)
	reSagaSuffix      = regexp.MustCompile(`(?i)\s*-\s*the\s+\w+\s+saga.*$`)
	reSubBookSuffix   = regexp.MustCompile(`(?i)_book\s+\w+\s*-.*$`)
	reInitialsSuffix  = regexp.MustCompile(`\s+-\s+[a-z]\.\s*[a-z]\.\s*[a-z]+\s*$`)
	reNumberedPrefix  = regexp.MustCompile(`^[\w\s]+\d+_`)
	reWordHyphen      = regexp.MustCompile(`([a-z])-([a-z])`)
	reDragonlancePfx  = regexp.MustCompile(`(?i)^dragonlance\s*[-:]?\s*`)
	reDedupWhitespace = regexp.MustCompile(`\s+`)
	reEditedByPrefix  = regexp.MustCompile(`^edited\s+by\s+`)
)

// NormalizeForDedup normalizes a filename stem for duplicate detection.
// Strips series prefixes, part suffixes, ASIN codes, noise words, and,
// when author is given, the author-name prefix or suffix common in raw
// downloads.
func NormalizeForDedup(stem, author string) string {
	s := strings.ToLower(stem)
	s = reBookNumPrefix.ReplaceAllString(s, "")
	s = reASINCode.ReplaceAllString(s, "")
	s = reBracketed.ReplaceAllString(s, "")
	s = reAbridgedParen.ReplaceAllString(s, "")
	s = reParenContent.ReplaceAllString(s, "")
	s = rePartSuffix.ReplaceAllString(s, "")
	s = reBookNumSuffix.ReplaceAllString(s, "")
	s = reDragonlanceSfx.ReplaceAllString(s, "")
	s = reVolumeSuffix.ReplaceAllString(s, "")
	s = reSagaSuffix.ReplaceAllString(s, "")
	s = reSubBookSuffix.ReplaceAllString(s, "")
	s = reInitialsSuffix.ReplaceAllString(s, "")

	if author != "" {
		for _, form := range []string{strings.ToLower(author), NormalizeAuthor(author)} {
			pat := strings.ReplaceAll(regexp.QuoteMeta(form), " ", `\s*`)
			if re, err := regexp.Compile(`^` + pat + `\s*-\s*`); err == nil {
				s = re.ReplaceAllString(s, "")
			}
			if re, err := regexp.Compile(`\s*-\s*` + pat + `.*$`); err == nil {
				s = re.ReplaceAllString(s, "")
			}
		}
	}

	s = reNumberedPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	// word-word hyphens only; run twice for chains like "cat-and-mouse"
	s = reWordHyphen.ReplaceAllString(s, "$1 $2")
	s = reWordHyphen.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, ",", "")
	s = reDragonlancePfx.ReplaceAllString(s, "")
	s = reDedupWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeAuthor normalizes an author name for cross-library matching:
// "Edited by" prefix, &/and equivalence, periods, and initial runs
// ("R. A. Salvatore" and "RA Salvatore" compare equal).
func NormalizeAuthor(author string) string {
	s := strings.ToLower(strings.TrimSpace(author))
	s = reEditedByPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " & ", " and ")
	s = strings.ReplaceAll(s, ".", "")
	s = collapseInitialRuns(s)
	s = reDedupWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// collapseInitialRuns merges consecutive single-letter words: "j r r
// tolkien" becomes "jrr tolkien".
func collapseInitialRuns(s string) string {
	words := strings.Fields(s)
	var out []string
	fromInitials := false
	for _, w := range words {
		if len(w) == 1 {
			if fromInitials {
				out[len(out)-1] += w
				continue
			}
			out = append(out, w)
			fromInitials = true
			continue
		}
		out = append(out, w)
		fromInitials = false
	}
	return strings.Join(out, " ")
}

// IsFranchiseFolder reports whether name is a known franchise umbrella.
func IsFranchiseFolder(name string) bool {
	return FranchiseFolders[NormalizeAuthor(name)]
}
