// file: internal/metadata/hints.go
// version: 1.0.0
// guid: 2b8f4d6e-7a1c-49e3-95b0-d4c2f8a6e013

package metadata

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	reHintBracketNum = regexp.MustCompile(`\[[0-9]+\]`)
	reHintMarker     = regexp.MustCompile(`#[0-9]+-`)
	reHintLeadingNum = regexp.MustCompile(`^[0-9]+\s*[-\x{2013}]?\s*`)
	reHintMidNum     = regexp.MustCompile(`\s[0-9]{1,3}\s`)
	reHintBrackets   = regexp.MustCompile(`[\[\](){}]`)
)

// SearchHints are the catalog search inputs derived from a source path.
// Query is what gets sent to the catalog; the hints drive result scoring.
type SearchHints struct {
	TitleHint  string
	AuthorHint string
	Query      string
}

// ExtractHints derives title and author search hints from a source path.
// The basename drives the title; the parent directory, when distinct,
// drives the author. When parent and basename match (the common
// dir-per-book layout) the grandparent is promoted to the author slot.
func ExtractHints(path string) SearchHints {
	base := filepath.Base(path)
	basename := base
	if ext := filepath.Ext(base); ext != "" {
		basename = strings.TrimSuffix(base, ext)
	}
	basename = stripHashSuffix(basename)

	parentName := stripHashSuffix(pathComponentName(filepath.Dir(path)))
	if parentName != "" && parentName == basename {
		if gpName := stripHashSuffix(pathComponentName(filepath.Dir(filepath.Dir(path)))); gpName != "" {
			parentName = gpName
		}
	}

	titleHint := cleanHint(basename)

	authorHint := ""
	if parentName != "" && parentName != basename {
		authorHint = cleanHint(parentName)
	}

	query := titleHint
	if authorHint != "" {
		query = strings.TrimSpace(authorHint + " " + titleHint)
	}
	return SearchHints{TitleHint: titleHint, AuthorHint: authorHint, Query: query}
}

// cleanHint strips series numbering and bracket characters so the hint
// matches how catalog listings are titled.
func cleanHint(s string) string {
	s = stripSeriesNumbers(s)
	s = reHintBrackets.ReplaceAllString(s, "")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// stripSeriesNumbers removes "[3]", "#3-", leading track numbers, and
// free-standing 1-3 digit numbers.
func stripSeriesNumbers(s string) string {
	s = reHintBracketNum.ReplaceAllString(s, "")
	s = reHintMarker.ReplaceAllString(s, "")
	s = reHintLeadingNum.ReplaceAllString(s, "")
	s = reHintMidNum.ReplaceAllString(s, " ")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}
