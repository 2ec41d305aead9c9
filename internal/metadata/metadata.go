// file: internal/metadata/metadata.go
// version: 1.0.0
// guid: 2e5a8c1d-4f7b-49e2-a3d6-8b0c2e4f6a8d

package metadata

import (
	"strconv"
	"strings"
)

// ParsedMetadata holds the best-guess fields parsed from a path, tags, or a
// resolver decision. Empty string means unknown; the fields are always
// present so partial fills are explicit.
type ParsedMetadata struct {
	Author   string
	Title    string
	Series   string
	Position string
}

// IsZero reports whether no field was determined.
func (m ParsedMetadata) IsZero() bool {
	return m.Author == "" && m.Title == "" && m.Series == "" && m.Position == ""
}

// placeholderValues are junk strings that must never survive as metadata.
var placeholderValues = map[string]bool{
	"unknown":         true,
	"various":         true,
	"various artists": true,
	"_unsorted":       true,
	"n/a":             true,
	"none":            true,
}

// IsPlaceholder reports whether s is a junk placeholder rather than a real value.
func IsPlaceholder(s string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(s))]
}

// FilterPlaceholder returns s trimmed, or empty if it is a placeholder.
func FilterPlaceholder(s string) string {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) {
		return ""
	}
	return s
}

// NormalizePosition strips leading zeros from a numeric position string by
// integer round-trip: "01" -> "1", "007" -> "7", "0" -> "0". Non-numeric and
// empty values pass through unchanged.
func NormalizePosition(pos string) string {
	pos = strings.TrimSpace(pos)
	if pos == "" {
		return ""
	}
	n, err := strconv.Atoi(pos)
	if err != nil || n < 0 {
		return pos
	}
	return strconv.Itoa(n)
}

// newResult assembles a trimmed ParsedMetadata, applying the shared cleanup
// rules: leading dashes stripped from the title, trailing dashes from the
// series, and position normalization.
func newResult(author, title, series, position string) ParsedMetadata {
	return ParsedMetadata{
		Author:   strings.TrimSpace(author),
		Title:    strings.TrimLeft(strings.TrimSpace(title), "- "),
		Series:   strings.TrimRight(strings.TrimSpace(series), "- "),
		Position: NormalizePosition(position),
	}
}

// AudioExtensions are the audio file extensions the pipeline recognizes.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".wma":  true,
}
