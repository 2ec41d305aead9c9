// file: internal/mediainfo/author.go
// version: 1.1.0
// guid: 8a3c5e1f-2d7b-4f90-b6a4-c9e0d2f7a185

package mediainfo

import (
	"strings"

	"github.com/rodaddy/audiobook-pipeline/internal/metadata"
)

// roleWords flag a credit as a contributor role rather than the author.
var roleWords = []string{
	"introduction", "narrator", "narrated", "read", "performed",
	"foreword", "afterword", "translated", "edited", "abridged",
	"unabridged", "producer", "director",
}

// Author extracts a clean author name from the tags. The album artist frame
// is checked first since the artist frame often carries narrator credits.
// Returns empty when no usable author is found.
func (t *TagInfo) Author() string {
	for _, raw := range []string{t.AlbumArtist, t.Artist} {
		if raw == "" {
			continue
		}
		if cleaned := CleanAuthorTag(raw); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// CleanAuthorTag turns an artist or album-artist tag into a usable author
// name. Placeholder values, role annotations ("Author - introduction"),
// trailing narrator credits ("Author, Narrated by X"), and secondary
// artists after a semicolon are stripped.
func CleanAuthorTag(raw string) string {
	name := metadata.FilterPlaceholder(raw)
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, " - "); idx >= 0 {
		right := strings.ToLower(strings.TrimSpace(name[idx+3:]))
		if startsWithRoleWord(right) {
			name = strings.TrimSpace(name[:idx])
		}
	}

	if strings.Contains(name, ", ") {
		parts := strings.Split(name, ", ")
		kept := parts[:1]
		for _, part := range parts[1:] {
			if containsRoleWord(strings.ToLower(strings.TrimSpace(part))) {
				break
			}
			kept = append(kept, part)
		}
		name = strings.Join(kept, ", ")
	}

	if idx := strings.Index(name, "; "); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}

	if len(name) < 3 {
		return ""
	}
	return name
}

func startsWithRoleWord(s string) bool {
	for _, w := range roleWords {
		if strings.HasPrefix(s, w) {
			return true
		}
	}
	return false
}

func containsRoleWord(s string) bool {
	for _, w := range roleWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
