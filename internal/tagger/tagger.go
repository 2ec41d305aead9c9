// file: internal/tagger/tagger.go
// version: 2.0.0
// guid: 3b4c5d6e-7f8a-9b0c-1d2e-3f4a5b6c7d8e

// Package tagger writes resolved metadata back into audio files. Native
// tag writing requires the 'taglib' build tag; the default build only
// supports cover embedding via external tools.
package tagger

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrNotSupported is returned when native tag writing is not compiled in.
var ErrNotSupported = errors.New("native tag writing not available (build with -tags taglib)")

// Tags holds the fields written to an organized audiobook file.
type Tags struct {
	Title    string
	Album    string
	Author   string
	Narrator string
	Series   string
	Position string
	ASIN     string
	Year     string
	Genre    string
}

// Write updates the file's metadata tags. Existing fields not covered by
// tags are left untouched.
func (t Tags) Write(filePath string) error {
	if !nativeAvailable {
		return ErrNotSupported
	}

	fields := t.tagMap()
	if len(fields) == 0 {
		return fmt.Errorf("no writable metadata for %s", filePath)
	}

	log.Printf("[DEBUG] writing %d tag fields to %s", len(fields), filePath)
	return writeNative(filePath, fields)
}

// tagMap converts Tags to the key/values the native writer expects.
// TagLib accepts arbitrary keys and maps the common ones per format.
func (t Tags) tagMap() map[string][]string {
	fields := make(map[string][]string)
	put := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			fields[key] = []string{v}
		}
	}

	put("TITLE", t.Title)
	put("ALBUM", t.Album)
	put("ARTIST", t.Author)
	put("ALBUMARTIST", t.Author)
	put("COMPOSER", t.Narrator)
	put("NARRATOR", t.Narrator)
	put("GENRE", t.Genre)
	put("DATE", t.Year)
	put("ASIN", t.ASIN)

	if t.Series != "" {
		group := t.Series
		if t.Position != "" {
			group = fmt.Sprintf("%s, Book %s", t.Series, t.Position)
		}
		// Content group is what audiobook players read series from.
		put("CONTENTGROUP", group)
		put("SERIES", t.Series)
		put("SERIES-PART", t.Position)
	}

	return fields
}
