// file: internal/mediainfo/rawtags.go
// version: 1.0.0
// guid: 5c8d1f36-2a94-4e7b-8b05-d3f62a91c480

package mediainfo

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// Frame IDs per container for tags the typed accessors do not cover.
// MP4 atoms first, then ID3v2.4/2.3, then Vorbis comment names.
var rawFrameKeys = map[string][]string{
	"sort_album":  {"soal", "TSOA", "ALBUMSORT"},
	"media_type":  {"stik", "TMED", "MEDIA"},
	"date":        {"\xa9day", "TDRC", "TYER", "DATE"},
	"comment":     {"\xa9cmt", "COMM", "COMMENT"},
	"description": {"desc", "ldes", "TIT3", "DESCRIPTION"},
	"copyright":   {"cprt", "TCOP", "COPYRIGHT"},
}

// TagMap reads an audio file and returns its tags as a flat lowercase
// map keyed by canonical names (artist, album_artist, album, title,
// genre, composer, sort_album, media_type, date, comment, description).
// Absent tags are absent keys.
func TagMap(filePath string) (map[string]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	tags := map[string]string{}
	put := func(key, val string) {
		if v := strings.TrimSpace(val); v != "" {
			tags[key] = v
		}
	}
	put("title", m.Title())
	put("album", m.Album())
	put("artist", m.Artist())
	put("album_artist", m.AlbumArtist())
	put("genre", m.Genre())
	put("composer", m.Composer())
	if y := m.Year(); y > 0 {
		put("date", fmt.Sprintf("%d", y))
	}

	raw := m.Raw()
	for key, frames := range rawFrameKeys {
		if _, done := tags[key]; done {
			continue
		}
		for _, frame := range frames {
			if v, ok := raw[frame]; ok {
				put(key, rawValueString(v))
				break
			}
		}
	}
	return tags, nil
}

func rawValueString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case *tag.Comm:
		return val.Text
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}
