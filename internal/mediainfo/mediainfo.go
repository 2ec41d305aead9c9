// file: internal/mediainfo/mediainfo.go
// version: 2.0.0
// guid: f1e2d3c4-b5a6-7c8d-9e0f-1a2b3c4d5e6f

package mediainfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// TagInfo holds the embedded metadata tags read from an audio file.
// Narrator comes from the composer frame, the common audiobook convention.
type TagInfo struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
	Narrator    string
	Genre       string
	Year        int
	Track       int
	Disc        int
}

// TechInfo holds technical stream information for quality reporting.
type TechInfo struct {
	Codec      string
	Format     string
	Bitrate    int
	SampleRate int
	Channels   int
	BitDepth   int
	Quality    string
}

// Probe reads embedded tags from an audio file.
func Probe(filePath string) (*TagInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	info := &TagInfo{
		Title:       strings.TrimSpace(m.Title()),
		Album:       strings.TrimSpace(m.Album()),
		Artist:      strings.TrimSpace(m.Artist()),
		AlbumArtist: strings.TrimSpace(m.AlbumArtist()),
		Narrator:    strings.TrimSpace(m.Composer()),
		Genre:       strings.TrimSpace(m.Genre()),
		Year:        m.Year(),
	}
	info.Track, _ = m.Track()
	info.Disc, _ = m.Disc()
	return info, nil
}

// BookTitle returns the best title guess from the tags: the album frame
// (whole-book title) when present, otherwise the title frame.
func (t *TagInfo) BookTitle() string {
	if t.Album != "" {
		return t.Album
	}
	return t.Title
}

// codecDefaults are assumed stream parameters per container when the tag
// reader cannot report them.
var codecDefaults = map[string]TechInfo{
	".mp3":  {Codec: "MP3", Bitrate: 192, SampleRate: 44100, Channels: 2},
	".m4a":  {Codec: "AAC", Bitrate: 128, SampleRate: 44100, Channels: 2},
	".m4b":  {Codec: "AAC", Bitrate: 128, SampleRate: 44100, Channels: 2},
	".flac": {Codec: "FLAC", SampleRate: 44100, Channels: 2, BitDepth: 16},
	".ogg":  {Codec: "Vorbis", Bitrate: 160, SampleRate: 44100, Channels: 2},
	".oga":  {Codec: "Vorbis", Bitrate: 160, SampleRate: 44100, Channels: 2},
	".wma":  {Codec: "WMA", Bitrate: 128, SampleRate: 44100, Channels: 2},
}

// ProbeTech reads technical stream information, falling back to
// per-container defaults when frames are missing.
func ProbeTech(filePath string) (*TechInfo, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	defaults, ok := codecDefaults[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}

	info := defaults
	info.Format = strings.TrimPrefix(ext, ".")

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if m, err := tag.ReadFrom(f); err == nil {
		raw := m.Raw()
		if br, ok := raw["bitrate"].(int); ok && br > 0 {
			info.Bitrate = br / 1000
		}
		if sr, ok := raw["sample_rate"].(int); ok && sr > 0 {
			info.SampleRate = sr
		}
		if bd, ok := raw["bits_per_sample"].(int); ok && bd > 0 {
			info.BitDepth = bd
		}
	}

	if info.Codec == "FLAC" {
		info.Bitrate = (info.SampleRate * info.BitDepth * info.Channels) / 1000
	}
	info.Quality = qualityString(&info)
	return &info, nil
}

func qualityString(info *TechInfo) string {
	if info.Codec == "FLAC" {
		return fmt.Sprintf("FLAC Lossless (%d-bit/%.1fkHz)", info.BitDepth, float64(info.SampleRate)/1000.0)
	}
	return fmt.Sprintf("%dkbps %s", info.Bitrate, info.Codec)
}

// QualityTier returns a numeric tier for comparing encodes of the same book.
func QualityTier(info *TechInfo) int {
	if info.Codec == "FLAC" {
		if info.BitDepth >= 24 {
			return 100
		}
		return 90
	}

	switch {
	case info.Bitrate >= 320:
		return 80
	case info.Bitrate >= 256:
		return 70
	case info.Bitrate >= 192:
		return 60
	case info.Bitrate >= 128:
		return 50
	default:
		return 30
	}
}
