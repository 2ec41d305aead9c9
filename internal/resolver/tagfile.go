// file: internal/resolver/tagfile.go
// version: 1.0.0
// guid: 7b1e5a90-3c2d-4f68-9d47-e85a0b6c31f2

package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var audioExtensions = map[string]bool{
	".m4b":  true,
	".m4a":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
	".wma":  true,
}

// IsAudioFile reports whether path has a recognized audiobook extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FindTagFile picks the file whose embedded tags best represent a book
// directory: the largest .m4b when one exists (the merged audiobook),
// otherwise the lexically first audio file. Returns "" when the
// directory holds no audio.
func FindTagFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var audio []string
	bestM4B := ""
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		audio = append(audio, full)
		if strings.EqualFold(filepath.Ext(e.Name()), ".m4b") {
			if info, err := e.Info(); err == nil && info.Size() > bestSize {
				bestSize = info.Size()
				bestM4B = full
			}
		}
	}

	if bestM4B != "" {
		return bestM4B
	}
	if len(audio) == 0 {
		return ""
	}
	sort.Strings(audio)
	return audio[0]
}
