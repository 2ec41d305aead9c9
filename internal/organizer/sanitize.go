// file: internal/organizer/sanitize.go
// version: 1.0.0
// guid: 2e7b4d9a-6f1c-483e-b5a0-9d3f7c2e8b41

package organizer

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	reUnsafeChars   = regexp.MustCompile(`[/\\:"*?<>|;]+`)
	reLeadingJunk   = regexp.MustCompile(`^[._]+`)
	reTrailingJunk  = regexp.MustCompile(`[._]+$`)
	reUnderscoreRun = regexp.MustCompile(`__+`)
)

// SanitizeFilename makes a single path component filesystem-safe: unsafe
// characters become underscores, leading/trailing dots and underscores are
// dropped, and the result is truncated to 255 bytes preserving any
// extension.
func SanitizeFilename(name string) string {
	s := reUnsafeChars.ReplaceAllString(name, "_")
	s = reLeadingJunk.ReplaceAllString(s, "")
	s = reTrailingJunk.ReplaceAllString(s, "")
	s = reUnderscoreRun.ReplaceAllString(s, "_")

	if len(s) > 255 {
		ext := filepath.Ext(s)
		if len(ext) > 0 && len(ext) < 255 {
			stem := strings.TrimSuffix(s, ext)
			s = stem[:255-len(ext)] + ext
		} else {
			s = s[:255]
		}
	}
	return s
}
