// file: internal/organizer/path.go
// version: 1.0.0
// guid: 8f3a6c1d-4b7e-49d2-a0c5-e2b9f6d38a17

package organizer

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rodaddy/audiobook-pipeline/internal/library"
	"github.com/rodaddy/audiobook-pipeline/internal/metadata"
)

// UnsortedFolder collects books that resolved without an author.
const UnsortedFolder = "_unsorted"

var reFourDigitYear = regexp.MustCompile(`^\d{4}$`)

// BuildPath maps resolved metadata to the destination directory:
//
//	Author/[Series/]["Book N - "]Title[/Year]
//
// No author files under _unsorted. A series equal to the title is dropped
// to avoid Author/Title/Title. A bare 4-digit position with no series is
// an edition year and becomes a trailing subfolder.
//
// With an index, every directory level goes through near-match reuse and
// new segments are registered back; without one, reuse falls back to a
// direct filesystem scan per level.
func BuildPath(libraryRoot string, meta metadata.ParsedMetadata, ix *library.Index) string {
	author := ""
	if meta.Author != "" {
		author = SanitizeFilename(meta.Author)
	}
	title := "Unknown"
	if meta.Title != "" {
		title = SanitizeFilename(meta.Title)
	}
	series := ""
	if meta.Series != "" {
		series = SanitizeFilename(meta.Series)
	}
	position := meta.Position

	if author != "" && ix != nil {
		author = ix.MatchAuthor(author)
	}

	if series != "" && strings.EqualFold(series, title) {
		series = ""
	}

	isYearEdition := position != "" && reFourDigitYear.MatchString(position) && series == ""

	hasBookPrefix := series != "" && position != "" && !reFourDigitYear.MatchString(position)
	titleFolder := title
	if hasBookPrefix {
		titleFolder = "Book " + position + " - " + title
	}

	reuse := func(parent, desired string) string {
		if ix != nil {
			return ix.ReuseExisting(parent, desired)
		}
		return reuseExistingFS(parent, desired)
	}

	top := author
	if top == "" {
		top = UnsortedFolder
	}
	base := filepath.Join(libraryRoot, top)

	var result string
	if series != "" {
		series = reuse(base, series)
		titleDir := filepath.Join(base, series)
		// "Book N - " renames are intentional; matching an old un-numbered
		// folder here would undo them.
		if !hasBookPrefix {
			titleFolder = reuse(titleDir, titleFolder)
		}
		result = filepath.Join(titleDir, titleFolder)
	} else {
		titleFolder = reuse(base, titleFolder)
		result = filepath.Join(base, titleFolder)
	}

	if isYearEdition {
		result = filepath.Join(result, position)
	}

	if ix != nil {
		if author != "" {
			ix.RegisterAuthor(author)
		}
		for _, pair := range pathComponents(libraryRoot, result) {
			ix.RegisterNewFolder(pair[0], pair[1])
		}
	}

	log.Printf("[DEBUG] organizer: dest path %s", result)
	return result
}

// pathComponents returns (parent, child) pairs between root and dest for
// index registration.
func pathComponents(root, dest string) [][2]string {
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	var pairs [][2]string
	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		pairs = append(pairs, [2]string{current, part})
		current = filepath.Join(current, part)
	}
	return pairs
}

// reuseExistingFS is the index-less fallback: scan parent's entries and
// return a near-match sibling, or desired unchanged. O(n) per call.
func reuseExistingFS(parent, desired string) string {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return desired
	}
	desiredNorm := library.NormalizeForCompare(desired)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == desired {
			return desired
		}
		if library.IsNearMatch(desiredNorm, library.NormalizeForCompare(e.Name())) {
			return e.Name()
		}
	}
	return desired
}
