// file: internal/diff/diff.go
// version: 1.0.0
// guid: 6b2d8f40-1e5a-47c9-b380-f9a64c27d815

// Package diff compares two audiobook libraries to find books that are
// truly missing from the target. It collapses multi-part M4B fragments
// and chapter-per-file books into single entries, deduplicates the
// source, and matches titles through an exact-then-fuzzy chain that
// tolerates author-name variations and franchise folder consolidation.
package diff

import (
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rodaddy/audiobook-pipeline/internal/audit"
	"github.com/rodaddy/audiobook-pipeline/internal/matcher"
)

// FuzzyThreshold is the minimum token-set ratio to consider two titles
// equivalent.
const FuzzyThreshold = 85.0

// NonAuthorFolders are top-level containers, not author names.
var NonAuthorFolders = map[string]bool{
	"newbooks":          true,
	"original":          true,
	"incoming":          true,
	"unsorted":          true,
	"_unsorted":         true,
	"to_fix":            true,
	"audiobooks_to_fix": true,
	"downloads":         true,
	"new":               true,
}

var (
	// chapter-per-file naming: "01- Title", "Ch01 - Title"
	reChapterFile = regexp.MustCompile(`(?i)^(?:ch)?\d{1,3}[a-d]?\s*[-.]\s*`)
	// "Part N" suffix
	rePartSuffix = regexp.MustCompile(`(?i)[,\s]+part\s+\d+\s*$`)
	// disc-track prefix "1-01 Title" or series shorthand "HP. 3 -"
	reNumberedPrefix = regexp.MustCompile(`(?i)^(?:\d+-\d+\s+|HP[.\s]*\d+\s*[-.]\s*)`)
	// "Book N - " prefix on series folders
	reBookDirPrefix = regexp.MustCompile(`(?i)^book\s+[\d.]+\s*-?\s*`)
)

// BookEntry is a single book (or collapsed multi-part group) in a
// library.
type BookEntry struct {
	Author     string `json:"author"`
	NormAuthor string `json:"norm_author"`
	Title      string `json:"title"`
	NormTitle  string `json:"norm_title"`
	Path       string `json:"path"`
	Multipart  bool   `json:"multipart,omitempty"`
	partGroup  string
}

// Result is the outcome of comparing two libraries.
type Result struct {
	Missing     []BookEntry `json:"missing"`
	Matched     []BookEntry `json:"matched"`
	SourceCount int         `json:"source_count"`
	TargetCount int         `json:"target_count"`
}

// Compare scans the source library (books to check) against the target
// library (ground truth) and reports which source books are missing.
func Compare(source, target string) *Result {
	log.Printf("[INFO] diff: scanning target library %s", target)
	targetEntries := collapseMultipart(extractBooks(target))
	log.Printf("[INFO] diff: target has %d books", len(targetEntries))

	log.Printf("[INFO] diff: scanning source library %s", source)
	sourceEntries := collapseMultipart(extractBooks(source))
	preDedup := len(sourceEntries)
	sourceEntries = deduplicateSource(sourceEntries)
	log.Printf("[INFO] diff: source has %d unique books (%d before dedup)",
		len(sourceEntries), preDedup)

	index := map[string]map[string]bool{}
	allTitles := map[string]bool{}
	for _, e := range targetEntries {
		if index[e.NormAuthor] == nil {
			index[e.NormAuthor] = map[string]bool{}
		}
		index[e.NormAuthor][e.NormTitle] = true
		allTitles[e.NormTitle] = true
	}

	result := &Result{
		SourceCount: len(sourceEntries),
		TargetCount: len(targetEntries),
	}
	for _, book := range sourceEntries {
		if findMatch(book, index, allTitles) {
			result.Matched = append(result.Matched, book)
		} else {
			result.Missing = append(result.Missing, book)
			log.Printf("[DEBUG] diff: no match for %s/%s (norm %q / %q)",
				book.Author, book.Title, book.NormAuthor, book.NormTitle)
		}
	}

	log.Printf("[INFO] diff: %d matched, %d missing", len(result.Matched), len(result.Missing))
	return result
}

// guessAuthor returns the first path component that looks like an
// author name, skipping container folders.
func guessAuthor(rel string) string {
	parts := strings.Split(rel, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		lower := strings.ToLower(part)
		if NonAuthorFolders[lower] {
			continue
		}
		if strings.Contains(lower, "audiobook") {
			continue
		}
		return part
	}
	if len(parts) > 1 {
		return parts[0]
	}
	return ""
}

// bookTitleFromDir strips "Book N - " prefixes from a directory name.
func bookTitleFromDir(dirName string) string {
	return strings.TrimSpace(reBookDirPrefix.ReplaceAllString(dirName, ""))
}

// extractBooks scans a library for M4B files, one BookEntry each.
// Handles organized (Author/Book/file.m4b) and messy source layouts.
func extractBooks(root string) []BookEntry {
	var entries []BookEntry

	var files []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".m4b") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if !strings.Contains(rel, string(filepath.Separator)) {
			continue
		}

		author := guessAuthor(rel)
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		isPart := rePartSuffix.MatchString(stem)
		isChapter := reChapterFile.MatchString(stem)
		isNumbered := reNumberedPrefix.MatchString(stem)

		partGroup := ""
		if isPart {
			base := strings.TrimSpace(rePartSuffix.ReplaceAllString(stem, ""))
			partGroup = filepath.Dir(rel) + "|" + strings.ToLower(base)
		} else if isChapter || isNumbered {
			partGroup = filepath.Dir(rel)
		}

		entries = append(entries, BookEntry{
			Author:     author,
			NormAuthor: audit.NormalizeAuthor(author),
			Title:      stem,
			NormTitle:  audit.NormalizeForDedup(stem, author),
			Path:       rel,
			Multipart:  isPart || isChapter || isNumbered,
			partGroup:  partGroup,
		})
	}

	return entries
}

// collapseMultipart merges part/chapter entries into one entry per
// group. Chapter groups take their title from the parent directory,
// since individual chapter names are useless for matching.
func collapseMultipart(entries []BookEntry) []BookEntry {
	var result []BookEntry
	groups := map[string][]BookEntry{}
	var order []string

	for _, e := range entries {
		if e.Multipart && e.partGroup != "" {
			if _, seen := groups[e.partGroup]; !seen {
				order = append(order, e.partGroup)
			}
			groups[e.partGroup] = append(groups[e.partGroup], e)
		} else {
			result = append(result, e)
		}
	}

	for _, key := range order {
		rep := groups[key][0]
		title, normTitle := rep.Title, rep.NormTitle
		if reChapterFile.MatchString(rep.Title) || reNumberedPrefix.MatchString(rep.Title) {
			title = bookTitleFromDir(filepath.Base(filepath.Dir(rep.Path)))
			normTitle = audit.NormalizeForDedup(title, rep.Author)
		}
		result = append(result, BookEntry{
			Author:     rep.Author,
			NormAuthor: rep.NormAuthor,
			Title:      title,
			NormTitle:  normTitle,
			Path:       rep.Path,
			Multipart:  true,
			partGroup:  key,
		})
	}

	return result
}

// deduplicateSource drops entries whose normalized title was already
// seen (the same book staged in two source folders).
func deduplicateSource(entries []BookEntry) []BookEntry {
	seen := map[string]bool{}
	var result []BookEntry
	for _, e := range entries {
		if e.NormTitle != "" && seen[e.NormTitle] {
			continue
		}
		if e.NormTitle != "" {
			seen[e.NormTitle] = true
		}
		result = append(result, e)
	}
	return result
}

// findMatch checks the target for a source book, in order: exact title
// under the same author, exact title under any author (franchise
// reorganization), fuzzy title under the same author, fuzzy under any.
func findMatch(book BookEntry, index map[string]map[string]bool, allTitles map[string]bool) bool {
	if book.NormTitle == "" {
		return false
	}

	if index[book.NormAuthor][book.NormTitle] {
		return true
	}
	if allTitles[book.NormTitle] {
		return true
	}
	for title := range index[book.NormAuthor] {
		if matcher.TokenSetRatio(book.NormTitle, title) >= FuzzyThreshold {
			return true
		}
	}
	for title := range allTitles {
		if matcher.TokenSetRatio(book.NormTitle, title) >= FuzzyThreshold {
			return true
		}
	}
	return false
}
