// file: internal/audit/verify.go
// version: 1.0.0
// guid: e1a93c57-4b2d-40f8-86e9-0d7c5b38a214

package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// AuthorVariation groups author folders that share one surname.
type AuthorVariation struct {
	Surname  string   `json:"surname"`
	Variants []string `json:"variants"`
	Count    int      `json:"count"`
}

// DuplicateTitle is the same book appearing twice under one author.
type DuplicateTitle struct {
	Author string   `json:"author"`
	Title  string   `json:"title"`
	Paths  []string `json:"paths,omitempty"`
	Count  int      `json:"count,omitempty"`
}

// VerifyReport is the post-run data quality report: issues that pass
// functional checks but produce a messy library.
type VerifyReport struct {
	AuthorVariations []AuthorVariation `json:"author_variations"`
	Unsorted         []string          `json:"unsorted"`
	DuplicateTitles  []DuplicateTitle  `json:"duplicate_titles"`
	TotalAuthors     int               `json:"total_authors"`
	TotalBooks       int               `json:"total_books"`
}

// Issues returns the total issue count across all categories.
func (r *VerifyReport) Issues() int {
	return len(r.AuthorVariations) + len(r.Unsorted) + len(r.DuplicateTitles)
}

// Verify scans a library for author-name variations, books stranded in
// _unsorted, and duplicate titles under one author.
func Verify(libraryRoot string) (*VerifyReport, error) {
	report := &VerifyReport{}

	entries, err := os.ReadDir(libraryRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("failed to read library root: %w", err)
	}

	var authors []string
	authorTitles := map[string][]string{}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(libraryRoot, e.Name())
		if e.Name() == "_unsorted" {
			for _, book := range walkBookDirs(dir) {
				if rel, err := filepath.Rel(libraryRoot, book); err == nil {
					report.Unsorted = append(report.Unsorted, rel)
				}
			}
			continue
		}
		authors = append(authors, e.Name())
		authorTitles[e.Name()] = walkBookDirs(dir)
	}

	report.TotalAuthors = len(authors)
	report.AuthorVariations = surnameVariations(authors)

	for _, author := range authors {
		report.TotalBooks += len(authorTitles[author])
		groups := map[string][]string{}
		for _, bookDir := range authorTitles[author] {
			norm := normalizeTitleKey(filepath.Base(bookDir))
			groups[norm] = append(groups[norm], bookDir)
		}
		var keys []string
		for norm, paths := range groups {
			if len(paths) > 1 {
				keys = append(keys, norm)
			}
		}
		sort.Strings(keys)
		for _, norm := range keys {
			var rels []string
			for _, p := range groups[norm] {
				if rel, err := filepath.Rel(libraryRoot, p); err == nil {
					rels = append(rels, rel)
				}
			}
			report.DuplicateTitles = append(report.DuplicateTitles, DuplicateTitle{
				Author: author,
				Title:  norm,
				Paths:  rels,
			})
		}
	}

	return report, nil
}

var reDryRunDest = regexp.MustCompile(`(?m)^\s+->\s+(.+)$`)

// VerifyDryRunLog extracts destination paths from a dry-run log
// ("  -> /library/Author/Book" lines) and runs the same quality checks
// on the paths the run would have produced.
func VerifyDryRunLog(logPath string) (*VerifyReport, error) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	var dests []string
	for _, m := range reDryRunDest.FindAllStringSubmatch(string(data), -1) {
		dests = append(dests, strings.TrimSpace(m[1]))
	}
	if len(dests) == 0 {
		return nil, fmt.Errorf("no destination paths found in %s", logPath)
	}

	root := commonRoot(dests)
	if root == "" {
		return nil, fmt.Errorf("could not determine library root from paths")
	}

	report := &VerifyReport{}
	authorSet := map[string]bool{}
	authorTitles := map[string][]string{}

	for _, dest := range dests {
		rel, err := filepath.Rel(root, dest)
		if err != nil || strings.HasPrefix(rel, "..") || rel == "." {
			continue
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if parts[0] == "_unsorted" {
			report.Unsorted = append(report.Unsorted, rel)
			continue
		}
		authorSet[parts[0]] = true
		title := parts[len(parts)-1]
		authorTitles[parts[0]] = append(authorTitles[parts[0]], title)
	}

	var authors []string
	for a := range authorSet {
		authors = append(authors, a)
	}
	sort.Strings(authors)
	report.TotalAuthors = len(authors)
	report.TotalBooks = len(dests)
	report.AuthorVariations = surnameVariations(authors)

	for _, author := range authors {
		counts := map[string]int{}
		for _, t := range authorTitles[author] {
			counts[normalizeTitleKey(t)]++
		}
		var keys []string
		for norm, n := range counts {
			if n > 1 {
				keys = append(keys, norm)
			}
		}
		sort.Strings(keys)
		for _, norm := range keys {
			report.DuplicateTitles = append(report.DuplicateTitles, DuplicateTitle{
				Author: author,
				Title:  norm,
				Count:  counts[norm],
			})
		}
	}

	return report, nil
}

// WriteReport prints a human-readable quality report.
func (r *VerifyReport) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "\nData Quality Report\n")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Authors: %d\n", r.TotalAuthors)
	fmt.Fprintf(w, "Books: %d\n", r.TotalBooks)
	fmt.Fprintf(w, "Issues: %d\n", r.Issues())

	if len(r.AuthorVariations) > 0 {
		fmt.Fprintf(w, "\nAuthor Name Variations (%d groups)\n", len(r.AuthorVariations))
		fmt.Fprintln(w, strings.Repeat("-", 50))
		for _, v := range r.AuthorVariations {
			fmt.Fprintf(w, "  Surname %q has %d spellings:\n", v.Surname, v.Count)
			for _, name := range v.Variants {
				fmt.Fprintf(w, "    - %s\n", name)
			}
		}
	}

	if len(r.Unsorted) > 0 {
		fmt.Fprintf(w, "\nBooks in _unsorted (%d)\n", len(r.Unsorted))
		fmt.Fprintln(w, strings.Repeat("-", 50))
		for _, p := range r.Unsorted {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if len(r.DuplicateTitles) > 0 {
		fmt.Fprintf(w, "\nDuplicate Titles (%d)\n", len(r.DuplicateTitles))
		fmt.Fprintln(w, strings.Repeat("-", 50))
		for _, d := range r.DuplicateTitles {
			fmt.Fprintf(w, "  %s: %s\n", d.Author, d.Title)
			for _, p := range d.Paths {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
	}

	if r.Issues() == 0 {
		fmt.Fprintln(w, "\nNo data quality issues found.")
	}
}

// walkBookDirs finds leaf book directories (dirs containing files)
// under an author dir, sorted.
func walkBookDirs(authorDir string) []string {
	var books []string
	filepath.WalkDir(authorDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == authorDir {
			return nil
		}
		entries, readErr := os.ReadDir(path)
		if readErr != nil {
			return nil
		}
		for _, e := range entries {
			if !e.IsDir() {
				books = append(books, path)
				break
			}
		}
		return nil
	})
	sort.Strings(books)
	return books
}

var (
	reSurnameSplit = regexp.MustCompile(`,\s*|\s+and\s+`)
	reTitleKeyJunk = regexp.MustCompile(`[^\w\s]`)
	reTitleKeyWS   = regexp.MustCompile(`\s+`)
)

// ExtractSurname returns the grouping surname for an author name: the
// last word of the last comma- or and-separated author.
func ExtractSurname(name string) string {
	if name == "" {
		return ""
	}
	parts := reSurnameSplit.Split(name, -1)
	words := strings.Fields(strings.TrimSpace(parts[len(parts)-1]))
	if len(words) == 0 {
		return ""
	}
	return strings.TrimRight(strings.ToLower(words[len(words)-1]), ".,;:")
}

func surnameVariations(authors []string) []AuthorVariation {
	bySurname := map[string][]string{}
	for _, author := range authors {
		if surname := ExtractSurname(author); surname != "" {
			bySurname[surname] = append(bySurname[surname], author)
		}
	}

	var surnames []string
	for s, variants := range bySurname {
		if len(variants) > 1 {
			surnames = append(surnames, s)
		}
	}
	sort.Strings(surnames)

	var variations []AuthorVariation
	for _, s := range surnames {
		variants := bySurname[s]
		sort.Strings(variants)
		variations = append(variations, AuthorVariation{
			Surname:  s,
			Variants: variants,
			Count:    len(variants),
		})
	}
	return variations
}

func normalizeTitleKey(title string) string {
	s := strings.ToLower(title)
	s = reTitleKeyJunk.ReplaceAllString(s, "")
	s = reTitleKeyWS.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// commonRoot returns the longest common leading directory of paths.
func commonRoot(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := strings.Split(filepath.Clean(paths[0]), string(filepath.Separator))
	for _, p := range paths[1:] {
		parts := strings.Split(filepath.Clean(p), string(filepath.Separator))
		i := 0
		for i < len(common) && i < len(parts) && common[i] == parts[i] {
			i++
		}
		common = common[:i]
	}
	if len(common) == 0 {
		return ""
	}
	return strings.Join(common, string(filepath.Separator))
}
