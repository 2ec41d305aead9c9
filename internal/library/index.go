// file: internal/library/index.go
// version: 1.1.0
// guid: c9f2e6b8-1a4d-47c3-95e8-7b0d3f6a2c94

package library

import (
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	reRoleParen = regexp.MustCompile(`(?i)\s*\((?:author|editor|narrator|translator|writer|adapter|contributor)\)`)
	reRoleDash  = regexp.MustCompile(`(?i)\s+-\s+(?:author|editor|narrator|translator|writer)\s*$`)
	reWithCo    = regexp.MustCompile(`(?i)\s+with\s+.+$`)
)

type fileKey struct {
	dir  string
	name string
}

// Index is an in-memory snapshot of the library tree, built once per batch
// by a single walk. It replaces per-call directory scans with map lookups.
//
// The index reflects the filesystem as of construction plus explicit
// Register* calls; it is never re-scanned mid-batch. It has no internal
// locking: concurrent mutators must be serialized by the caller.
type Index struct {
	root      string
	folders   map[string]map[string]string // parent dir -> normalized name -> actual name
	files     map[fileKey]struct{}
	processed map[string]struct{}
	bySurname map[string][]string // surname -> top-level author folders
	aliases   *AliasStore
}

// Build walks libraryRoot and constructs the index. A missing root yields
// an empty, usable index.
func Build(libraryRoot string) *Index {
	ix := &Index{
		root:      filepath.Clean(libraryRoot),
		folders:   make(map[string]map[string]string),
		files:     make(map[fileKey]struct{}),
		processed: make(map[string]struct{}),
		bySurname: make(map[string][]string),
		aliases:   LoadAliases(libraryRoot),
	}

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == ix.root {
			return nil
		}
		parent := filepath.Dir(path)
		if d.IsDir() {
			ix.addFolder(parent, d.Name())
		} else {
			ix.files[fileKey{dir: parent, name: d.Name()}] = struct{}{}
		}
		return nil
	})
	if err != nil {
		log.Printf("[DEBUG] index: library root not walkable yet: %v", err)
	}

	for _, author := range ix.folders[ix.root] {
		if s := Surname(author); s != "" {
			ix.bySurname[s] = append(ix.bySurname[s], author)
		}
	}
	for s := range ix.bySurname {
		sort.Strings(ix.bySurname[s])
	}

	log.Printf("[INFO] index: built with %d folders, %d files under %s",
		ix.FolderCount(), ix.FileCount(), ix.root)
	return ix
}

func (ix *Index) addFolder(parent, name string) {
	m := ix.folders[parent]
	if m == nil {
		m = make(map[string]string)
		ix.folders[parent] = m
	}
	m[NormalizeForCompare(name)] = name
}

// Root returns the indexed library root.
func (ix *Index) Root() string { return ix.root }

// Aliases exposes the author alias store for end-of-batch persistence.
func (ix *Index) Aliases() *AliasStore { return ix.aliases }

// ReuseExisting returns the name of an existing sibling folder under
// parent that is a near-match for desired, or desired unchanged. Keeps
// "Food- A Love Story" and "Food A Love Story (2014)" from coexisting.
func (ix *Index) ReuseExisting(parent, desired string) string {
	m := ix.folders[filepath.Clean(parent)]
	if len(m) == 0 {
		return desired
	}

	desiredNorm := NormalizeForCompare(desired)
	if actual, ok := m[desiredNorm]; ok {
		return actual
	}

	// Deterministic sibling order for the fuzzy pass.
	norms := make([]string, 0, len(m))
	for norm := range m {
		norms = append(norms, norm)
	}
	sort.Strings(norms)
	for _, norm := range norms {
		if IsNearMatch(desiredNorm, norm) {
			log.Printf("[DEBUG] index: reusing folder %q for %q", m[norm], desired)
			return m[norm]
		}
	}
	return desired
}

// FileExists checks for dir/filename in O(1).
func (ix *Index) FileExists(dir, filename string) bool {
	_, ok := ix.files[fileKey{dir: filepath.Clean(dir), name: filename}]
	return ok
}

// MarkProcessed records a dedup key for this batch. Returns true when the
// key was already marked, meaning the same logical book was discovered
// under another source root earlier in the run.
func (ix *Index) MarkProcessed(key string) bool {
	if _, seen := ix.processed[key]; seen {
		return true
	}
	ix.processed[key] = struct{}{}
	return false
}

// RegisterNewFolder records a folder the caller just created so later
// books in the batch see it without a re-scan.
func (ix *Index) RegisterNewFolder(parent, folderName string) {
	ix.addFolder(filepath.Clean(parent), folderName)
}

// RegisterNewFile records a file the caller just placed.
func (ix *Index) RegisterNewFile(dir, filename string) {
	ix.files[fileKey{dir: filepath.Clean(dir), name: filename}] = struct{}{}
}

// RegisterAuthor records a new top-level author folder.
func (ix *Index) RegisterAuthor(name string) {
	ix.RegisterNewFolder(ix.root, name)
	s := Surname(name)
	if s == "" {
		return
	}
	for _, existing := range ix.bySurname[s] {
		if existing == name {
			return
		}
	}
	ix.bySurname[s] = append(ix.bySurname[s], name)
	sort.Strings(ix.bySurname[s])
}

// IsCorrectlyPlaced reports whether source already resolves to dest,
// following symlinks. Used by reorganize mode to skip no-op moves.
func (ix *Index) IsCorrectlyPlaced(sourcePath, destPath string) bool {
	src, err := resolvePath(sourcePath)
	if err != nil {
		return false
	}
	dst, err := resolvePath(destPath)
	if err != nil {
		return false
	}
	return src == dst
}

func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// MatchAuthor canonicalizes an author name against the library's existing
// top-level folders and the alias table. The chain never guesses between
// two different real people: ambiguity returns the input unchanged.
func (ix *Index) MatchAuthor(desired string) string {
	if desired == "" {
		return desired
	}

	if canonical, ok := ix.aliases.Canonical(desired); ok {
		return canonical
	}

	cleaned := StripRoleCredits(desired)
	if cleaned != desired {
		if canonical, ok := ix.aliases.Canonical(cleaned); ok {
			return ix.adopt(desired, canonical)
		}
	}

	candidates := ix.bySurname[Surname(cleaned)]
	if len(candidates) == 0 {
		return desired
	}

	// Exact folder already exists: nothing to record.
	for _, cand := range candidates {
		if cand == desired {
			return desired
		}
	}
	for _, cand := range candidates {
		if cand == cleaned {
			return ix.adopt(desired, cand)
		}
	}

	authorNorm := NormalizeAuthor(cleaned)
	for _, cand := range candidates {
		if NormalizeAuthor(cand) == authorNorm {
			return ix.adopt(desired, cand)
		}
	}

	compareNorm := NormalizeForCompare(cleaned)
	for _, cand := range candidates {
		if NormalizeForCompare(cand) == compareNorm {
			return ix.adopt(desired, cand)
		}
	}

	// A lone same-surname folder is almost certainly the same person with
	// different initial spacing.
	if len(candidates) == 1 {
		return ix.adopt(desired, candidates[0])
	}

	return desired
}

// adopt records the variant and rewrites the sidecar at once, so a crash
// mid-batch loses at most the alias being written.
func (ix *Index) adopt(variant, canonical string) string {
	log.Printf("[DEBUG] index: author %q matched existing %q", variant, canonical)
	ix.aliases.Add(variant, canonical)
	if err := ix.aliases.Save(); err != nil {
		log.Printf("[WARN] index: failed to persist alias %q: %v", variant, err)
	}
	return canonical
}

// StripRoleCredits removes role annotations from an author string:
// "(Author)" and "(Editor)" suffixes, " - editor" endings, and trailing
// "with Co-Writer" credits.
func StripRoleCredits(name string) string {
	s := reRoleParen.ReplaceAllString(name, "")
	s = reRoleDash.ReplaceAllString(s, "")
	s = reWithCo.ReplaceAllString(s, "")
	if idx := strings.Index(s, "; "); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// FolderCount returns the number of indexed folders.
func (ix *Index) FolderCount() int {
	n := 0
	for _, m := range ix.folders {
		n += len(m)
	}
	return n
}

// FileCount returns the number of indexed files.
func (ix *Index) FileCount() int {
	return len(ix.files)
}
