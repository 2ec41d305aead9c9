// file: internal/audit/audit.go
// version: 1.0.0
// guid: 3a6f9d82-1c4e-47b5-9e20-7d5a8c3f1b64

// Package audit runs deep library health checks: tag completeness,
// duplicate detection, folder structure, leftover source files, and
// stale media-server entries.
package audit

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rodaddy/audiobook-pipeline/internal/matcher"
	"github.com/rodaddy/audiobook-pipeline/internal/mediainfo"
)

// Finding severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Check names accepted by Run.
var AllChecks = []string{"tags", "duplicates", "structure", "sources", "stale"}

// SourceExtensions are audio formats that should not remain in an
// organized library (only merged .m4b files belong there).
var SourceExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".wma":  true,
	".wav":  true,
	".aac":  true,
}

// MandatoryTags must be present on every M4B for media-server
// compatibility.
var MandatoryTags = []string{"artist", "album_artist", "album", "title", "genre", "sort_album"}

// RecommendedTags are useful but not critical.
var RecommendedTags = []string{"composer", "date", "comment", "description"}

// SuspiciousValues indicate broken or placeholder metadata.
var SuspiciousValues = map[string]bool{
	"unknown":         true,
	"unknown artist":  true,
	"various artists": true,
	"untitled":        true,
}

const nearDuplicateThreshold = 85.0

// Finding is a single issue found during a library audit.
type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Fixable  bool   `json:"fixable"`
	// FixAction is what ApplyFixes would do: "delete" or "touch".
	FixAction string `json:"fix_action,omitempty"`
}

// Report aggregates audit results for one library.
type Report struct {
	LibraryRoot string    `json:"library_root"`
	TotalFiles  int       `json:"total_files"`
	Findings    []Finding `json:"findings"`
}

// CountBySeverity returns how many findings carry the given severity.
func (r *Report) CountBySeverity(severity string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// FixableCount returns how many findings ApplyFixes can handle.
func (r *Report) FixableCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Fixable {
			n++
		}
	}
	return n
}

// MarshalJSON emits the report with a computed summary block.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		*alias
		Summary map[string]int `json:"summary"`
	}{
		alias: (*alias)(r),
		Summary: map[string]int{
			"total_issues": len(r.Findings),
			"critical":     r.CountBySeverity(SeverityCritical),
			"warning":      r.CountBySeverity(SeverityWarning),
			"info":         r.CountBySeverity(SeverityInfo),
			"fixable":      r.FixableCount(),
		},
	})
}

// Auditor runs checks against one library root.
type Auditor struct {
	Root string
	// ProbeTags reads the canonical tag map; overridable in tests.
	ProbeTags func(path string) (map[string]string, error)
	// MediaServerURL and MediaServerToken enable the stale-entry check.
	MediaServerURL   string
	MediaServerToken string
	HTTPClient       *http.Client
}

// New creates an auditor for the given library root.
func New(root string) *Auditor {
	return &Auditor{
		Root:       root,
		ProbeTags:  mediainfo.TagMap,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run executes the selected checks (nil means all) and returns the
// aggregated report.
func (a *Auditor) Run(checks []string) *Report {
	if checks == nil {
		checks = AllChecks
	}
	enabled := map[string]bool{}
	for _, c := range checks {
		enabled[c] = true
	}

	report := &Report{LibraryRoot: a.Root}
	report.TotalFiles = len(a.m4bFiles())
	log.Printf("[INFO] audit: scanning %d M4B files in %s", report.TotalFiles, a.Root)

	if enabled["tags"] {
		report.Findings = append(report.Findings, a.CheckMetadataTags()...)
	}
	if enabled["duplicates"] {
		report.Findings = append(report.Findings, a.CheckDuplicates()...)
	}
	if enabled["structure"] {
		report.Findings = append(report.Findings, a.CheckStructure()...)
	}
	if enabled["sources"] {
		report.Findings = append(report.Findings, a.CheckLeftoverSources()...)
	}
	if enabled["stale"] {
		report.Findings = append(report.Findings, a.CheckStaleServerEntries()...)
	}

	log.Printf("[INFO] audit: complete, %d issues (%d critical, %d warning, %d info)",
		len(report.Findings),
		report.CountBySeverity(SeverityCritical),
		report.CountBySeverity(SeverityWarning),
		report.CountBySeverity(SeverityInfo))
	return report
}

// m4bFiles returns all .m4b paths under the root, sorted, as paths
// relative to the root.
func (a *Auditor) m4bFiles() []string {
	var files []string
	filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".m4b") {
			if rel, err := filepath.Rel(a.Root, path); err == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// CheckMetadataTags probes every M4B for missing or suspicious tags.
func (a *Auditor) CheckMetadataTags() []Finding {
	var findings []Finding

	for _, rel := range a.m4bFiles() {
		tags, err := a.ProbeTags(filepath.Join(a.Root, rel))
		if err != nil {
			findings = append(findings, Finding{
				Check:    "tags",
				Severity: SeverityCritical,
				Path:     rel,
				Message:  "tag probe failed, file may be corrupt",
			})
			continue
		}

		for _, name := range MandatoryTags {
			if strings.TrimSpace(tags[name]) == "" {
				findings = append(findings, Finding{
					Check:    "tags",
					Severity: SeverityCritical,
					Path:     rel,
					Message:  fmt.Sprintf("missing mandatory tag: %s", name),
				})
			}
		}

		for _, name := range []string{"artist", "album_artist", "title", "album"} {
			val := strings.ToLower(strings.TrimSpace(tags[name]))
			if _, present := tags[name]; present && SuspiciousValues[val] {
				findings = append(findings, Finding{
					Check:    "tags",
					Severity: SeverityCritical,
					Path:     rel,
					Message:  fmt.Sprintf("suspicious value for %q: %q", name, tags[name]),
				})
			}
		}

		title := strings.ToLower(strings.TrimSpace(tags["title"]))
		albumArtist := strings.ToLower(strings.TrimSpace(tags["album_artist"]))
		if title != "" && title == albumArtist {
			findings = append(findings, Finding{
				Check:    "tags",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  fmt.Sprintf("title matches album_artist (%q), possible tag error", tags["title"]),
			})
		}

		if strings.EqualFold(strings.TrimSpace(tags["genre"]), "audiobook") {
			findings = append(findings, Finding{
				Check:    "tags",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  "genre is the placeholder 'Audiobook' instead of a real genre",
			})
		}

		if n := strings.Count(tags["album_artist"], ","); n > 1 {
			findings = append(findings, Finding{
				Check:    "tags",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  fmt.Sprintf("album_artist has %d names: %q", n+1, tags["album_artist"]),
			})
		}

		if strings.TrimSpace(tags["media_type"]) == "" {
			findings = append(findings, Finding{
				Check:    "tags",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  "missing media_type tag (should be '2' for audiobooks)",
			})
		}

		for _, name := range RecommendedTags {
			if strings.TrimSpace(tags[name]) == "" {
				findings = append(findings, Finding{
					Check:    "tags",
					Severity: SeverityInfo,
					Path:     rel,
					Message:  fmt.Sprintf("missing recommended tag: %s", name),
				})
			}
		}
	}

	return findings
}

var rePartName = regexp.MustCompile(`(?i)[,\s]*part\s+\d+\s*$`)

// CheckDuplicates finds duplicate and near-duplicate books.
func (a *Auditor) CheckDuplicates() []Finding {
	var findings []Finding

	titlePaths := map[string][]string{}
	dirFiles := map[string][]string{}
	normPath := map[string]string{}

	files := a.m4bFiles()
	for _, rel := range files {
		dir := filepath.Dir(rel)
		dirFiles[dir] = append(dirFiles[dir], rel)

		stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		norm := NormalizeForDedup(strings.ToLower(stem), "")
		titlePaths[norm] = append(titlePaths[norm], rel)
		normPath[rel] = norm
	}

	var dupTitles []string
	for norm, paths := range titlePaths {
		if len(paths) > 1 {
			dupTitles = append(dupTitles, norm)
		}
	}
	sort.Strings(dupTitles)
	for _, norm := range dupTitles {
		paths := titlePaths[norm]
		findings = append(findings, Finding{
			Check:    "duplicates",
			Severity: SeverityWarning,
			Path:     paths[0],
			Message: fmt.Sprintf("duplicate title %q in %d locations: %s",
				norm, len(paths), strings.Join(paths, ", ")),
		})
	}

	var multiDirs []string
	for dir, names := range dirFiles {
		if len(names) > 1 {
			multiDirs = append(multiDirs, dir)
		}
	}
	sort.Strings(multiDirs)
	for _, dir := range multiDirs {
		names := dirFiles[dir]
		allParts := true
		for _, rel := range names {
			stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
			if !rePartName.MatchString(stem) {
				allParts = false
				break
			}
		}
		bases := make([]string, len(names))
		for i, rel := range names {
			bases[i] = filepath.Base(rel)
		}
		if allParts {
			findings = append(findings, Finding{
				Check:    "duplicates",
				Severity: SeverityInfo,
				Path:     dir,
				Message:  fmt.Sprintf("multi-part book (%d parts): %s", len(names), strings.Join(bases, ", ")),
			})
		} else {
			findings = append(findings, Finding{
				Check:    "duplicates",
				Severity: SeverityWarning,
				Path:     dir,
				Message:  fmt.Sprintf("directory contains %d M4B files (expected 1): %s", len(names), strings.Join(bases, ", ")),
			})
		}
	}

	// Near-duplicate scan is O(n^2) on normalized stems.
	for i, pathA := range files {
		for _, pathB := range files[i+1:] {
			normA, normB := normPath[pathA], normPath[pathB]
			if normA == normB {
				continue
			}
			ratio := matcher.Ratio(normA, normB)
			if ratio >= nearDuplicateThreshold {
				findings = append(findings, Finding{
					Check:    "duplicates",
					Severity: SeverityInfo,
					Path:     pathA,
					Message: fmt.Sprintf("near-duplicate (%.0f%% similar): %q <-> %q (%s)",
						ratio, filepath.Base(pathA), filepath.Base(pathB), pathB),
				})
			}
		}
	}

	return findings
}

// CheckStructure validates the Author/[Series/]Book/file.m4b hierarchy.
func (a *Auditor) CheckStructure() []Finding {
	var findings []Finding

	for _, rel := range a.m4bFiles() {
		parts := strings.Split(rel, string(filepath.Separator))
		switch {
		case len(parts) == 1:
			findings = append(findings, Finding{
				Check:    "structure",
				Severity: SeverityCritical,
				Path:     rel,
				Message:  "M4B file at library root (no author folder)",
			})
			continue
		case len(parts) == 2:
			findings = append(findings, Finding{
				Check:    "structure",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  "M4B file directly under author folder (missing book subfolder)",
			})
			continue
		case len(parts) > 4:
			findings = append(findings, Finding{
				Check:    "structure",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  fmt.Sprintf("nested too deep (%d levels, expected 3-4)", len(parts)),
			})
		}

		base := filepath.Base(rel)
		if strings.Contains(base, "[") && strings.Contains(base, "]") {
			findings = append(findings, Finding{
				Check:    "structure",
				Severity: SeverityWarning,
				Path:     rel,
				Message:  fmt.Sprintf("filename contains brackets (possible raw download name): %s", base),
			})
		}
	}

	// Non-audio strays; leftover audio sources have their own check.
	filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".m4b" || SourceExtensions[ext] {
			return nil
		}
		name := d.Name()
		if name == ".author-override" || name == ".DS_Store" || name == "Thumbs.db" {
			return nil
		}
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			return nil
		}
		rel, relErr := filepath.Rel(a.Root, path)
		if relErr != nil || hasHiddenComponent(rel) {
			return nil
		}
		label := ext
		if label == "" {
			label = "(no extension)"
		}
		findings = append(findings, Finding{
			Check:    "structure",
			Severity: SeverityInfo,
			Path:     rel,
			Message:  fmt.Sprintf("unexpected file type in library: %s", label),
		})
		return nil
	})

	filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".author-override" {
			return nil
		}
		if rel, relErr := filepath.Rel(a.Root, path); relErr == nil {
			findings = append(findings, Finding{
				Check:    "structure",
				Severity: SeverityInfo,
				Path:     rel,
				Message:  "author override marker present",
			})
		}
		return nil
	})

	return findings
}

// CheckLeftoverSources finds non-M4B audio files in the organized tree.
func (a *Auditor) CheckLeftoverSources() []Finding {
	var findings []Finding

	filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !SourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(a.Root, path)
		if relErr != nil || hasHiddenComponent(rel) {
			return nil
		}

		if siblingM4BExists(filepath.Dir(path)) {
			findings = append(findings, Finding{
				Check:     "sources",
				Severity:  SeverityWarning,
				Path:      rel,
				Message:   fmt.Sprintf("leftover source file (%s) alongside M4B, safe to delete", filepath.Ext(path)),
				Fixable:   true,
				FixAction: "delete",
			})
		} else {
			findings = append(findings, Finding{
				Check:    "sources",
				Severity: SeverityCritical,
				Path:     rel,
				Message:  fmt.Sprintf("source file (%s) with no M4B, unconverted book", filepath.Ext(path)),
			})
		}
		return nil
	})

	return findings
}

func siblingM4BExists(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".m4b") {
			return true
		}
	}
	return false
}

// hasHiddenComponent reports whether any path component starts with "_"
// or "." (the _unsorted folder and hidden directories are exempt from
// structure and source checks).
func hasHiddenComponent(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, "_") || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// ApplyFixes executes the fix action of every fixable finding. Returns
// a label per action taken (or that would be taken in dry-run mode).
func ApplyFixes(root string, findings []Finding, dryRun bool) []string {
	var actions []string

	for _, f := range findings {
		if !f.Fixable {
			continue
		}
		target := filepath.Join(root, f.Path)
		if _, err := os.Stat(target); err != nil {
			continue
		}

		switch f.FixAction {
		case "delete":
			label := "Deleted: " + f.Path
			if dryRun {
				label = "[DRY-RUN] Would delete: " + f.Path
			} else if err := os.Remove(target); err != nil {
				log.Printf("[WARN] audit: failed to delete %s: %v", f.Path, err)
				continue
			}
			actions = append(actions, label)
			log.Printf("[INFO] audit: %s", label)

		case "touch":
			label := "Touched: " + f.Path
			if dryRun {
				label = "[DRY-RUN] Would touch: " + f.Path
			} else {
				now := time.Now()
				if err := os.Chtimes(target, now, now); err != nil {
					log.Printf("[WARN] audit: failed to touch %s: %v", f.Path, err)
					continue
				}
			}
			actions = append(actions, label)
			log.Printf("[INFO] audit: %s", label)
		}
	}

	return actions
}
