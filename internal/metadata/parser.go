// file: internal/metadata/parser.go
// version: 1.2.0
// guid: 9c4e7a2b-1d5f-483a-b8c0-3e6f9a1d4b7e

package metadata

import (
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"strings"
)

// labelSuffixes are right-hand segments that are labels, not series names
// (e.g. "Title - Audiobook").
var labelSuffixes = map[string]bool{
	"audiobook":  true,
	"audio":      true,
	"unabridged": true,
	"abridged":   true,
}

// genericBasenames carry no metadata; the parser falls back to the parent
// directory name instead.
var genericBasenames = map[string]bool{
	"file":      true,
	"mp3":       true,
	"audiobook": true,
	"audio":     true,
	"book":      true,
	"track":     true,
	"output":    true,
	"part1":     true,
	"part2":     true,
	"part 1":    true,
	"part 2":    true,
	"disc1":     true,
	"disc2":     true,
}

// collectionWords disqualify a directory name from being an author. Includes
// pipeline-stage folder names that leak into source paths.
var collectionWords = []string{
	"trilogy",
	"series",
	"saga",
	"collection",
	"volumes",
	"books",
	"chronicle",
	"chronicles",
	"standalones",
	"chaptered",
	"audiobook",
	"all chaptered",
	"stuff",
	"random",
	"newbooks",
	"output",
	"input",
	"incoming",
	"processing",
	"completed",
	"failed",
	"queue",
	"pipeline",
}

// Precompiled patterns -- package-level to avoid per-call recompilation.
var (
	reHashSuffix   = regexp.MustCompile(`\s+-\s+[a-f0-9]{16}$`)
	reLabelSuffix  = regexp.MustCompile(`(?i)\s+-\s+(?:Audiobook|Audio|Unabridged|Abridged)$`)
	reMarkerSplit  = regexp.MustCompile(`-#-(\d+)`)
	reMarkerSpace  = regexp.MustCompile(`-#(\d+) `)
	reMarker       = regexp.MustCompile(`-#(\d+)-`)
	reMarkerLoose  = regexp.MustCompile(`-#\d+`)
	reMarkerPrefix = regexp.MustCompile(`-(.+?)-#\d+`)
	rePatternB2    = regexp.MustCompile(`^(.+?)\s+(\d{1,3})\s+-\s+(.+)$`)
	rePatternB     = regexp.MustCompile(`^(.+?)\s+(\d{1,3})\s+(.+)$`)
	rePatternG     = regexp.MustCompile(`^(.+?)\s+\[(\d+)\]\s+(.+)$`)
	reBracketNum   = regexp.MustCompile(`\[\d+\]`)
	reWholeBracket = regexp.MustCompile(`^\[(.+)\]$`)
	reLeadingNum   = regexp.MustCompile(`^\d+\s*[-\x{2013}]?\s*`)
	reBraces       = regexp.MustCompile(`\s*\{[^}]+\}`)
	reBitrate      = regexp.MustCompile(`\s*\([^)]*\b\d+k\b[^)]*\)`)
	reCodecJunk    = regexp.MustCompile(`\s*\([A-Z][a-z]+\)\s+\d+k\s+[\d.]+`)
	reAudioBook    = regexp.MustCompile(`(?i)\s*\((?:The\s+)?Audio\s*Book\)`)
	reUnabridged   = regexp.MustCompile(`(?i)\s*\(Unabridged\)`)
	reDashArtifact = regexp.MustCompile(`(\w)-\s`)
	reTrailingDash = regexp.MustCompile(`-$`)
	reParenSeries  = regexp.MustCompile(`\s*-?\s*\(([^)]+?)(?:\s*[-,]\s*(?:Book|Day|#)\s*([\d.]+))?\)`)
	reYear         = regexp.MustCompile(`^\d{4}$`)
	reYearPrefix   = regexp.MustCompile(`^\d{4}\s*-\s*`)
	reDigit        = regexp.MustCompile(`\d`)
	reParens       = regexp.MustCompile(`\s*\(.*?\)`)
	reBrackets     = regexp.MustCompile(`\s*\[.*?\]`)
	reWhitespace   = regexp.MustCompile(`\s+`)
)

// patternMatch is the result of one naming pattern applied to a directory
// name. Complete means all four fields were extracted and the cascade stops.
type patternMatch struct {
	Author   string
	Series   string
	Position string
	Title    string
	Complete bool
}

// namePattern is a pure directory-name parser tried in priority order.
type namePattern struct {
	name  string
	apply func(string) (patternMatch, bool)
}

// namePatterns is the ordered cascade. First successful pattern wins for
// series/position/title; author extraction layers on afterwards.
var namePatterns = []namePattern{
	{"A", matchPatternA},
	{"B2", matchPatternB2},
	{"B", matchPatternB},
	{"G", matchPatternG},
}

// Parse turns a noisy source path into best-guess metadata. It never fails:
// worst case the basename becomes the title and everything else stays empty.
//
// sourceDir, when non-empty, enables the author-only title fallback that
// replaces an author-shaped title with the first audio file's stem.
func Parse(path string, sourceDir string) ParsedMetadata {
	base := filepath.Base(path)
	basename := base
	if ext := filepath.Ext(base); ext != "" {
		basename = strings.TrimSuffix(base, ext)
	}
	basename = stripHashSuffix(basename)

	parent := filepath.Dir(path)
	parentName := stripHashSuffix(pathComponentName(parent))
	grandparent := filepath.Dir(parent)
	gpName := stripHashSuffix(pathComponentName(grandparent))
	ggpName := stripHashSuffix(pathComponentName(filepath.Dir(grandparent)))

	// Pattern F: recover from generic basenames (file.m4b, MP3.m4b).
	if genericBasenames[strings.ToLower(basename)] {
		if parentName != "" && !genericBasenames[strings.ToLower(parentName)] {
			basename = stripLabelSuffix(parentName)
		} else if gpName != "" {
			basename = stripLabelSuffix(gpName)
		}
	}

	var author, title, series, position string

	// Parent dir usually has the richest info.
	parseTarget := parentName
	if parseTarget == "" {
		parseTarget = basename
	}

	for _, p := range namePatterns {
		m, ok := p.apply(parseTarget)
		if !ok {
			continue
		}
		log.Printf("[DEBUG] parser: pattern %s matched %q", p.name, parseTarget)
		if m.Complete {
			return newResult(m.Author, m.Title, m.Series, m.Position)
		}
		series = m.Series
		position = m.Position
		title = m.Title
		break
	}

	// Pattern E: "Author - Series" grandparents.
	if gpName != "" && strings.Contains(gpName, " - ") {
		parts := strings.SplitN(gpName, " - ", 2)
		gpAuthor := strings.TrimSpace(parts[0])
		gpSeries := strings.TrimSpace(parts[1])
		if !labelSuffixes[strings.ToLower(gpSeries)] && !reDigit.MatchString(gpAuthor) {
			if author == "" {
				author = gpAuthor
			}
			if series == "" {
				series = gpSeries
			}
		}
	}

	// Pattern C: grandparent (or great-grandparent) as author.
	if parentName == basename && gpName != "" {
		if author == "" {
			if extracted := extractAuthor(gpName); LooksLikeAuthor(extracted) {
				author = extracted
			}
		}
	} else if gpName != "" && author == "" {
		if LooksLikeAuthor(gpName) {
			author = extractAuthor(gpName)
		} else if ggpName != "" && LooksLikeAuthor(ggpName) {
			author = extractAuthor(ggpName)
			if series == "" {
				series = cleanCollectionSuffix(gpName)
			}
		}
	}

	// Author-Title dash split on the parent: "Author-Title".
	if author == "" && series == "" && title == "" &&
		strings.Contains(parentName, "-") && !reMarkerLoose.MatchString(parentName) {
		parts := strings.SplitN(parentName, "-", 2)
		candidateAuthor := strings.TrimSpace(parts[0])
		candidateTitle := strings.TrimSpace(parts[1])
		if LooksLikeAuthor(candidateAuthor) && len(candidateTitle) >= 3 {
			author = candidateAuthor
			title = candidateTitle
		}
	}

	// Dedup: author == series means the path had no real author component.
	if author != "" && series != "" && strings.EqualFold(author, series) {
		author = ""
	}

	// Pattern D: derive title from the basename.
	if title == "" {
		title = basename
		if author != "" && strings.HasPrefix(strings.ToLower(title), strings.ToLower(author)) {
			title = strings.TrimSpace(strings.TrimLeft(title[len(author):], " -"))
		}
		if series != "" && strings.HasPrefix(strings.ToLower(title), strings.ToLower(series)) {
			title = strings.TrimSpace(strings.TrimLeft(title[len(series):], " -"))
		}
		title = reBracketNum.ReplaceAllString(title, "")
		if m := reWholeBracket.FindStringSubmatch(strings.TrimSpace(title)); m != nil {
			title = m[1]
		}
		title = reLeadingNum.ReplaceAllString(title, "")
		title = strings.TrimSpace(reWhitespace.ReplaceAllString(title, " "))
	}

	title = cleanTitle(title)

	// Parenthesized series suffix: "Title (Series, Book N)". A bare year is
	// an edition marker, not a series.
	if series == "" {
		if m := reParenSeries.FindStringSubmatchIndex(title); m != nil {
			candidate := strings.TrimRight(strings.TrimSpace(title[m[2]:m[3]]), " -,")
			pos := ""
			if m[4] >= 0 {
				pos = title[m[4]:m[5]]
			}
			if reYear.MatchString(candidate) {
				if position == "" {
					position = candidate
				}
				title = strings.TrimRight(strings.TrimSpace(title[:m[0]]), " -")
			} else if len(candidate) >= 3 && !labelSuffixes[strings.ToLower(candidate)] {
				series = candidate
				if pos != "" && position == "" {
					position = pos
				}
				title = strings.TrimRight(strings.TrimSpace(title[:m[0]]), " -")
			}
		}
	}

	if title == "" {
		title = cleanTitleFallback(basename)
	}

	// Author-only fallback: the "title" is actually an author name, so use
	// the first audio filename under sourceDir instead.
	if sourceDir != "" && title != "" {
		isAuthorTitle := author != "" && strings.TrimSpace(title) == strings.TrimSpace(author)
		isDirnameTitle := strings.TrimSpace(title) == strings.TrimSpace(parentName) && LooksLikeAuthor(title)
		if isAuthorTitle || isDirnameTitle {
			if audioTitle := titleFromAudioFile(sourceDir); audioTitle != "" {
				log.Printf("[DEBUG] parser: author-only fallback %q -> %q", title, audioTitle)
				if author == "" && isDirnameTitle {
					author = title
				}
				title = audioTitle
			}
		}
	}

	return newResult(author, title, series, position)
}

// matchPatternA parses "Author-Series-#N-Title". Malformed markers like
// "-#-N" and "-#N " are normalized to "-#N-" first. Extracts all four
// fields and terminates the cascade.
func matchPatternA(target string) (patternMatch, bool) {
	normalized := reMarkerSplit.ReplaceAllString(target, "-#$1")
	normalized = reMarkerSpace.ReplaceAllString(normalized, "-#$1-")

	markers := reMarker.FindAllStringSubmatchIndex(normalized, -1)
	if len(markers) == 0 {
		return patternMatch{}, false
	}
	last := markers[len(markers)-1]

	m := patternMatch{Complete: true}
	m.Position = normalized[last[2]:last[3]]
	m.Title = strings.TrimSpace(normalized[last[1]:])

	prefix := normalized[:last[0]]
	if reMarkerPrefix.MatchString(prefix) {
		authorEnd := strings.Index(prefix, "-")
		m.Author = strings.TrimSpace(prefix[:authorEnd])
		series := strings.TrimSpace(prefix[authorEnd+1:])
		m.Series = strings.TrimSpace(reMarker.Split(series, 2)[0])
	} else if idx := strings.LastIndex(prefix, "-"); idx >= 0 {
		m.Author = strings.TrimSpace(prefix[:idx])
		m.Series = strings.TrimSpace(prefix[idx+1:])
	} else {
		m.Author = strings.TrimSpace(prefix)
	}
	return m, true
}

// matchPatternB2 parses "Series N - Title" (e.g. "Deathgate Cycle 1 - Dragon Wing").
func matchPatternB2(target string) (patternMatch, bool) {
	m := rePatternB2.FindStringSubmatch(target)
	if m == nil {
		return patternMatch{}, false
	}
	return patternMatch{
		Series:   strings.TrimSpace(m[1]),
		Position: strings.TrimSpace(m[2]),
		Title:    strings.TrimSpace(m[3]),
	}, true
}

// matchPatternB parses "Series NN Title" without a dash. Rejected when the
// extracted title is too short to be real.
func matchPatternB(target string) (patternMatch, bool) {
	m := rePatternB.FindStringSubmatch(target)
	if m == nil || len(strings.TrimSpace(m[3])) < 3 {
		return patternMatch{}, false
	}
	return patternMatch{
		Series:   strings.TrimSpace(m[1]),
		Position: strings.TrimSpace(m[2]),
		Title:    strings.TrimSpace(m[3]),
	}, true
}

// matchPatternG parses "Series [NN] Title".
func matchPatternG(target string) (patternMatch, bool) {
	m := rePatternG.FindStringSubmatch(target)
	if m == nil {
		return patternMatch{}, false
	}
	return patternMatch{
		Series:   strings.TrimSpace(m[1]),
		Position: strings.TrimSpace(m[2]),
		Title:    strings.TrimSpace(m[3]),
	}, true
}

// cleanTitle strips metadata junk: {braces}, bitrate annotations, edition
// suffixes, and dash-space artifacts ("Food- A Love Story").
func cleanTitle(title string) string {
	title = reBraces.ReplaceAllString(title, "")
	title = reBitrate.ReplaceAllString(title, "")
	title = reCodecJunk.ReplaceAllString(title, "")
	title = reAudioBook.ReplaceAllString(title, "")
	title = reUnabridged.ReplaceAllString(title, "")
	title = reDashArtifact.ReplaceAllString(title, "$1 ")
	title = reTrailingDash.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// cleanTitleFallback is the last-resort title cleaner for a raw basename.
func cleanTitleFallback(basename string) string {
	title := reBracketNum.ReplaceAllString(basename, "")
	title = reLeadingNum.ReplaceAllString(title, "")
	title = strings.TrimSpace(reWhitespace.ReplaceAllString(title, " "))
	if title == "" {
		return basename
	}
	return title
}

// LooksLikeAuthor reports whether a directory name plausibly names a person.
// Deliberately conservative: a false positive corrupts the destination path,
// a false negative just leaves the author empty.
func LooksLikeAuthor(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range collectionWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	if reDigit.MatchString(name) {
		return false
	}
	if len(name) > 50 {
		return false
	}
	words := strings.Fields(name)
	if len(words) > 5 {
		return false
	}
	if strings.HasPrefix(lower, "the ") || strings.HasPrefix(lower, "a ") || strings.HasPrefix(lower, "an ") {
		return false
	}
	// A single word is more likely a series name than an author.
	if len(words) <= 1 {
		return false
	}
	return true
}

// extractAuthor pulls an author from a directory name, splitting off series
// info and collection suffixes: "Tad Williams (All Chaptered)" -> "Tad Williams".
func extractAuthor(name string) string {
	cleaned := strings.TrimSpace(reParens.ReplaceAllString(name, ""))
	cleaned = strings.TrimSpace(reBrackets.ReplaceAllString(cleaned, ""))
	if strings.Contains(cleaned, " - ") {
		candidate := strings.TrimSpace(strings.SplitN(cleaned, " - ", 2)[0])
		if !reDigit.MatchString(candidate) {
			return candidate
		}
	}
	if cleaned == "" {
		return name
	}
	return cleaned
}

// cleanCollectionSuffix removes "[1-5]" and "(All Chaptered)" style suffixes.
func cleanCollectionSuffix(name string) string {
	cleaned := reBrackets.ReplaceAllString(name, "")
	cleaned = reParens.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// titleFromAudioFile returns the first audio file's stem under dir, with the
// pipeline hash and any leading year prefix stripped. Generic and purely
// numeric stems are rejected.
func titleFromAudioFile(dir string) string {
	var audioFiles []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && AudioExtensions[strings.ToLower(filepath.Ext(path))] {
			audioFiles = append(audioFiles, path)
		}
		return nil
	})
	if len(audioFiles) == 0 {
		return ""
	}
	// WalkDir visits lexically, so the first entry is the sorted first.
	first := audioFiles[0]
	stem := strings.TrimSuffix(filepath.Base(first), filepath.Ext(first))
	stem = stripHashSuffix(stem)
	cleaned := strings.TrimSpace(reYearPrefix.ReplaceAllString(stem, ""))

	if genericBasenames[strings.ToLower(cleaned)] {
		return ""
	}
	if isAllDigits(cleaned) {
		return ""
	}
	return cleaned
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripHashSuffix removes a trailing 16-hex pipeline hash (" - a7edd490030561fb").
func stripHashSuffix(name string) string {
	return reHashSuffix.ReplaceAllString(name, "")
}

// stripLabelSuffix removes label suffixes like " - Audiobook" from dir names.
func stripLabelSuffix(name string) string {
	return reLabelSuffix.ReplaceAllString(name, "")
}

// pathComponentName returns the base name of a directory path, or empty for
// the filesystem root and ".".
func pathComponentName(dir string) string {
	if dir == "/" || dir == "." || dir == "" {
		return ""
	}
	name := filepath.Base(dir)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
