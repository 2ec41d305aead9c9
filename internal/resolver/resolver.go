// file: internal/resolver/resolver.go
// version: 1.1.0
// guid: d4a7f2c9-8e3b-46d1-b0a5-1c6f9e4d2b78

// Package resolver merges metadata evidence from the path parser, embedded
// tags, catalog search, and optional AI assistance into one final
// placement decision per book.
package resolver

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/rodaddy/audiobook-pipeline/internal/ai"
	"github.com/rodaddy/audiobook-pipeline/internal/catalog"
	"github.com/rodaddy/audiobook-pipeline/internal/library"
	"github.com/rodaddy/audiobook-pipeline/internal/mediainfo"
	"github.com/rodaddy/audiobook-pipeline/internal/metadata"
)

// DefaultThreshold is the catalog score above which the best match is
// accepted without AI disambiguation.
const DefaultThreshold = 65.0

// Searcher is the catalog search dependency.
type Searcher interface {
	SearchAll(ctx context.Context, title, series, author string, widen bool) []catalog.Candidate
}

// Assistant is the AI dependency, satisfied by *ai.Client (nil-safe).
type Assistant interface {
	Enabled() bool
	Resolve(ctx context.Context, pathMeta metadata.ParsedMetadata, tagMeta ai.Evidence,
		candidates []catalog.Candidate, sourceFilename, sourceDirectory string) (metadata.ParsedMetadata, bool)
	Disambiguate(ctx context.Context, candidates []catalog.Candidate,
		titleHint, authorHint string) (catalog.Candidate, bool)
}

// Result is the resolution outcome for one book.
type Result struct {
	Metadata metadata.ParsedMetadata
	ASIN     string
	Narrator string
	Year     string
	CoverURL string
	// Candidate holds the matched catalog listing for extended tagging
	// fields; nil when resolution came from path/tags alone.
	Candidate *catalog.Candidate
}

// Resolver wires the evidence sources together.
type Resolver struct {
	Catalog   Searcher
	AI        Assistant
	Index     *library.Index
	Threshold float64
	// AIAll forces AI validation even when sources agree.
	AIAll bool
	// ProbeTags reads embedded tags; overridable in tests.
	ProbeTags func(path string) (*mediainfo.TagInfo, error)
}

// New creates a resolver with default threshold and tag probe.
func New(cat Searcher, assistant Assistant, ix *library.Index) *Resolver {
	return &Resolver{
		Catalog:   cat,
		AI:        assistant,
		Index:     ix,
		Threshold: DefaultThreshold,
		ProbeTags: mediainfo.Probe,
	}
}

func (r *Resolver) aiEnabled() bool {
	return r.AI != nil && r.AI.Enabled()
}

// ResolveFile produces final metadata for one book. sourcePath drives the
// path parser; sourceDir (the book's directory, empty for loose files)
// enables the author-only title fallback; tagFile is the audio file to
// read embedded tags from (empty to skip).
//
// Decision order: catalog match above threshold (or AI-disambiguated) >
// AI resolution on conflict > catalog author > tag author > path parse.
func (r *Resolver) ResolveFile(ctx context.Context, sourcePath, sourceDir, tagFile string) *Result {
	meta := metadata.Parse(sourcePath, sourceDir)
	hints := metadata.ExtractHints(sourcePath)

	// Embedded tag evidence.
	var tagMeta ai.Evidence
	if tagFile != "" && r.ProbeTags != nil {
		if info, err := r.ProbeTags(tagFile); err != nil {
			log.Printf("[WARN] resolver: failed to read tags from %s: %v", filepath.Base(tagFile), err)
		} else {
			tagMeta = ai.Evidence{Author: info.Author(), Title: info.Title, Album: info.Album}
		}
	}

	// A path title that is just the file stem is junk; prefer the tag title.
	sourceStem := stemOf(sourcePath)
	if tagFile != "" {
		sourceStem = stemOf(tagFile)
	}
	if len(tagMeta.Title) > 3 && meta.Title == sourceStem {
		meta.Title = tagMeta.Title
	}

	// Catalog search and scoring.
	var scored []catalog.Candidate
	if r.Catalog != nil {
		candidates := r.Catalog.SearchAll(ctx, meta.Title, meta.Series, meta.Author, r.aiEnabled())
		scored = catalog.Score(candidates, meta.Title, hints.AuthorHint)
	}

	threshold := r.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	var catalogPick *catalog.Candidate
	if len(scored) > 0 {
		if scored[0].Score >= threshold {
			catalogPick = &scored[0]
			log.Printf("[DEBUG] resolver: catalog match %q (score=%.0f)", scored[0].Title, scored[0].Score)
		} else if r.aiEnabled() {
			if pick, ok := r.AI.Disambiguate(ctx, topN(scored, 5), meta.Title, hints.AuthorHint); ok {
				catalogPick = &pick
			}
		}
	}

	catalogAuthor := ""
	if catalogPick != nil {
		catalogAuthor = catalogPick.AuthorStr
	}

	shouldResolve := r.AIAll || ai.NeedsResolution(meta.Author, tagMeta.Author, catalogAuthor)

	if shouldResolve && r.aiEnabled() {
		if aiMeta, ok := r.AI.Resolve(ctx, meta, tagMeta, scored, sourceStem, sourceDir); ok {
			meta = overlay(meta, aiMeta)
			log.Printf("[INFO] resolver: AI resolved author=%q", meta.Author)
		} else if catalogAuthor != "" {
			meta.Author = catalogAuthor
		} else if tagMeta.Author != "" {
			meta.Author = tagMeta.Author
		}
	} else if catalogPick != nil && catalogAuthor != "" {
		meta.Author = catalogAuthor
		if meta.Title == "" {
			meta.Title = catalogPick.Title
		}
		if meta.Series == "" {
			meta.Series = catalogPick.Series
		}
		if meta.Position == "" {
			meta.Position = metadata.NormalizePosition(catalogPick.Position)
		}
	} else if tagMeta.Author != "" {
		meta.Author = tagMeta.Author
	}

	// Canonicalize against existing library folders and the alias table.
	if r.Index != nil && meta.Author != "" {
		meta.Author = r.Index.MatchAuthor(meta.Author)
	}

	log.Printf("[DEBUG] resolver: final author=%q title=%q series=%q pos=%q",
		meta.Author, meta.Title, meta.Series, meta.Position)

	result := &Result{Metadata: meta}
	if catalogPick != nil {
		result.ASIN = catalogPick.ASIN
		result.Narrator = catalogPick.NarratorStr
		result.Year = catalogPick.Year
		result.CoverURL = catalogPick.CoverURL
		result.Candidate = catalogPick
	}
	return result
}

// overlay applies non-empty AI fields over the path-derived metadata.
func overlay(base, aiMeta metadata.ParsedMetadata) metadata.ParsedMetadata {
	if aiMeta.Author != "" {
		base.Author = aiMeta.Author
	}
	if aiMeta.Title != "" {
		base.Title = ai.CleanAITitle(aiMeta.Title)
	}
	if aiMeta.Series != "" {
		base.Series = aiMeta.Series
	}
	if aiMeta.Position != "" {
		base.Position = metadata.NormalizePosition(aiMeta.Position)
	}
	return base
}

func topN(candidates []catalog.Candidate, n int) []catalog.Candidate {
	if len(candidates) <= n {
		return candidates
	}
	return candidates[:n]
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
