// file: internal/pipeline/pipeline.go
// version: 1.1.0
// guid: 2a3b4c5d-6e7f-8a9b-0c1d-2e3f4a5b6c7d

// Package pipeline runs the organize flow: discover source books,
// resolve metadata, and place files into the library.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/rodaddy/audiobook-pipeline/internal/ai"
	"github.com/rodaddy/audiobook-pipeline/internal/catalog"
	"github.com/rodaddy/audiobook-pipeline/internal/config"
	"github.com/rodaddy/audiobook-pipeline/internal/library"
	"github.com/rodaddy/audiobook-pipeline/internal/metrics"
	"github.com/rodaddy/audiobook-pipeline/internal/organizer"
	"github.com/rodaddy/audiobook-pipeline/internal/resolver"
	"github.com/rodaddy/audiobook-pipeline/internal/scanner"
	"github.com/rodaddy/audiobook-pipeline/internal/state"
	"github.com/rodaddy/audiobook-pipeline/internal/tagger"
)

// Summary is the result of one pipeline run.
type Summary struct {
	RunID    string `json:"run_id"`
	Total    int    `json:"total"`
	Placed   int    `json:"placed"`
	Unsorted int    `json:"unsorted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Pipeline wires the discovery, resolution, and placement stages.
type Pipeline struct {
	Store     state.Store
	Resolver  *resolver.Resolver
	Organizer *organizer.Organizer
	Index     *library.Index
	Scanner   *scanner.Scanner
	DryRun    bool

	// EmbedCovers downloads and embeds cover art when the resolver
	// produced a cover URL. Requires ffmpeg on PATH.
	EmbedCovers bool
}

// New builds a pipeline from configuration. store may be nil (stateless
// run, no idempotency skip).
func New(cfg config.Config, store state.Store) *Pipeline {
	ix := library.Build(cfg.LibraryRoot)

	res := resolver.New(
		catalog.NewClient(cfg.AudibleRegion),
		ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel),
		ix,
	)
	if cfg.MatchThreshold > 0 {
		res.Threshold = cfg.MatchThreshold
	}
	res.AIAll = cfg.AIAll

	return &Pipeline{
		Store:     store,
		Resolver:  res,
		Organizer: organizer.New(cfg.LibraryRoot, organizer.StrategyCopy, cfg.DryRun),
		Index:     ix,
		Scanner:   &scanner.Scanner{Progress: true},
		DryRun:    cfg.DryRun,
	}
}

// Run organizes every book unit found under the source roots.
func (p *Pipeline) Run(ctx context.Context, roots ...string) (Summary, error) {
	summary := Summary{RunID: state.NewRunID()}

	units, err := p.Scanner.Discover(roots...)
	if err != nil {
		return summary, fmt.Errorf("discovery failed: %w", err)
	}
	summary.Total = len(units)
	log.Printf("[INFO] pipeline: run %s, %d book(s) found", summary.RunID, len(units))

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		switch p.processUnit(ctx, unit) {
		case outcomePlaced:
			summary.Placed++
		case outcomeUnsorted:
			summary.Unsorted++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
	}

	if err := p.Index.Aliases().Save(); err != nil {
		log.Printf("[WARN] pipeline: failed to save author aliases: %v", err)
	}
	return summary, nil
}

// Reorganize re-resolves books already inside the library and moves
// misplaced ones to their computed destination, pruning emptied folders.
func (p *Pipeline) Reorganize(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: state.NewRunID()}

	units, err := p.Scanner.Discover(p.Organizer.LibraryRoot)
	if err != nil {
		return summary, fmt.Errorf("library scan failed: %w", err)
	}
	summary.Total = len(units)
	log.Printf("[INFO] pipeline: reorganize run %s, %d book(s) in library", summary.RunID, len(units))

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		sourceDir, tagFile := "", unit.Path
		if unit.IsDir {
			sourceDir = unit.Path
			tagFile = resolver.FindTagFile(unit.Path)
		}
		res := p.Resolver.ResolveFile(ctx, p.primaryFile(unit), sourceDir, tagFile)
		destDir := organizer.BuildPath(p.Organizer.LibraryRoot, res.Metadata, p.Index)

		current := unit.Path
		if !unit.IsDir {
			current = filepath.Dir(unit.Path)
		}
		if p.Index.IsCorrectlyPlaced(current, destDir) {
			summary.Skipped++
			continue
		}

		log.Printf("[INFO] pipeline: reorganize %s -> %s", unit.Path, destDir)
		moved := false
		files := unit.AudioFiles
		if !unit.IsDir {
			files = []string{unit.Path}
		}
		for _, f := range files {
			if _, err := p.Organizer.Move(f, destDir, ""); err != nil {
				log.Printf("[WARN] pipeline: move failed for %s: %v", f, err)
				summary.Failed++
				moved = false
				break
			}
			moved = true
		}
		if moved {
			if res.Metadata.Author == "" {
				summary.Unsorted++
			} else {
				summary.Placed++
			}
			metrics.BooksProcessed.WithLabelValues(string(outcomePlaced)).Inc()
		}
	}

	if err := p.Index.Aliases().Save(); err != nil {
		log.Printf("[WARN] pipeline: failed to save author aliases: %v", err)
	}
	return summary, nil
}

type outcome string

const (
	outcomePlaced   outcome = "placed"
	outcomeUnsorted outcome = "unsorted"
	outcomeSkipped  outcome = "skipped"
	outcomeFailed   outcome = "failed"
)

func (p *Pipeline) processUnit(ctx context.Context, unit scanner.Unit) (result outcome) {
	defer func() {
		metrics.BooksProcessed.WithLabelValues(string(result)).Inc()
	}()

	rec := p.trackUnit(unit)
	if rec != nil && rec.Status == state.StatusCompleted {
		log.Printf("[DEBUG] pipeline: already organized, skipping %s", unit.Path)
		return outcomeSkipped
	}

	if p.Index != nil {
		if key := dedupKey(unit); p.Index.MarkProcessed(key) {
			log.Printf("[DEBUG] pipeline: %q already organized from another source root, skipping %s", key, unit.Path)
			return outcomeSkipped
		}
	}

	sourceDir, tagFile := "", unit.Path
	if unit.IsDir {
		sourceDir = unit.Path
		tagFile = resolver.FindTagFile(unit.Path)
	}

	start := time.Now()
	res := p.Resolver.ResolveFile(ctx, p.primaryFile(unit), sourceDir, tagFile)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	p.recordStage(rec, state.StageMetadata, res)

	destDir := organizer.BuildPath(p.Organizer.LibraryRoot, res.Metadata, p.Index)

	placeStart := time.Now()
	destFile, placed, err := p.place(unit, res, destDir)
	metrics.OrganizeDuration.Observe(time.Since(placeStart).Seconds())
	if err != nil {
		log.Printf("[WARN] pipeline: failed to place %s: %v", unit.Path, err)
		p.recordError(rec, state.StageOrganize, err)
		return outcomeFailed
	}

	p.finishUnit(rec, res, destDir)
	if !placed {
		log.Printf("[DEBUG] pipeline: destination already complete for %s", unit.Path)
		return outcomeSkipped
	}
	p.applyTags(ctx, destFile, res, destDir)

	if res.Metadata.Author == "" {
		return outcomeUnsorted
	}
	return outcomePlaced
}

// primaryFile is the path fed to the path parser: the file itself, or
// the best audio file for directory units.
func (p *Pipeline) primaryFile(unit scanner.Unit) string {
	if !unit.IsDir {
		return unit.Path
	}
	if tf := resolver.FindTagFile(unit.Path); tf != "" {
		return tf
	}
	return unit.Path
}

// dedupKey identifies a logical book independently of which source root
// it was discovered under, so the same book staged in two roots is
// organized once per run.
func dedupKey(unit scanner.Unit) string {
	primary := unit.Path
	if unit.IsDir && len(unit.AudioFiles) > 0 {
		primary = unit.AudioFiles[0]
	}
	base := filepath.Base(primary)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if unit.IsDir {
		return filepath.Base(unit.Path) + "/" + stem
	}
	return stem
}

// place copies the unit into destDir. Directory units keep their part
// basenames; single files are renamed to the resolved title. Files the
// index already knows at the destination are left untouched; placed
// reports whether anything was actually copied.
func (p *Pipeline) place(unit scanner.Unit, res *resolver.Result, destDir string) (destFile string, placed bool, err error) {
	if unit.IsDir {
		var lastDest string
		for _, f := range unit.AudioFiles {
			name := filepath.Base(f)
			if p.Index != nil && p.Index.FileExists(destDir, name) {
				log.Printf("[DEBUG] pipeline: already in library: %s", name)
				lastDest = filepath.Join(destDir, name)
				continue
			}
			dest, err := p.Organizer.Place(f, destDir, "")
			if err != nil {
				return "", false, err
			}
			p.registerPlaced(destDir, name)
			lastDest = dest
			placed = true
		}
		return lastDest, placed, nil
	}

	destFilename := ""
	if res.Metadata.Title != "" {
		destFilename = organizer.SanitizeFilename(res.Metadata.Title) + filepath.Ext(unit.Path)
	}
	name := destFilename
	if name == "" {
		name = filepath.Base(unit.Path)
	}
	if p.Index != nil && p.Index.FileExists(destDir, name) {
		log.Printf("[DEBUG] pipeline: already in library: %s", name)
		return filepath.Join(destDir, name), false, nil
	}
	dest, err := p.Organizer.Place(unit.Path, destDir, destFilename)
	if err != nil {
		return "", false, err
	}
	p.registerPlaced(destDir, name)
	return dest, true, nil
}

// registerPlaced records a freshly placed file so later units in the
// batch see it without a re-scan.
func (p *Pipeline) registerPlaced(destDir, name string) {
	if p.Index == nil || p.DryRun {
		return
	}
	p.Index.RegisterNewFile(destDir, name)
}

// applyTags writes resolved metadata and cover art into the placed file.
// Both are best-effort; failures never fail the book.
func (p *Pipeline) applyTags(ctx context.Context, destFile string, res *resolver.Result, destDir string) {
	if p.DryRun || destFile == "" {
		return
	}

	tags := tagger.Tags{
		Title:    res.Metadata.Title,
		Album:    res.Metadata.Title,
		Author:   res.Metadata.Author,
		Narrator: res.Narrator,
		Series:   res.Metadata.Series,
		Position: res.Metadata.Position,
		ASIN:     res.ASIN,
		Year:     res.Year,
		Genre:    "Audiobook",
	}
	if err := tags.Write(destFile); err != nil && !errors.Is(err, tagger.ErrNotSupported) {
		log.Printf("[WARN] pipeline: tag write failed for %s: %v", destFile, err)
	}

	if p.EmbedCovers && res.CoverURL != "" {
		coverPath, err := tagger.DownloadCover(ctx, res.CoverURL, destDir)
		if err != nil {
			log.Printf("[WARN] pipeline: cover download failed: %v", err)
			return
		}
		if err := tagger.EmbedCoverArt(destFile, coverPath); err != nil {
			log.Printf("[DEBUG] pipeline: cover embed skipped: %v", err)
		}
	}
}

// trackUnit returns the state record for the unit, creating one when
// missing. nil when no store is configured or tracking fails.
func (p *Pipeline) trackUnit(unit scanner.Unit) *state.BookRecord {
	if p.Store == nil {
		return nil
	}
	rec, err := p.Store.Read(unit.Hash)
	if err == nil {
		return rec
	}
	if !errors.Is(err, state.ErrNotFound) {
		log.Printf("[WARN] pipeline: state read failed for %s: %v", unit.Hash, err)
		return nil
	}
	rec, err = p.Store.Create(unit.Hash, unit.Path, state.ModeOrganize)
	if err != nil {
		log.Printf("[WARN] pipeline: state create failed for %s: %v", unit.Hash, err)
		return nil
	}
	return rec
}

// recordStage marks resolution stages completed on the in-memory record;
// finishUnit persists everything in one Update.
func (p *Pipeline) recordStage(rec *state.BookRecord, stage state.Stage, res *resolver.Result) {
	if rec == nil {
		return
	}
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	if rec.Stages == nil {
		rec.Stages = make(map[state.Stage]*state.StageState)
	}
	rec.Stages[state.StageASIN] = &state.StageState{Status: state.StatusCompleted, CompletedAt: now}
	rec.Stages[stage] = &state.StageState{Status: state.StatusCompleted, CompletedAt: now}
	rec.Parsed = state.ParsedMetadata{
		Author:   res.Metadata.Author,
		Title:    res.Metadata.Title,
		Series:   res.Metadata.Series,
		Position: res.Metadata.Position,
		ASIN:     res.ASIN,
		Narrator: res.Narrator,
		Year:     res.Year,
	}
	rec.CoverURL = res.CoverURL
}

func (p *Pipeline) recordError(rec *state.BookRecord, stage state.Stage, err error) {
	if rec == nil || p.Store == nil {
		return
	}
	if serr := p.Store.SetError(rec.BookHash, stage, "organize", err.Error()); serr != nil {
		log.Printf("[WARN] pipeline: state error update failed: %v", serr)
	}
}

func (p *Pipeline) finishUnit(rec *state.BookRecord, res *resolver.Result, destDir string) {
	if rec == nil || p.Store == nil || p.DryRun {
		return
	}
	if rec.Stages == nil {
		rec.Stages = make(map[state.Stage]*state.StageState)
	}
	rec.Stages[state.StageOrganize] = &state.StageState{
		Status:      state.StatusCompleted,
		CompletedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		DestDir:     destDir,
	}
	rec.Status = state.StatusCompleted
	if err := p.Store.Update(rec); err != nil {
		log.Printf("[WARN] pipeline: state update failed: %v", err)
	}
}
