// file: internal/pipeline/pipeline_test.go
// version: 1.1.0
// guid: 3b4c5d6e-7f8a-9b0c-1d2e-3f4a5b6c7d8f

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodaddy/audiobook-pipeline/internal/catalog"
	"github.com/rodaddy/audiobook-pipeline/internal/library"
	"github.com/rodaddy/audiobook-pipeline/internal/mediainfo"
	"github.com/rodaddy/audiobook-pipeline/internal/organizer"
	"github.com/rodaddy/audiobook-pipeline/internal/resolver"
	"github.com/rodaddy/audiobook-pipeline/internal/scanner"
	"github.com/rodaddy/audiobook-pipeline/internal/state"
)

type emptySearcher struct{}

func (emptySearcher) SearchAll(_ context.Context, _, _, _ string, _ bool) []catalog.Candidate {
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("fake audio data"), 0644))
}

// newTestPipeline builds a pipeline that resolves from paths alone: no
// catalog hits, no AI, no readable tags.
func newTestPipeline(t *testing.T, libraryRoot string, store state.Store) *Pipeline {
	t.Helper()

	ix := library.Build(libraryRoot)
	res := resolver.New(emptySearcher{}, nil, ix)
	res.ProbeTags = func(string) (*mediainfo.TagInfo, error) {
		return nil, errors.New("unreadable")
	}

	return &Pipeline{
		Store:     store,
		Resolver:  res,
		Organizer: organizer.New(libraryRoot, organizer.StrategyCopy, false),
		Index:     ix,
		Scanner:   &scanner.Scanner{},
	}
}

func TestRunPlacesBooks(t *testing.T) {
	inbox := t.TempDir()
	libraryRoot := t.TempDir()

	writeFile(t, filepath.Join(inbox, "Brandon Sanderson", "Elantris", "book.m4b"))
	writeFile(t, filepath.Join(inbox, "Robin Hobb - Farseer Trilogy", "Assassins Apprentice", "track.mp3"))

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Run(context.Background(), inbox)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Placed)
	assert.Equal(t, 0, summary.Failed)

	assert.FileExists(t, filepath.Join(libraryRoot, "Brandon Sanderson", "Elantris", "book.m4b"))
	assert.FileExists(t, filepath.Join(libraryRoot, "Robin Hobb", "Farseer Trilogy", "Assassins Apprentice", "track.mp3"))
}

func TestRunSkipsCompletedBooks(t *testing.T) {
	inbox := t.TempDir()
	libraryRoot := t.TempDir()

	writeFile(t, filepath.Join(inbox, "Brandon Sanderson", "Elantris", "book.m4b"))

	store, err := state.NewPebbleStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer store.Close()

	p := newTestPipeline(t, libraryRoot, store)

	first, err := p.Run(context.Background(), inbox)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Placed)

	second, err := p.Run(context.Background(), inbox)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 0, second.Placed)
}

func TestRunRecordsState(t *testing.T) {
	inbox := t.TempDir()
	libraryRoot := t.TempDir()

	bookFile := filepath.Join(inbox, "Brandon Sanderson", "Elantris", "book.m4b")
	writeFile(t, bookFile)

	store, err := state.NewPebbleStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer store.Close()

	p := newTestPipeline(t, libraryRoot, store)
	_, err = p.Run(context.Background(), inbox)
	require.NoError(t, err)

	hash, err := scanner.BookHash(filepath.Dir(bookFile))
	require.NoError(t, err)

	rec, err := store.Read(hash)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, rec.Status)
	assert.Equal(t, "Brandon Sanderson", rec.Parsed.Author)
	assert.Equal(t, "Elantris", rec.Parsed.Title)

	organizeStage := rec.Stages[state.StageOrganize]
	require.NotNil(t, organizeStage)
	assert.Equal(t, state.StatusCompleted, organizeStage.Status)
	assert.Equal(t, filepath.Join(libraryRoot, "Brandon Sanderson", "Elantris"), organizeStage.DestDir)
}

func TestRunDedupsAcrossSourceRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	libraryRoot := t.TempDir()

	srcA := filepath.Join(rootA, "Brandon Sanderson", "Elantris", "book.m4b")
	srcB := filepath.Join(rootB, "Brandon Sanderson", "Elantris", "book.m4b")
	writeFile(t, srcA)
	require.NoError(t, os.MkdirAll(filepath.Dir(srcB), 0755))
	require.NoError(t, os.WriteFile(srcB, []byte("a longer re-rip of the very same book"), 0644))

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Run(context.Background(), rootA, rootB)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Placed)
	assert.Equal(t, 1, summary.Skipped)

	// Units are processed in path order; the loser must not overwrite.
	winner := srcA
	if srcB < srcA {
		winner = srcB
	}
	want, err := os.ReadFile(winner)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(libraryRoot, "Brandon Sanderson", "Elantris", "book.m4b"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestRunSkipsBooksAlreadyInLibrary(t *testing.T) {
	inbox := t.TempDir()
	libraryRoot := t.TempDir()

	writeFile(t, filepath.Join(inbox, "Brandon Sanderson", "Elantris", "book.m4b"))

	// Different size, so the copy-time same-size check alone would not
	// protect it.
	existing := filepath.Join(libraryRoot, "Brandon Sanderson", "Elantris", "book.m4b")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("an earlier encode, differently sized"), 0644))

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Run(context.Background(), inbox)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Placed)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "an earlier encode, differently sized", string(got))
}

func TestRunUnsortedWithoutAuthor(t *testing.T) {
	inbox := t.TempDir()
	libraryRoot := t.TempDir()

	writeFile(t, filepath.Join(inbox, "Project Hail Mary (Unabridged)", "file.mp3"))

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Run(context.Background(), inbox)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Unsorted)
	assert.FileExists(t, filepath.Join(libraryRoot, "_unsorted", "Project Hail Mary", "file.mp3"))
}

func TestReorganizeMovesMisplacedBook(t *testing.T) {
	libraryRoot := t.TempDir()

	// Filed under a bare title; resolution knows the author from the
	// series folder name.
	old := filepath.Join(libraryRoot, "Robin Hobb - Farseer Trilogy", "Assassins Apprentice", "track.mp3")
	writeFile(t, old)

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Reorganize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Placed)
	assert.FileExists(t, filepath.Join(libraryRoot, "Robin Hobb", "Farseer Trilogy", "Assassins Apprentice", "track.mp3"))
	assert.NoFileExists(t, old)

	// The emptied source folders are pruned.
	_, err = os.Stat(filepath.Join(libraryRoot, "Robin Hobb - Farseer Trilogy"))
	assert.True(t, os.IsNotExist(err))
}

func TestReorganizeSkipsCorrectlyPlaced(t *testing.T) {
	libraryRoot := t.TempDir()
	writeFile(t, filepath.Join(libraryRoot, "Brandon Sanderson", "Elantris", "book.m4b"))

	p := newTestPipeline(t, libraryRoot, nil)
	summary, err := p.Reorganize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Placed)
}
