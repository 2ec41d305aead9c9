// file: internal/library/index_test.go
// version: 1.1.0
// guid: 0d6f3b8e-2a5c-41d9-b7f4-8e1a6c9d3b52

package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dirs := []string{
		"Brandon Sanderson/Mistborn/The Final Empire",
		"R.A. Salvatore/The Legend of Drizzt",
		"Adrian Tchaikovsky",
		"John Smith",
		"Sarah Smith",
		"Gaffigan Jim/Food A Love Story (2014)",
	}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	book := filepath.Join(root, "Brandon Sanderson/Mistborn/The Final Empire/The Final Empire.m4b")
	require.NoError(t, os.WriteFile(book, []byte("x"), 0o644))
	return root
}

func TestBuildCounts(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)
	assert.Equal(t, 10, ix.FolderCount())
	assert.Equal(t, 1, ix.FileCount())
}

func TestBuildMissingRoot(t *testing.T) {
	ix := Build(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Equal(t, 0, ix.FolderCount())
	assert.Equal(t, "New Name", ix.ReuseExisting(ix.Root(), "New Name"))
}

func TestReuseExisting(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)

	t.Run("exact", func(t *testing.T) {
		got := ix.ReuseExisting(root, "Brandon Sanderson")
		assert.Equal(t, "Brandon Sanderson", got)
	})

	t.Run("normalized variant", func(t *testing.T) {
		parent := filepath.Join(root, "Gaffigan Jim")
		got := ix.ReuseExisting(parent, "Food- A Love Story")
		assert.Equal(t, "Food A Love Story (2014)", got)
	})

	t.Run("redundant author prefix", func(t *testing.T) {
		parent := filepath.Join(root, "R.A. Salvatore")
		got := ix.ReuseExisting(parent, "R.A. Salvatore The Legend of Drizzt")
		assert.Equal(t, "The Legend of Drizzt", got)
	})

	t.Run("no match passes through", func(t *testing.T) {
		got := ix.ReuseExisting(root, "Becky Chambers")
		assert.Equal(t, "Becky Chambers", got)
	})

	t.Run("registered folder is visible", func(t *testing.T) {
		parent := filepath.Join(root, "Adrian Tchaikovsky")
		assert.Equal(t, "Children of Time", ix.ReuseExisting(parent, "Children of Time"))
		ix.RegisterNewFolder(parent, "Children of Time")
		got := ix.ReuseExisting(parent, "Children Of Time (Unabridged)")
		assert.Equal(t, "Children of Time", got)
	})
}

func TestFileExists(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)

	dir := filepath.Join(root, "Brandon Sanderson/Mistborn/The Final Empire")
	assert.True(t, ix.FileExists(dir, "The Final Empire.m4b"))
	assert.False(t, ix.FileExists(dir, "Other.m4b"))

	ix.RegisterNewFile(dir, "Other.m4b")
	assert.True(t, ix.FileExists(dir, "Other.m4b"))
}

func TestMarkProcessed(t *testing.T) {
	ix := Build(t.TempDir())
	assert.False(t, ix.MarkProcessed("the final empire"))
	assert.True(t, ix.MarkProcessed("the final empire"))
	assert.False(t, ix.MarkProcessed("warbreaker"))
}

func TestMatchAuthor(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)

	t.Run("exact folder unchanged", func(t *testing.T) {
		assert.Equal(t, "Brandon Sanderson", ix.MatchAuthor("Brandon Sanderson"))
	})

	t.Run("initials spacing adopts existing folder", func(t *testing.T) {
		got := ix.MatchAuthor("R. A. Salvatore")
		assert.Equal(t, "R.A. Salvatore", got)
		// recorded as alias for the next run
		canonical, ok := ix.Aliases().Canonical("R. A. Salvatore")
		require.True(t, ok)
		assert.Equal(t, "R.A. Salvatore", canonical)
	})

	t.Run("role credit stripped", func(t *testing.T) {
		got := ix.MatchAuthor("Adrian Tchaikovsky (Author)")
		assert.Equal(t, "Adrian Tchaikovsky", got)
	})

	t.Run("lone surname match adopted", func(t *testing.T) {
		got := ix.MatchAuthor("A. Tchaikovsky")
		assert.Equal(t, "Adrian Tchaikovsky", got)
	})

	t.Run("ambiguous surname unchanged", func(t *testing.T) {
		got := ix.MatchAuthor("Jane Smith")
		assert.Equal(t, "Jane Smith", got)
	})

	t.Run("unknown author unchanged", func(t *testing.T) {
		assert.Equal(t, "Becky Chambers", ix.MatchAuthor("Becky Chambers"))
	})

	t.Run("registered author becomes matchable", func(t *testing.T) {
		ix.RegisterAuthor("Becky Chambers")
		assert.Equal(t, "Becky Chambers", ix.MatchAuthor("B. Chambers"))
	})
}

func TestMatchAuthorPersistsAliasImmediately(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)

	got := ix.MatchAuthor("R. A. Salvatore")
	assert.Equal(t, "R.A. Salvatore", got)

	// The sidecar is rewritten on adoption, not at end of batch: a fresh
	// load sees the alias without any explicit Save.
	loaded := LoadAliases(root)
	canonical, ok := loaded.Canonical("R. A. Salvatore")
	require.True(t, ok)
	assert.Equal(t, "R.A. Salvatore", canonical)
}

func TestMatchAuthorAliasShortCircuit(t *testing.T) {
	root := newTestLibrary(t)
	ix := Build(root)
	ix.Aliases().Add("Bob Sanderson", "Brandon Sanderson")
	assert.Equal(t, "Brandon Sanderson", ix.MatchAuthor("Bob Sanderson"))
}

func TestAliasStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := LoadAliases(root)
	assert.Equal(t, 0, s.Len())

	s.Add("R. A. Salvatore", "R.A. Salvatore")
	s.Add("RA Salvatore", "R.A. Salvatore")
	s.Add("R.A. Salvatore", "R.A. Salvatore") // self-alias ignored
	require.NoError(t, s.Save())

	loaded := LoadAliases(root)
	assert.Equal(t, 2, loaded.Len())
	canonical, ok := loaded.Canonical("RA Salvatore")
	require.True(t, ok)
	assert.Equal(t, "R.A. Salvatore", canonical)
}

func TestAliasStoreMalformedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, AliasFilename), []byte("{not json"), 0o644))
	s := LoadAliases(root)
	assert.Equal(t, 0, s.Len())
}

func TestIsCorrectlyPlaced(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "book.m4b")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	ix := Build(root)

	assert.True(t, ix.IsCorrectlyPlaced(file, file))
	assert.False(t, ix.IsCorrectlyPlaced(file, filepath.Join(root, "elsewhere.m4b")))

	link := filepath.Join(root, "link.m4b")
	if err := os.Symlink(file, link); err == nil {
		assert.True(t, ix.IsCorrectlyPlaced(link, file))
	}
}
