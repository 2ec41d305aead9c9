// file: internal/audit/audit_test.go
// version: 1.0.0
// guid: 8c3e1b64-9f27-4d50-a8b1-5e6d04c72f98

package audit

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Author A/Book One/Book One.m4b", "a")
	writeFile(t, root, "Author B/Book One/Book One.m4b", "b")
	writeFile(t, root, "Author A/Long Story/Long Story, Part 1.m4b", "p1")
	writeFile(t, root, "Author A/Long Story/Long Story, Part 2.m4b", "p2")
	writeFile(t, root, "Loose.m4b", "loose")
	writeFile(t, root, "Author C/Direct.m4b", "direct")
	writeFile(t, root, "Author A/Book One/leftover.mp3", "mp3")
	writeFile(t, root, "Author D/Unconverted/track.mp3", "mp3")
	writeFile(t, root, "Author A/notes.txt", "stray")
	writeFile(t, root, "Author A/Book One/cover.jpg", "img")
	writeFile(t, root, "_unsorted/Random/file.mp3", "skip me")
	return root
}

func findingsFor(findings []Finding, check string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Check == check {
			out = append(out, f)
		}
	}
	return out
}

func TestCheckDuplicates(t *testing.T) {
	a := New(newTestLibrary(t))
	findings := a.CheckDuplicates()

	var dupTitle, multiPart, multiFile bool
	for _, f := range findings {
		switch {
		case strings.Contains(f.Message, `duplicate title "book one"`):
			dupTitle = true
			assert.Equal(t, SeverityWarning, f.Severity)
		case strings.Contains(f.Message, "multi-part book (2 parts)"):
			multiPart = true
			assert.Equal(t, SeverityInfo, f.Severity)
		case strings.Contains(f.Message, "M4B files (expected 1)"):
			multiFile = true
		}
	}
	assert.True(t, dupTitle, "duplicate title across authors should be flagged")
	assert.True(t, multiPart, "part files in one dir are info, not warning")
	assert.False(t, multiFile, "no directory holds unrelated multiple M4Bs")
}

func TestCheckDuplicatesNearMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A/The Final Empire/The Final Empire.m4b", "x")
	writeFile(t, root, "B/The Final Empir/The Final Empir.m4b", "y")

	findings := New(root).CheckDuplicates()
	found := false
	for _, f := range findings {
		if strings.Contains(f.Message, "near-duplicate") {
			found = true
			assert.Equal(t, SeverityInfo, f.Severity)
		}
	}
	assert.True(t, found, "one-letter-off titles should be near-duplicates")
}

func TestCheckStructure(t *testing.T) {
	a := New(newTestLibrary(t))
	findings := findingsFor(a.CheckStructure(), "structure")

	byMessage := map[string]Finding{}
	for _, f := range findings {
		byMessage[f.Message] = f
	}

	rootLevel, ok := byMessage["M4B file at library root (no author folder)"]
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, rootLevel.Severity)
	assert.Equal(t, "Loose.m4b", rootLevel.Path)

	direct, ok := byMessage["M4B file directly under author folder (missing book subfolder)"]
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, direct.Severity)

	stray, ok := byMessage["unexpected file type in library: .txt"]
	require.True(t, ok)
	assert.Equal(t, SeverityInfo, stray.Severity)
}

func TestCheckStructureBracketName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A/Book/Title [B00AAI79WY].m4b", "x")

	findings := New(root).CheckStructure()
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "brackets")
}

func TestCheckLeftoverSources(t *testing.T) {
	a := New(newTestLibrary(t))
	findings := a.CheckLeftoverSources()

	var alongside, unconverted *Finding
	for i, f := range findings {
		if strings.Contains(f.Path, "leftover.mp3") {
			alongside = &findings[i]
		}
		if strings.Contains(f.Path, "track.mp3") {
			unconverted = &findings[i]
		}
		assert.NotContains(t, f.Path, "_unsorted", "_unsorted is exempt")
	}

	require.NotNil(t, alongside)
	assert.Equal(t, SeverityWarning, alongside.Severity)
	assert.True(t, alongside.Fixable)
	assert.Equal(t, "delete", alongside.FixAction)

	require.NotNil(t, unconverted)
	assert.Equal(t, SeverityCritical, unconverted.Severity)
	assert.False(t, unconverted.Fixable)
}

func TestCheckMetadataTags(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A/Book/Book.m4b", "x")

	fullTags := map[string]string{
		"artist":       "Brandon Sanderson",
		"album_artist": "Brandon Sanderson",
		"album":        "The Final Empire",
		"title":        "The Final Empire",
		"genre":        "Fantasy",
		"sort_album":   "Final Empire, The",
		"media_type":   "2",
		"composer":     "Michael Kramer",
		"date":         "2006",
		"comment":      "c",
		"description":  "d",
	}

	t.Run("complete tags produce no findings", func(t *testing.T) {
		a := New(root)
		a.ProbeTags = func(string) (map[string]string, error) { return fullTags, nil }
		assert.Empty(t, a.CheckMetadataTags())
	})

	t.Run("missing mandatory tag is critical", func(t *testing.T) {
		tags := map[string]string{}
		for k, v := range fullTags {
			tags[k] = v
		}
		delete(tags, "sort_album")
		a := New(root)
		a.ProbeTags = func(string) (map[string]string, error) { return tags, nil }
		findings := a.CheckMetadataTags()
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityCritical, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "sort_album")
	})

	t.Run("placeholder genre is a warning", func(t *testing.T) {
		tags := map[string]string{}
		for k, v := range fullTags {
			tags[k] = v
		}
		tags["genre"] = "Audiobook"
		a := New(root)
		a.ProbeTags = func(string) (map[string]string, error) { return tags, nil }
		findings := a.CheckMetadataTags()
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
	})

	t.Run("suspicious artist is critical", func(t *testing.T) {
		tags := map[string]string{}
		for k, v := range fullTags {
			tags[k] = v
		}
		tags["artist"] = "Unknown Artist"
		a := New(root)
		a.ProbeTags = func(string) (map[string]string, error) { return tags, nil }
		findings := a.CheckMetadataTags()
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityCritical, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "artist")
	})

	t.Run("probe failure is critical", func(t *testing.T) {
		a := New(root)
		a.ProbeTags = func(string) (map[string]string, error) { return nil, os.ErrInvalid }
		findings := a.CheckMetadataTags()
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityCritical, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "corrupt")
	})
}

func TestRunSelectsChecks(t *testing.T) {
	a := New(newTestLibrary(t))
	report := a.Run([]string{"structure"})

	assert.Equal(t, 6, report.TotalFiles)
	for _, f := range report.Findings {
		assert.Equal(t, "structure", f.Check)
	}
}

func TestApplyFixes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A/Book/Book.m4b", "m4b")
	writeFile(t, root, "A/Book/leftover.mp3", "mp3")

	findings := []Finding{
		{Check: "sources", Path: "A/Book/leftover.mp3", Fixable: true, FixAction: "delete"},
		{Check: "tags", Path: "A/Book/Book.m4b", Fixable: false},
		{Check: "sources", Path: "A/gone.mp3", Fixable: true, FixAction: "delete"},
	}

	t.Run("dry run leaves files alone", func(t *testing.T) {
		actions := ApplyFixes(root, findings, true)
		require.Len(t, actions, 1)
		assert.Contains(t, actions[0], "[DRY-RUN]")
		assert.FileExists(t, filepath.Join(root, "A/Book/leftover.mp3"))
	})

	t.Run("delete removes the file", func(t *testing.T) {
		actions := ApplyFixes(root, findings, false)
		require.Len(t, actions, 1)
		assert.Contains(t, actions[0], "Deleted")
		assert.NoFileExists(t, filepath.Join(root, "A/Book/leftover.mp3"))
	})
}

func TestCheckStaleServerEntries(t *testing.T) {
	t.Run("skipped without token", func(t *testing.T) {
		a := New(t.TempDir())
		findings := a.CheckStaleServerEntries()
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityInfo, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "skipped")
	})

	t.Run("flags items without artist", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/library/sections":
				w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"7","title":"AudioBooks"}]}}`))
			case "/library/sections/7/all":
				w.Write([]byte(`{"MediaContainer":{"Metadata":[
					{"title":"Orphan Book","Media":[{"Part":[{"file":"/lib/Orphan Book/x.m4b"}]}]},
					{"title":"Fine Book","grandparentTitle":"Some Author"}
				]}}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		a := New("/lib")
		a.MediaServerURL = srv.URL
		a.MediaServerToken = "token"
		findings := a.CheckStaleServerEntries()

		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "Orphan Book")
		assert.Equal(t, "Orphan Book/x.m4b", findings[0].Path)
		assert.True(t, findings[0].Fixable)
		assert.Equal(t, "touch", findings[0].FixAction)
	})
}
