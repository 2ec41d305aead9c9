// file: internal/audit/verify_test.go
// version: 1.0.0
// guid: 0f5a8d21-3e7c-49b6-a1f4-c62b90e85d37

package audit

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifyLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Brandon Sanderson/Mistborn/The Final Empire/book.m4b", "x")
	writeFile(t, root, "Brandon Sanderson/The Final Empire!/book.m4b", "x")
	writeFile(t, root, "B. Sanderson/Elantris/book.m4b", "x")
	writeFile(t, root, "_unsorted/Unknown Book/file.mp3", "x")
	return root
}

func TestVerify(t *testing.T) {
	report, err := Verify(newVerifyLibrary(t))
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalAuthors)
	assert.Equal(t, 3, report.TotalBooks)
	assert.Equal(t, 3, report.Issues())

	require.Len(t, report.AuthorVariations, 1)
	v := report.AuthorVariations[0]
	assert.Equal(t, "sanderson", v.Surname)
	assert.Equal(t, []string{"B. Sanderson", "Brandon Sanderson"}, v.Variants)

	require.Len(t, report.Unsorted, 1)
	assert.Equal(t, filepath.Join("_unsorted", "Unknown Book"), report.Unsorted[0])

	require.Len(t, report.DuplicateTitles, 1)
	d := report.DuplicateTitles[0]
	assert.Equal(t, "Brandon Sanderson", d.Author)
	assert.Equal(t, "the final empire", d.Title)
	assert.Len(t, d.Paths, 2)
}

func TestVerifyMissingRoot(t *testing.T) {
	report, err := Verify(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, report.TotalAuthors)
	assert.Zero(t, report.Issues())
}

func TestVerifyDryRunLog(t *testing.T) {
	logText := `[INFO] organize: processing batch
[DRY-RUN] Would copy book.m4b
       -> /lib/John Smith/AAA
[DRY-RUN] Would copy other.m4b
       -> /lib/John Smith/AAA
[DRY-RUN] Would move third.m4b
       -> /lib/_unsorted/Mystery Book
[DRY-RUN] Would copy fourth.m4b
       -> /lib/Jane Doe/BBB
`
	logPath := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(logPath, []byte(logText), 0o644))

	report, err := VerifyDryRunLog(logPath)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalAuthors)
	assert.Equal(t, 4, report.TotalBooks)
	assert.Len(t, report.Unsorted, 1)

	require.Len(t, report.DuplicateTitles, 1)
	assert.Equal(t, "John Smith", report.DuplicateTitles[0].Author)
	assert.Equal(t, "aaa", report.DuplicateTitles[0].Title)
	assert.Equal(t, 2, report.DuplicateTitles[0].Count)
}

func TestVerifyDryRunLogNoDestinations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "empty.log")
	require.NoError(t, os.WriteFile(logPath, []byte("nothing here\n"), 0o644))

	_, err := VerifyDryRunLog(logPath)
	assert.Error(t, err)
}

func TestVerifyReportOutput(t *testing.T) {
	report, err := Verify(newVerifyLibrary(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	report.WriteReport(&buf)
	out := buf.String()

	assert.Contains(t, out, "Data Quality Report")
	assert.Contains(t, out, `Surname "sanderson" has 2 spellings`)
	assert.Contains(t, out, "Books in _unsorted (1)")
	assert.Contains(t, out, "Brandon Sanderson: the final empire")
}

func TestVerifyReportClean(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Ann Leckie/Ancillary Justice/book.m4b", "x")

	report, err := Verify(root)
	require.NoError(t, err)

	var buf bytes.Buffer
	report.WriteReport(&buf)
	assert.Contains(t, buf.String(), "No data quality issues found.")
}
