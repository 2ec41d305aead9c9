// file: internal/state/state_test.go
// version: 1.0.0
// guid: c52a7e19-8d43-4f60-b1ae-26f90d84c375

package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	t.Run("create and read", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create("abc123", "/in/book", ModeOrganize)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, created.Status)
		assert.Equal(t, 3, created.MaxRetries)

		rec, err := s.Read("abc123")
		require.NoError(t, err)
		assert.Equal(t, "/in/book", rec.SourcePath)
		assert.Equal(t, ModeOrganize, rec.Mode)
		require.Len(t, rec.Stages, len(AllStages))

		// Organize mode pre-completes validate/concat/convert.
		assert.Equal(t, StatusCompleted, rec.Stages[StageValidate].Status)
		assert.Equal(t, StatusCompleted, rec.Stages[StageConvert].Status)
		assert.Equal(t, "/in/book", rec.Stages[StageConvert].OutputFile)
		assert.Equal(t, StatusPending, rec.Stages[StageASIN].Status)
	})

	t.Run("read missing", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Read("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("next stage progression", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Create("abc123", "/in/book", ModeOrganize)
		require.NoError(t, err)

		stage, ok, err := s.NextStage("abc123")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StageASIN, stage)

		require.NoError(t, s.SetStage("abc123", StageASIN, StageState{
			Status:      StatusCompleted,
			CompletedAt: "2026-08-30T00:00:00Z",
		}))

		stage, ok, err = s.NextStage("abc123")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StageMetadata, stage)

		for _, st := range []Stage{StageMetadata, StageOrganize} {
			require.NoError(t, s.SetStage("abc123", st, StageState{Status: StatusCompleted}))
		}

		_, ok, err = s.NextStage("abc123")
		require.NoError(t, err)
		assert.False(t, ok, "all organize-mode stages completed")
	})

	t.Run("update round-trips parsed metadata", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		rec, err := s.Create("abc123", "/in/book", ModeEnrich)
		require.NoError(t, err)

		rec.Parsed = ParsedMetadata{
			Author:   "Brandon Sanderson",
			Title:    "The Final Empire",
			Series:   "Mistborn",
			Position: "1",
			ASIN:     "B001",
			Narrator: "Michael Kramer",
			Year:     "2006",
		}
		rec.CoverURL = "https://img/b001.jpg"
		rec.Status = StatusRunning
		require.NoError(t, s.Update(rec))

		got, err := s.Read("abc123")
		require.NoError(t, err)
		assert.Equal(t, rec.Parsed, got.Parsed)
		assert.Equal(t, "https://img/b001.jpg", got.CoverURL)
		assert.Equal(t, StatusRunning, got.Status)
	})

	t.Run("list filters by status", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Create("aaa", "/in/a", ModeConvert)
		require.NoError(t, err)
		rec, err := s.Create("bbb", "/in/b", ModeConvert)
		require.NoError(t, err)
		rec.Status = StatusCompleted
		require.NoError(t, s.Update(rec))

		all, err := s.List("")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		pending, err := s.List(StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "aaa", pending[0].BookHash)
	})

	t.Run("increment retry", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Create("abc123", "/in/book", ModeConvert)
		require.NoError(t, err)

		n, err := s.IncrementRetry("abc123")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = s.IncrementRetry("abc123")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("set error marks book and stage failed", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Create("abc123", "/in/book", ModeConvert)
		require.NoError(t, err)
		require.NoError(t, s.SetError("abc123", StageConvert, "transient", "ffmpeg exited 1"))

		rec, err := s.Read("abc123")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, rec.Status)
		assert.Equal(t, "convert", rec.ErrorStage)
		assert.Equal(t, "transient", rec.ErrorCategory)
		assert.Equal(t, "ffmpeg exited 1", rec.ErrorMessage)
		assert.Equal(t, StatusFailed, rec.Stages[StageConvert].Status)
	})
}

func TestPebbleStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewPebbleStore(filepath.Join(t.TempDir(), "state"))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
		require.NoError(t, err)
		return s
	})
}

func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestNextStageUnknownModeFallsBack(t *testing.T) {
	rec := newRecord("x", "/in/x", Mode("mystery"))
	stage, ok := nextStage(rec)
	assert.True(t, ok)
	assert.Equal(t, StageValidate, stage)
}
