// file: internal/state/state.go
// version: 1.0.0
// guid: 1d6f3a82-9c50-4e7b-b2d4-37a8f10c65e9

// Package state persists per-book pipeline progress keyed by book hash,
// with Pebble and SQLite backends behind one Store interface.
package state

import (
	"errors"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when no record exists for a book hash.
var ErrNotFound = errors.New("state: record not found")

// Mode is the pipeline operation mode.
type Mode string

const (
	ModeConvert  Mode = "convert"
	ModeEnrich   Mode = "enrich"
	ModeMetadata Mode = "metadata"
	ModeOrganize Mode = "organize"
)

// Stage is an individual pipeline stage.
type Stage string

const (
	StageValidate Stage = "validate"
	StageConcat   Stage = "concat"
	StageConvert  Stage = "convert"
	StageASIN     Stage = "asin"
	StageMetadata Stage = "metadata"
	StageOrganize Stage = "organize"
	StageArchive  Stage = "archive"
	StageCleanup  Stage = "cleanup"
)

// AllStages in canonical execution order.
var AllStages = []Stage{
	StageValidate, StageConcat, StageConvert, StageASIN,
	StageMetadata, StageOrganize, StageArchive, StageCleanup,
}

// Status values for books and stages.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StageOrder maps each mode to the stages it runs.
var StageOrder = map[Mode][]Stage{
	ModeConvert:  AllStages,
	ModeEnrich:   {StageASIN, StageMetadata, StageOrganize, StageCleanup},
	ModeMetadata: {StageASIN, StageMetadata, StageCleanup},
	ModeOrganize: {StageASIN, StageMetadata, StageOrganize},
}

// preCompleted are stages marked done at creation for non-convert modes
// (their input is an already-converted file).
var preCompleted = map[Mode][]Stage{
	ModeEnrich:   {StageValidate, StageConcat, StageConvert},
	ModeMetadata: {StageValidate, StageConcat, StageConvert},
	ModeOrganize: {StageValidate, StageConcat, StageConvert},
}

// StageState is the progress of one stage for one book.
type StageState struct {
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at,omitempty"`
	OutputFile  string `json:"output_file,omitempty"`
	DestDir     string `json:"dest_dir,omitempty"`
}

// ParsedMetadata is the resolved metadata carried on a book record.
type ParsedMetadata struct {
	Author      string `json:"author,omitempty"`
	Title       string `json:"title,omitempty"`
	Series      string `json:"series,omitempty"`
	Position    string `json:"position,omitempty"`
	ASIN        string `json:"asin,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
	Year        string `json:"year,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Copyright   string `json:"copyright,omitempty"`
	Language    string `json:"language,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// BookRecord is the persistent state of one book in the pipeline.
type BookRecord struct {
	BookHash   string `json:"book_hash"`
	SourcePath string `json:"source_path"`
	Mode       Mode   `json:"mode"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`

	ErrorTimestamp string `json:"error_timestamp,omitempty"`
	ErrorStage     string `json:"error_stage,omitempty"`
	ErrorCategory  string `json:"error_category,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`

	Parsed   ParsedMetadata        `json:"parsed"`
	CoverURL string                `json:"cover_url,omitempty"`
	Stages   map[Stage]*StageState `json:"stages"`
}

// Store is the pipeline state backend.
type Store interface {
	// Create inserts a fresh record with stage rows for all stages;
	// pre-completed stages for the mode are marked completed.
	Create(bookHash, sourcePath string, mode Mode) (*BookRecord, error)
	// Read returns the record or ErrNotFound.
	Read(bookHash string) (*BookRecord, error)
	// Update persists the full record (UpdatedAt is refreshed).
	Update(rec *BookRecord) error
	// SetStage updates one stage's state.
	SetStage(bookHash string, stage Stage, st StageState) error
	// NextStage returns the first non-completed stage for the book's
	// mode; ok=false when all stages are done.
	NextStage(bookHash string) (Stage, bool, error)
	// List returns records matching status ("" for all).
	List(status string) ([]*BookRecord, error)
	// IncrementRetry bumps the retry counter and returns the new value.
	IncrementRetry(bookHash string) (int, error)
	// SetError records a stage failure on the book.
	SetError(bookHash string, stage Stage, category, message string) error
	Close() error
}

// NewRunID returns a sortable unique ID for one pipeline run.
func NewRunID() string {
	return ulid.Make().String()
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// newRecord builds the in-memory shape shared by both backends.
func newRecord(bookHash, sourcePath string, mode Mode) *BookRecord {
	now := utcNow()
	rec := &BookRecord{
		BookHash:   bookHash,
		SourcePath: sourcePath,
		Mode:       mode,
		Status:     StatusPending,
		MaxRetries: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
		Stages:     make(map[Stage]*StageState, len(AllStages)),
	}
	pre := map[Stage]bool{}
	for _, s := range preCompleted[mode] {
		pre[s] = true
	}
	for _, s := range AllStages {
		st := &StageState{Status: StatusPending}
		if pre[s] {
			st.Status = StatusCompleted
			st.CompletedAt = now
			if s == StageConvert {
				st.OutputFile = sourcePath
			}
		}
		rec.Stages[s] = st
	}
	return rec
}

// nextStage picks the first pending or failed stage in the mode's order.
func nextStage(rec *BookRecord) (Stage, bool) {
	order, ok := StageOrder[rec.Mode]
	if !ok {
		order = AllStages
	}
	for _, s := range order {
		st := rec.Stages[s]
		if st == nil || st.Status != StatusCompleted {
			return s, true
		}
	}
	return "", false
}
