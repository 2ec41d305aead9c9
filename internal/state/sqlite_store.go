// file: internal/state/sqlite_store.go
// version: 1.0.0
// guid: 94f1b6d0-3e28-4c57-a9b3-5d80c2e76f41

package state

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS books (
    book_hash        TEXT PRIMARY KEY,
    source_path      TEXT NOT NULL,
    mode             TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    retry_count      INTEGER NOT NULL DEFAULT 0,
    max_retries      INTEGER NOT NULL DEFAULT 3,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    error_timestamp  TEXT,
    error_stage      TEXT,
    error_category   TEXT,
    error_message    TEXT,
    parsed_author    TEXT,
    parsed_title     TEXT,
    parsed_series    TEXT,
    parsed_position  TEXT,
    parsed_asin      TEXT,
    parsed_narrator  TEXT,
    parsed_year      TEXT,
    parsed_subtitle  TEXT,
    parsed_description TEXT,
    parsed_publisher TEXT,
    parsed_copyright TEXT,
    parsed_language  TEXT,
    parsed_genre     TEXT,
    cover_url        TEXT
);

CREATE TABLE IF NOT EXISTS stages (
    book_hash    TEXT NOT NULL,
    stage        TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    completed_at TEXT,
    output_file  TEXT,
    dest_dir     TEXT,
    PRIMARY KEY (book_hash, stage),
    FOREIGN KEY (book_hash) REFERENCES books(book_hash) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
`

// SQLiteStore implements Store on a WAL-mode SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a fresh record with one row per stage.
func (s *SQLiteStore) Create(bookHash, sourcePath string, mode Mode) (*BookRecord, error) {
	rec := newRecord(bookHash, sourcePath, mode)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO books
		 (book_hash, source_path, mode, status, retry_count, max_retries, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		rec.BookHash, rec.SourcePath, string(rec.Mode), rec.Status,
		rec.MaxRetries, rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}

	for _, stage := range AllStages {
		st := rec.Stages[stage]
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO stages (book_hash, stage, status, completed_at, output_file, dest_dir)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.BookHash, string(stage), st.Status,
			nullable(st.CompletedAt), nullable(st.OutputFile), nullable(st.DestDir),
		); err != nil {
			return nil, fmt.Errorf("failed to insert stage %s: %w", stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	log.Printf("[INFO] state: created record %s mode=%s", bookHash, mode)
	return rec, nil
}

// Read returns the record or ErrNotFound.
func (s *SQLiteStore) Read(bookHash string) (*BookRecord, error) {
	rec := &BookRecord{Stages: map[Stage]*StageState{}}
	var errTS, errStage, errCat, errMsg sql.NullString
	var coverURL sql.NullString
	parsed := make([]sql.NullString, 13)

	row := s.db.QueryRow(
		`SELECT book_hash, source_path, mode, status, retry_count, max_retries,
		        created_at, updated_at, error_timestamp, error_stage,
		        error_category, error_message,
		        parsed_author, parsed_title, parsed_series, parsed_position,
		        parsed_asin, parsed_narrator, parsed_year, parsed_subtitle,
		        parsed_description, parsed_publisher, parsed_copyright,
		        parsed_language, parsed_genre, cover_url
		 FROM books WHERE book_hash = ?`, bookHash)

	var mode string
	err := row.Scan(
		&rec.BookHash, &rec.SourcePath, &mode, &rec.Status,
		&rec.RetryCount, &rec.MaxRetries, &rec.CreatedAt, &rec.UpdatedAt,
		&errTS, &errStage, &errCat, &errMsg,
		&parsed[0], &parsed[1], &parsed[2], &parsed[3], &parsed[4],
		&parsed[5], &parsed[6], &parsed[7], &parsed[8], &parsed[9],
		&parsed[10], &parsed[11], &parsed[12], &coverURL,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read book: %w", err)
	}

	rec.Mode = Mode(mode)
	rec.ErrorTimestamp = errTS.String
	rec.ErrorStage = errStage.String
	rec.ErrorCategory = errCat.String
	rec.ErrorMessage = errMsg.String
	rec.Parsed = ParsedMetadata{
		Author: parsed[0].String, Title: parsed[1].String,
		Series: parsed[2].String, Position: parsed[3].String,
		ASIN: parsed[4].String, Narrator: parsed[5].String,
		Year: parsed[6].String, Subtitle: parsed[7].String,
		Description: parsed[8].String, Publisher: parsed[9].String,
		Copyright: parsed[10].String, Language: parsed[11].String,
		Genre: parsed[12].String,
	}
	rec.CoverURL = coverURL.String

	rows, err := s.db.Query(
		`SELECT stage, status, completed_at, output_file, dest_dir
		 FROM stages WHERE book_hash = ?`, bookHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read stages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stage, status string
		var completedAt, outputFile, destDir sql.NullString
		if err := rows.Scan(&stage, &status, &completedAt, &outputFile, &destDir); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		rec.Stages[Stage(stage)] = &StageState{
			Status:      status,
			CompletedAt: completedAt.String,
			OutputFile:  outputFile.String,
			DestDir:     destDir.String,
		}
	}
	return rec, rows.Err()
}

// Update persists the full record.
func (s *SQLiteStore) Update(rec *BookRecord) error {
	rec.UpdatedAt = utcNow()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE books SET source_path=?, mode=?, status=?, retry_count=?, max_retries=?,
		        updated_at=?, error_timestamp=?, error_stage=?, error_category=?, error_message=?,
		        parsed_author=?, parsed_title=?, parsed_series=?, parsed_position=?,
		        parsed_asin=?, parsed_narrator=?, parsed_year=?, parsed_subtitle=?,
		        parsed_description=?, parsed_publisher=?, parsed_copyright=?,
		        parsed_language=?, parsed_genre=?, cover_url=?
		 WHERE book_hash=?`,
		rec.SourcePath, string(rec.Mode), rec.Status, rec.RetryCount, rec.MaxRetries,
		rec.UpdatedAt, nullable(rec.ErrorTimestamp), nullable(rec.ErrorStage),
		nullable(rec.ErrorCategory), nullable(rec.ErrorMessage),
		nullable(rec.Parsed.Author), nullable(rec.Parsed.Title),
		nullable(rec.Parsed.Series), nullable(rec.Parsed.Position),
		nullable(rec.Parsed.ASIN), nullable(rec.Parsed.Narrator),
		nullable(rec.Parsed.Year), nullable(rec.Parsed.Subtitle),
		nullable(rec.Parsed.Description), nullable(rec.Parsed.Publisher),
		nullable(rec.Parsed.Copyright), nullable(rec.Parsed.Language),
		nullable(rec.Parsed.Genre), nullable(rec.CoverURL),
		rec.BookHash,
	); err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	for stage, st := range rec.Stages {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO stages (book_hash, stage, status, completed_at, output_file, dest_dir)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.BookHash, string(stage), st.Status,
			nullable(st.CompletedAt), nullable(st.OutputFile), nullable(st.DestDir),
		); err != nil {
			return fmt.Errorf("failed to update stage %s: %w", stage, err)
		}
	}

	return tx.Commit()
}

// SetStage updates one stage row.
func (s *SQLiteStore) SetStage(bookHash string, stage Stage, st StageState) error {
	if _, err := s.Read(bookHash); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO stages (book_hash, stage, status, completed_at, output_file, dest_dir)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		bookHash, string(stage), st.Status,
		nullable(st.CompletedAt), nullable(st.OutputFile), nullable(st.DestDir),
	)
	if err != nil {
		return fmt.Errorf("failed to set stage %s: %w", stage, err)
	}
	_, err = s.db.Exec(`UPDATE books SET updated_at=? WHERE book_hash=?`, utcNow(), bookHash)
	return err
}

// NextStage returns the first non-completed stage for the book's mode.
func (s *SQLiteStore) NextStage(bookHash string) (Stage, bool, error) {
	rec, err := s.Read(bookHash)
	if err != nil {
		return "", false, err
	}
	stage, ok := nextStage(rec)
	return stage, ok, nil
}

// List returns records matching status ("" for all).
func (s *SQLiteStore) List(status string) ([]*BookRecord, error) {
	query := `SELECT book_hash FROM books ORDER BY book_hash`
	args := []interface{}{}
	if status != "" {
		query = `SELECT book_hash FROM books WHERE status = ? ORDER BY book_hash`
		args = append(args, status)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var records []*BookRecord
	for _, h := range hashes {
		rec, err := s.Read(h)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// IncrementRetry bumps the retry counter.
func (s *SQLiteStore) IncrementRetry(bookHash string) (int, error) {
	if _, err := s.db.Exec(
		`UPDATE books SET retry_count = retry_count + 1, updated_at = ? WHERE book_hash = ?`,
		utcNow(), bookHash,
	); err != nil {
		return 0, fmt.Errorf("failed to increment retry: %w", err)
	}
	var count int
	err := s.db.QueryRow(`SELECT retry_count FROM books WHERE book_hash = ?`, bookHash).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return count, err
}

// SetError records a stage failure.
func (s *SQLiteStore) SetError(bookHash string, stage Stage, category, message string) error {
	rec, err := s.Read(bookHash)
	if err != nil {
		return err
	}
	rec.Status = StatusFailed
	rec.ErrorTimestamp = utcNow()
	rec.ErrorStage = string(stage)
	rec.ErrorCategory = category
	rec.ErrorMessage = message
	if st := rec.Stages[stage]; st != nil {
		st.Status = StatusFailed
	}
	return s.Update(rec)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
