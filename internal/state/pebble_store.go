// file: internal/state/pebble_store.go
// version: 1.0.0
// guid: 72c4e8a1-0d5f-43b9-8a16-e9d27c53b084

package state

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore implements Store on PebbleDB.
//
// Key schema:
//   - book:<hash> -> BookRecord JSON (stages embedded)
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the database.
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

func bookKey(bookHash string) []byte {
	return []byte("book:" + bookHash)
}

func (p *PebbleStore) put(rec *BookRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := p.db.Set(bookKey(rec.BookHash), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Create inserts a fresh record for the book.
func (p *PebbleStore) Create(bookHash, sourcePath string, mode Mode) (*BookRecord, error) {
	rec := newRecord(bookHash, sourcePath, mode)
	if err := p.put(rec); err != nil {
		return nil, err
	}
	log.Printf("[INFO] state: created record %s mode=%s", bookHash, mode)
	return rec, nil
}

// Read returns the record or ErrNotFound.
func (p *PebbleStore) Read(bookHash string) (*BookRecord, error) {
	value, closer, err := p.db.Get(bookKey(bookHash))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	defer closer.Close()

	var rec BookRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// Update persists the full record.
func (p *PebbleStore) Update(rec *BookRecord) error {
	rec.UpdatedAt = utcNow()
	return p.put(rec)
}

// SetStage updates one stage's state.
func (p *PebbleStore) SetStage(bookHash string, stage Stage, st StageState) error {
	rec, err := p.Read(bookHash)
	if err != nil {
		return err
	}
	if rec.Stages == nil {
		rec.Stages = map[Stage]*StageState{}
	}
	copied := st
	rec.Stages[stage] = &copied
	return p.Update(rec)
}

// NextStage returns the first non-completed stage for the book's mode.
func (p *PebbleStore) NextStage(bookHash string) (Stage, bool, error) {
	rec, err := p.Read(bookHash)
	if err != nil {
		return "", false, err
	}
	stage, ok := nextStage(rec)
	return stage, ok, nil
}

// List returns records matching status ("" for all), in key order.
func (p *PebbleStore) List(status string) ([]*BookRecord, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("book:"),
		UpperBound: []byte("book;"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var records []*BookRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec BookRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			log.Printf("[WARN] state: skipping corrupt record at %s: %v", iter.Key(), err)
			continue
		}
		if status == "" || rec.Status == status {
			records = append(records, &rec)
		}
	}
	return records, nil
}

// IncrementRetry bumps the retry counter.
func (p *PebbleStore) IncrementRetry(bookHash string) (int, error) {
	rec, err := p.Read(bookHash)
	if err != nil {
		return 0, err
	}
	rec.RetryCount++
	if err := p.Update(rec); err != nil {
		return 0, err
	}
	return rec.RetryCount, nil
}

// SetError records a stage failure.
func (p *PebbleStore) SetError(bookHash string, stage Stage, category, message string) error {
	rec, err := p.Read(bookHash)
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
	return p.Update(rec)
}
