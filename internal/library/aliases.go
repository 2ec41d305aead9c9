// file: internal/library/aliases.go
// version: 1.0.0
// guid: 3a8d5c2f-7e1b-49a4-b6d0-9f4e2c7a8d15

package library

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// AliasFilename is the alias sidecar kept in the library root.
const AliasFilename = ".author_aliases.json"

// AliasStore maps author-name variants to the canonical folder name. It
// persists as a JSON sidecar in the library root, keyed by canonical name
// with a list of known variants, and grows across runs.
type AliasStore struct {
	path      string
	canonical map[string]string   // variant -> canonical
	variants  map[string][]string // canonical -> variants
	dirty     bool
}

// LoadAliases reads the alias sidecar from the library root. A missing or
// unreadable file yields an empty store; this is not an error.
func LoadAliases(libraryRoot string) *AliasStore {
	s := &AliasStore{
		path:      filepath.Join(libraryRoot, AliasFilename),
		canonical: make(map[string]string),
		variants:  make(map[string][]string),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("[WARN] aliases: ignoring malformed %s: %v", s.path, err)
		return s
	}

	for canonical, variants := range raw {
		for _, v := range variants {
			s.canonical[v] = canonical
			s.variants[canonical] = append(s.variants[canonical], v)
		}
	}
	log.Printf("[DEBUG] aliases: loaded %d variants", len(s.canonical))
	return s
}

// Canonical returns the canonical name for a variant, if known.
func (s *AliasStore) Canonical(variant string) (string, bool) {
	c, ok := s.canonical[variant]
	return c, ok
}

// Add records variant as an alias of canonical. Self-aliases and repeats
// are ignored.
func (s *AliasStore) Add(variant, canonical string) {
	if variant == "" || canonical == "" || variant == canonical {
		return
	}
	if existing, ok := s.canonical[variant]; ok && existing == canonical {
		return
	}
	s.canonical[variant] = canonical
	s.variants[canonical] = append(s.variants[canonical], variant)
	s.dirty = true
}

// Len returns the number of known variants.
func (s *AliasStore) Len() int {
	return len(s.canonical)
}

// Save writes the store back to the sidecar when anything changed.
// Variant lists are sorted so the file diffs cleanly under version control.
func (s *AliasStore) Save() error {
	if !s.dirty {
		return nil
	}

	out := make(map[string][]string, len(s.variants))
	for canonical, variants := range s.variants {
		sorted := append([]string(nil), variants...)
		sort.Strings(sorted)
		out[canonical] = sorted
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write aliases: %w", err)
	}
	s.dirty = false
	log.Printf("[DEBUG] aliases: saved %d variants to %s", len(s.canonical), s.path)
	return nil
}
