// file: internal/scanner/scanner.go
// version: 2.0.0
// guid: 8a1c5e93-4f72-4d06-b8e5-d027a6b93c18

// Package scanner discovers source book units under one or more source
// roots. A book unit is either a loose audio file or the first
// directory in a subtree containing audio (children are pruned, so a
// CD1/CD2 layout is one book).
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// AudioExtensions are the formats the pipeline accepts as input.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".wma":  true,
}

// Unit is one source book: a directory of parts or a single file.
type Unit struct {
	// Path is the book root (directory or file).
	Path string
	// IsDir reports whether Path is a directory of audio parts.
	IsDir bool
	// Hash is the 16-hex idempotency key for the unit.
	Hash string
	// AudioFiles are the unit's audio files, sorted.
	AudioFiles []string
}

// Scanner discovers book units under source roots.
type Scanner struct {
	// Progress draws a terminal progress bar during the hash pass.
	Progress bool
}

// Discover walks each root and returns book units, sorted by path.
// Loose audio files directly under a root are single-file units; the
// first directory with audio in each subtree is a directory unit.
func (s *Scanner) Discover(roots ...string) ([]Unit, error) {
	var units []Unit

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source root: %w", err)
		}
		if !info.IsDir() {
			if isAudio(root) {
				units = append(units, Unit{Path: root})
			}
			continue
		}

		dirs, loose, err := findBookDirs(root)
		if err != nil {
			return nil, err
		}
		for _, f := range loose {
			units = append(units, Unit{Path: f})
		}
		for _, d := range dirs {
			units = append(units, Unit{Path: d, IsDir: true})
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })

	var bar *progressbar.ProgressBar
	if s.Progress {
		bar = progressbar.Default(int64(len(units)), "hashing")
	}
	for i := range units {
		if err := fillUnit(&units[i]); err != nil {
			return nil, err
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	log.Printf("[INFO] scanner: discovered %d book units", len(units))
	return units, nil
}

// findBookDirs returns book directories under root plus loose audio
// files sitting directly in root. Subtrees are pruned at the first
// directory containing audio.
func findBookDirs(root string) (dirs, loose []string, err error) {
	cleanRoot := filepath.Clean(root)
	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			if filepath.Dir(path) == cleanRoot && isAudio(path) {
				loose = append(loose, path)
			}
			return nil
		}
		if path == cleanRoot {
			return nil
		}
		has, hasErr := dirHasAudio(path)
		if hasErr != nil {
			return nil
		}
		if has {
			dirs = append(dirs, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(dirs)
	sort.Strings(loose)
	return dirs, loose, nil
}

func dirHasAudio(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && isAudio(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// fillUnit computes the unit's audio file list and hash.
func fillUnit(u *Unit) error {
	if u.IsDir {
		files, err := audioFilesUnder(u.Path)
		if err != nil {
			return err
		}
		u.AudioFiles = files
	} else {
		u.AudioFiles = []string{u.Path}
	}

	hash, err := BookHash(u.Path)
	if err != nil {
		return err
	}
	u.Hash = hash
	return nil
}

// BookHash generates a 16-hex idempotency key for a source path. Files
// hash path plus size; directories hash path plus the sorted audio file
// list, so adding or removing a part changes the key but re-running on
// unchanged input does not.
func BookHash(sourcePath string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", sourcePath, err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\n", sourcePath)
	if info.IsDir() {
		files, err := audioFilesUnder(sourcePath)
		if err != nil {
			return "", err
		}
		for _, f := range files {
			fmt.Fprintf(h, "%s\n", f)
		}
	} else {
		fmt.Fprintf(h, "%d\n", info.Size())
	}

	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

func audioFilesUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() && isAudio(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isAudio(path string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(path))]
}
