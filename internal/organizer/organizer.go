// file: internal/organizer/organizer.go
// version: 2.0.0
// guid: 5e6f7a8b-9c0d-1e2f-3a4b-5c6d7e8f9a0b

package organizer

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Placement strategies. Auto tries reflink, then hardlink, then copy.
const (
	StrategyCopy     = "copy"
	StrategyMove     = "move"
	StrategyHardlink = "hardlink"
	StrategySymlink  = "symlink"
	StrategyReflink  = "reflink"
	StrategyAuto     = "auto"
)

// Organizer places resolved audiobook files into the library tree.
type Organizer struct {
	LibraryRoot string
	Strategy    string
	DryRun      bool
}

// New creates an organizer. An empty strategy defaults to copy.
func New(libraryRoot, strategy string, dryRun bool) *Organizer {
	if strategy == "" {
		strategy = StrategyCopy
	}
	return &Organizer{LibraryRoot: libraryRoot, Strategy: strategy, DryRun: dryRun}
}

// Place puts sourceFile into destDir under destFilename (source basename
// when empty) using the configured strategy. Returns the destination file
// path. An existing destination of identical size is a completed earlier
// run and is skipped.
func (o *Organizer) Place(sourceFile, destDir, destFilename string) (string, error) {
	if destFilename == "" {
		destFilename = filepath.Base(sourceFile)
	}
	destFile := filepath.Join(destDir, destFilename)

	if o.DryRun {
		return destFile, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination dir: %w", err)
	}

	if sameSizeExists(sourceFile, destFile) {
		log.Printf("[DEBUG] organizer: skip (same size): %s", destFilename)
		return destFile, nil
	}

	strategy := o.Strategy
	if strategy == StrategyAuto {
		if err := o.reflinkFile(sourceFile, destFile); err == nil {
			return destFile, nil
		}
		if err := o.hardlinkFile(sourceFile, destFile); err == nil {
			return destFile, nil
		}
		strategy = StrategyCopy
	}

	switch strategy {
	case StrategyCopy:
		return destFile, o.copyFile(sourceFile, destFile)
	case StrategyMove:
		return destFile, o.moveFile(sourceFile, destFile)
	case StrategyHardlink:
		return destFile, o.hardlinkFile(sourceFile, destFile)
	case StrategySymlink:
		return destFile, o.symlinkFile(sourceFile, destFile)
	case StrategyReflink:
		return destFile, o.reflinkFile(sourceFile, destFile)
	default:
		return "", fmt.Errorf("unknown organization strategy: %s", o.Strategy)
	}
}

// Move relocates a file within the library (reorganize mode) and prunes
// empty directories left behind, stopping at the library root.
func (o *Organizer) Move(sourceFile, destDir, destFilename string) (string, error) {
	if destFilename == "" {
		destFilename = filepath.Base(sourceFile)
	}
	destFile := filepath.Join(destDir, destFilename)

	if o.DryRun {
		return destFile, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination dir: %w", err)
	}

	if sameSizeExists(sourceFile, destFile) {
		log.Printf("[DEBUG] organizer: skip move (same size): %s", destFilename)
		return destFile, nil
	}

	log.Printf("[INFO] organizer: move %s -> %s", sourceFile, destFile)
	if err := o.moveFile(sourceFile, destFile); err != nil {
		return "", err
	}

	CleanupEmptyParents(filepath.Dir(sourceFile), o.LibraryRoot)
	return destFile, nil
}

// CleanupEmptyParents removes empty directories walking up from dir until
// stopAt, the filesystem root, or a non-empty directory.
func CleanupEmptyParents(dir, stopAt string) {
	current := filepath.Clean(dir)
	stopAt = filepath.Clean(stopAt)
	for current != stopAt {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		entries, err := os.ReadDir(current)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(current); err != nil {
			break
		}
		log.Printf("[DEBUG] organizer: removed empty dir %s", current)
		current = parent
	}
}

func sameSizeExists(sourceFile, destFile string) bool {
	destInfo, err := os.Stat(destFile)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(sourceFile)
	if err != nil {
		return false
	}
	return destInfo.Size() == srcInfo.Size()
}

// copyFile copies a file from src to dst
func (o *Organizer) copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync destination file: %w", err)
	}

	return nil
}

// moveFile renames when possible, falling back to copy-and-delete across
// filesystems.
func (o *Organizer) moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := o.copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

// hardlinkFile creates a hard link from src to dst
func (o *Organizer) hardlinkFile(src, dst string) error {
	return os.Link(src, dst)
}

// symlinkFile creates a symbolic link from src to dst
func (o *Organizer) symlinkFile(src, dst string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	return os.Symlink(absSrc, dst)
}

// reflinkFile creates a copy-on-write reflink (platform-specific)
func (o *Organizer) reflinkFile(src, dst string) error {
	return o.reflinkFilePlatform(src, dst)
}
