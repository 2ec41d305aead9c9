// file: internal/tagger/taglib_write.go
// version: 1.0.0
// guid: 8d9e0f1a-2b3c-4d5e-6f7a-8b9c0d1e2f3a

//go:build taglib

package tagger

import (
	"fmt"
	"os"
	"path/filepath"

	taglib "go.senan.xyz/taglib"
)

var nativeAvailable = true

// writeNative writes fields with TagLib. The original file is backed up
// first and restored if the write fails.
func writeNative(filePath string, fields map[string][]string) error {
	backupPath := filePath + ".backup"
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read for backup failed: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	defer os.Remove(backupPath)

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	if err := taglib.WriteTags(abs, fields, 0); err != nil {
		if restoreErr := os.WriteFile(filePath, data, 0644); restoreErr != nil {
			return fmt.Errorf("tag write failed and restore failed: write=%w restore=%v", err, restoreErr)
		}
		return fmt.Errorf("tag write failed (restored): %w", err)
	}
	return nil
}
