// file: internal/organizer/reflink_windows.go
// version: 2.0.0
// guid: 7c6d5e4f-3a2b-1c0d-9e8f-7a6b5c4d3e2f

//go:build windows

package organizer

import "fmt"

// reflinkFilePlatform always fails on Windows, which has no FICLONE
// equivalent. The auto strategy falls back to hardlink, then copy.
func (o *Organizer) reflinkFilePlatform(sourcePath, targetPath string) error {
	return fmt.Errorf("reflink not supported on windows")
}
