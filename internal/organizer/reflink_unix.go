// file: internal/organizer/reflink_unix.go
// version: 2.0.0
// guid: 6f7a8b9c-0d1e-2f3a-4b5c-6d7e8f9a0b1c

//go:build darwin || linux

package organizer

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Clone request codes: FICLONE on Linux (btrfs, XFS) and the APFS
// equivalent on macOS.
const (
	ficloneRequest   = 0x40049409
	apfsCloneRequest = 0xC0084A6D
)

// reflinkFilePlatform places a copy-on-write clone of sourcePath at
// targetPath. Filesystems without clone support get an error and the
// auto strategy falls back to hardlink, then copy.
func (o *Organizer) reflinkFilePlatform(sourcePath, targetPath string) error {
	srcFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	srcFd := int(srcFile.Fd())
	dstFd := dstFile.Fd()

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, dstFd, ficloneRequest, uintptr(srcFd))
	if errno == 0 {
		return nil
	}
	_, _, errno = syscall.Syscall(syscall.SYS_IOCTL, dstFd, apfsCloneRequest, uintptr(unsafe.Pointer(&srcFd)))
	if errno == 0 {
		return nil
	}

	// Drop the empty destination so a hardlink fallback is not blocked
	// by an existing file.
	os.Remove(targetPath)
	return fmt.Errorf("reflink not supported on this filesystem (errno: %v)", errno)
}
