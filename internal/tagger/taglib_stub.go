// file: internal/tagger/taglib_stub.go
// version: 1.0.0
// guid: 7c8d9e0f-1a2b-3c4d-5e6f-7a8b9c0d1e2f

//go:build !taglib

package tagger

var nativeAvailable = false

func writeNative(filePath string, fields map[string][]string) error {
	return ErrNotSupported
}
