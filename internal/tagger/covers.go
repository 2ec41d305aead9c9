// file: internal/tagger/covers.go
// version: 1.0.0
// guid: e4f5a6b7-8c9d-0e1f-2a3b-4c5d6e7f8a9b

package tagger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxCoverSize = 10 << 20 // 10MB

var coverClient = &http.Client{Timeout: 30 * time.Second}

// DownloadCover fetches a cover image into destDir and returns the local
// path. The extension comes from the response content type, defaulting
// to .jpg.
func DownloadCover(ctx context.Context, url, destDir string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty cover URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := coverClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cover download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cover download failed: status %d", resp.StatusCode)
	}

	ext := ".jpg"
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "png") {
		ext = ".png"
	}

	destPath := filepath.Join(destDir, "cover"+ext)
	out, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxCoverSize)); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("cover write failed: %w", err)
	}
	return destPath, nil
}
