// Package imagestore provides storage backends for generated image bytes.
package imagestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore persists image bytes under a base directory on the local
// filesystem and returns the file path as the location reference.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed and returns a store over it.
func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("image store base directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", baseDir, err)
	}

	return &FSStore{baseDir: baseDir}, nil
}

// SaveImage writes the bytes to a file named name under the base directory.
// The write goes through a temp file and rename so a crash mid-write never
// leaves a partial image at the final location.
func (s *FSStore) SaveImage(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.baseDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize image file: %w", err)
	}

	return finalPath, nil
}
