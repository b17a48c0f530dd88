package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"recsync/internal/recsync"
)

// FileSystemStore keeps the snapshot as a single file on local disk.
type FileSystemStore struct {
	path string
}

// NewFileSystemStore creates a store for the file at path, creating its
// parent directory if needed.
func NewFileSystemStore(path string) (*FileSystemStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSystemStore{path: path}, nil
}

// Get reads the snapshot file.
func (s *FileSystemStore) Get(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", recsync.ErrSnapshotNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// Put replaces the snapshot file using an atomic write (temp file + rename),
// so a failed write leaves the previous snapshot in place.
func (s *FileSystemStore) Put(_ context.Context, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (s *FileSystemStore) Location() string {
	return "file://" + s.path
}

var _ recsync.SnapshotStore = (*FileSystemStore)(nil)
