package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportStore keeps rendered report files on local disk under a single root.
// Relative paths are confined to that root even when they contain traversal
// segments, since they round-trip through download tokens.
type ExportStore struct {
	root string
}

// NewExportStore creates the root directory if needed and returns a handle.
func NewExportStore(root string) (*ExportStore, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create export root: %w", err)
	}
	return &ExportStore{root: root}, nil
}

// Save writes data at relPath under the root and returns the stored path.
func (s *ExportStore) Save(relPath string, data []byte) (string, error) {
	path := s.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return relPath, nil
}

// Open returns a read-only handle for a stored export.
func (s *ExportStore) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored export; a missing file is not an error.
func (s *ExportStore) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// Sweep deletes exports older than ttl and reports their relative paths.
func (s *ExportStore) Sweep(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	swept := make([]string, 0)
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		swept = append(swept, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep exports: %w", err)
	}
	return swept, nil
}

// resolve joins relPath onto the root after collapsing any ".." segments,
// so no stored path can escape the export root.
func (s *ExportStore) resolve(relPath string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(relPath, "/"))
	return filepath.Join(s.root, clean)
}
