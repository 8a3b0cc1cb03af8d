// Package storage keeps uploaded attachment files.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidName is returned for a client file name with no usable base name.
var ErrInvalidName = errors.New("invalid file name")

// LocalStorage writes files under a base directory on the local disk.
type LocalStorage struct {
	BasePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{BasePath: basePath}, nil
}

// Save copies r into the base directory and returns the stored path. The
// client file name is reduced to its base name and prefixed with a timestamp
// so two uploads of "report.pdf" do not overwrite each other.
func (s *LocalStorage) Save(r io.Reader, filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("%w %q", ErrInvalidName, filename)
	}
	path := filepath.Join(s.BasePath, fmt.Sprintf("%d_%s", time.Now().UnixNano(), name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// Remove deletes a file returned by Save. A file that is already gone is not an error.
func (s *LocalStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
