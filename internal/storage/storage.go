// Package storage keeps uploaded media on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Media stores files under a root directory and names them by public URL.
type Media struct {
	validator *PathValidator
	urlPrefix string
}

// NewMedia creates root if needed. urlPrefix is the path the root is served under.
func NewMedia(root string, urlPrefix string) (*Media, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}

	return &Media{validator: validator, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (m *Media) Root() string {
	return m.validator.RootAbs()
}

// URL returns the public URL of relPath.
func (m *Media) URL(relPath string) string {
	return path.Join(m.urlPrefix, path.Clean("/"+strings.ReplaceAll(relPath, `\`, "/")))
}

// Save writes relPath through write and returns its public URL. Readers never see a
// partially written file.
func (m *Media) Save(relPath string, write func(io.Writer) error) (string, error) {
	target, err := m.validator.ResolvePath(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writeErr := write(tmp)
	closeErr := tmp.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move media file: %w", err)
	}

	return m.URL(relPath), nil
}

// Remove deletes relPath; a missing file is not an error.
func (m *Media) Remove(relPath string) error {
	target, err := m.validator.ResolvePath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}
