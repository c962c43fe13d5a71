// Package staging owns the scratch directory diagram payloads pass through
// before they are handed to the attachment store, which only accepts files.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

var (
	// ErrExtensionRequired is returned when a staged name carries no extension.
	ErrExtensionRequired = errors.New("staging: file name must have an extension")
	// ErrInvalidName is returned for names that would escape the scratch directory.
	ErrInvalidName = errors.New("staging: invalid file name")
)

// Store writes payloads below a single scratch directory.
type Store struct {
	dir    string
	logger interfaces.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger overrides the no-op logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a store rooted at dir. Nothing touches the filesystem
// until Reset or Write is called.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    filepath.Clean(dir),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Dir returns the scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// Reset removes the scratch directory with everything in it and recreates it
// empty. It is meant to run once at process start.
func (s *Store) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("staging: clear %s: %w", s.dir, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("staging: create %s: %w", s.dir, err)
	}
	s.logger.Debug("staging.reset", "dir", s.dir)
	return nil
}

// Write stores data as name inside the scratch directory and returns the
// absolute path. The file is written to a temp sibling first and renamed into
// place so a reader never sees a partial payload.
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("staging: create %s: %w", s.dir, err)
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("staging: create temp for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("staging: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("staging: close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("staging: move %s: %w", name, err)
	}

	s.logger.Trace("staging.write", "path", target, "bytes", len(data))
	return target, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("staging: remove %s: %w", path, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return fmt.Errorf("%w: %q", ErrExtensionRequired, name)
	}
	return nil
}
