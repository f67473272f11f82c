package fallback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileSlot stores one file per key under a directory. Writes go through a
// temp file that is synced and renamed into place, so readers see either the
// old payload or the new one.
type FileSlot struct {
	dir string
}

// NewFileSlot creates dir if needed and returns a slot rooted there.
func NewFileSlot(dir string) (*FileSlot, error) {
	if dir == "" {
		return nil, errors.New("fallback dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating fallback dir: %w", err)
	}
	return &FileSlot{dir: dir}, nil
}

// Dir returns the slot directory.
func (s *FileSlot) Dir() string { return s.dir }

func (s *FileSlot) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid slot key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileSlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileSlot) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return WriteFileAtomic(p, value)
}

func (s *FileSlot) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}

func (s *FileSlot) Close() error { return nil }

// WriteFileAtomic writes data to path using the temp-file, fsync, rename
// pattern. The temp file is created next to path so the rename stays on one
// filesystem.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail("writing temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
