package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	e "github.com/gartstein/quotation/internal/quotation/errors"
)

// FileStore keeps generated artifacts in a single flat directory. Names are
// plain file names; anything that would resolve outside the directory is
// rejected.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create document dir %s: %v", e.ErrConfiguration, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes data under name, replacing any previous artifact atomically.
func (s *FileStore) Save(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: store %s: %v", e.ErrRender, name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: store %s: %v", e.ErrRender, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: store %s: %v", e.ErrRender, name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: store %s: %v", e.ErrRender, name, err)
	}
	return nil
}

// Open returns the stored artifact. The caller closes it.
func (s *FileStore) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %s", e.ErrNotFound, name)
	}
	return f, err
}

// Remove deletes the artifact. A missing file is not an error.
func (s *FileStore) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid document name %q", e.ErrValidation, name)
	}
	return filepath.Join(s.dir, name), nil
}
