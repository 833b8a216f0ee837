package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// FileStore keeps a ladder in a single CBOR file. Saves write a temporary
// sibling and rename it over the target, so readers never see a torn file.
type FileStore struct {
	base
	path string
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string, ladder model.Ladder, opts ...Option) *FileStore {
	return &FileStore{base: newBase("file", ladder, opts), path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the roster from disk. A missing file is an empty roster.
func (s *FileStore) Load(ctx context.Context) (roster model.Roster, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", start, len(roster), err) }()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(model.Roster), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}
	if len(data) == 0 {
		return make(model.Roster), nil
	}
	roster, err = unmarshalRoster(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}
	return roster, nil
}

// Save atomically replaces the file with roster.
func (s *FileStore) Save(ctx context.Context, roster model.Roster) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save", start, len(roster), err) }()

	data, err := marshalRoster(roster)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrSave, err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSave, s.path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
