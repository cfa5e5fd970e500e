package kv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

var _ Store = (*Files)(nil)

// Files is a Store that keeps one JSON file per key inside a data directory.
// It is the default driver for single-process local runs. Writes go through a
// temp file and rename so a crash never leaves a half-written blob behind.
type Files struct {
	dir string
	mu  sync.Mutex
}

// NewFiles creates the data directory if needed and returns a file-backed store.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &Files{dir: dir}, nil
}

func (f *Files) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %q", key)
	}
	return data, nil
}

func (f *Files) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".blob-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	name := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return errors.Wrapf(err, "write %q", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return errors.Wrapf(err, "close temp for %q", key)
	}
	if err := os.Rename(name, f.path(key)); err != nil {
		_ = os.Remove(name)
		return errors.Wrapf(err, "rename temp for %q", key)
	}
	return nil
}

func (f *Files) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

func (f *Files) Ping(_ context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *Files) Close() error { return nil }

// path maps a key to a file name, replacing characters that are unsafe in
// file names. Keys are fixed constants in this codebase, so collisions are
// not a concern.
func (f *Files) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(f.dir, safe+".json")
}
