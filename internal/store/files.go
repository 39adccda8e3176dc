package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Files is the flat-file backend: one JSON file per collection document
// under a data directory, matching the layout the dashboard has always
// used. A sidecar flock guards each file against a concurrent process.
type Files struct {
	dir string
}

func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Files{dir: dir}, nil
}

func (s *Files) Get(ctx context.Context, key string) ([]byte, error) {
	lock := flock.New(s.lockPath(key))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s for read: %w", key, err)
	}
	defer lock.Unlock()

	body, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

func (s *Files) Put(ctx context.Context, key string, body []byte) error {
	lock := flock.New(s.lockPath(key))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s for write: %w", key, err)
	}
	defer lock.Unlock()

	path := filepath.Join(s.dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (s *Files) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("data dir unavailable: %w", err)
	}
	return nil
}

func (s *Files) lockPath(key string) string {
	return filepath.Join(s.dir, key+".lock")
}
