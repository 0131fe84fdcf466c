// Package profile persists the tracked-browser config and mediates every
// read and write of it.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/runnerr0/browsync/internal/model"
)

// Store loads and saves the tracked-browser config.
type Store interface {
	Load(ctx context.Context) (model.Config, error)
	Save(ctx context.Context, cfg model.Config) error
}

// FileStore keeps the config as a JSON document on disk. Saves replace the
// file atomically via a temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the config. A missing file yields an empty config. A file that
// decodes but breaks the config invariants is reported as unreadable.
func (s *FileStore) Load(ctx context.Context) (model.Config, error) {
	if err := ctx.Err(); err != nil {
		return model.Config{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Config{Browsers: []model.Browser{}}, nil
	}
	if err != nil {
		return model.Config{}, model.Wrap(model.KindStorageUnavailable, "load config", err)
	}

	var cfg model.Config
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return model.Config{}, model.Wrap(model.KindStorageUnavailable, "load config",
				fmt.Errorf("decode %s: %w", s.path, err))
		}
	}
	if cfg.Browsers == nil {
		cfg.Browsers = []model.Browser{}
	}
	if err := Validate(cfg); err != nil {
		return model.Config{}, model.Wrap(model.KindStorageUnavailable, "load config",
			fmt.Errorf("%s: %v", s.path, err))
	}
	return cfg, nil
}

// Save writes cfg to a temp file in the same directory, syncs it, and
// renames it over the old file.
func (s *FileStore) Save(ctx context.Context, cfg model.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Browsers == nil {
		cfg.Browsers = []model.Browser{}
	}

	if err := s.writeAtomic(cfg); err != nil {
		return model.Wrap(model.KindStorageUnavailable, "save config", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(cfg model.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
