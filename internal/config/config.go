package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default settings file path.
const DefaultSettingsPath = "~/.config/browsync/settings.yaml"

// Settings holds all browsync configuration. The tracked-browser list is not
// part of it; that lives in the profile store's JSON file.
type Settings struct {
	Storage  StorageConfig  `yaml:"storage"`
	Sync     SyncConfig     `yaml:"sync"`
	Browsers BrowsersConfig `yaml:"browsers"`
	Filter   FilterConfig   `yaml:"filter"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	ConfigFile        string `yaml:"config_file"`
	JournalFile       string `yaml:"journal_file"`
	TempDir           string `yaml:"temp_dir"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type SyncConfig struct {
	Parallelism          int `yaml:"parallelism"`
	ScanTimeoutSeconds   int `yaml:"scan_timeout_seconds"`
	JournalRetentionDays int `yaml:"journal_retention_days"`
}

// BrowserLocation adds a history database pattern for a browser name.
// Family selects the schema reader ("chromium" or "firefox").
type BrowserLocation struct {
	Name    string `yaml:"name"`
	Family  string `yaml:"family"`
	Pattern string `yaml:"pattern"`
}

type BrowsersConfig struct {
	ExtraLocations []BrowserLocation `yaml:"extra_locations"`
}

type FilterConfig struct {
	DenylistDomains    []string `yaml:"denylist_domains"`
	UseDefaultDenylist bool     `yaml:"use_default_denylist"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ScanTimeout returns the per-browser scan timeout. Zero disables it.
func (s *Settings) ScanTimeout() time.Duration {
	if s.Sync.ScanTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.Sync.ScanTimeoutSeconds) * time.Second
}

// Denylist returns the effective domain denylist.
func (s *Settings) Denylist() []string {
	out := append([]string{}, s.Filter.DenylistDomains...)
	if s.Filter.UseDefaultDenylist {
		out = append(out, DefaultDenylistDomains()...)
	}
	return out
}

// DataDir returns the expanded storage directory.
func (s *Settings) DataDir() (string, error) {
	return expandPath(s.Storage.Path)
}

// ConfigPath returns the absolute path of the tracked-browser config file.
func (s *Settings) ConfigPath() (string, error) {
	return s.dataFile(s.Storage.ConfigFile)
}

// JournalPath returns the absolute path of the scan journal database.
func (s *Settings) JournalPath() (string, error) {
	return s.dataFile(s.Storage.JournalFile)
}

// TempPath returns the directory used for history database copies.
func (s *Settings) TempPath() (string, error) {
	return s.dataFile(s.Storage.TempDir)
}

func (s *Settings) dataFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := s.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Load reads a YAML settings file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	if cfg.Sync.Parallelism < 1 {
		cfg.Sync.Parallelism = 1
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// ExpandPath is expandPath for callers outside the package.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// LoadOrCreate loads settings from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Settings, error) {
	path, err := expandPath(DefaultSettingsPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads settings from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultSettings()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating settings directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default settings: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default settings: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
