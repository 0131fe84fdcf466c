package profile

import (
	"context"
	"strings"
	"sync"

	"github.com/runnerr0/browsync/internal/model"
)

// Manager is the only writer of the tracked-browser config. Writes are
// serialized so read-modify-write cycles never interleave.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager returns a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GetConfig returns the current tracked-browser list.
func (m *Manager) GetConfig(ctx context.Context) (model.Config, error) {
	return m.store.Load(ctx)
}

// SetConfig validates cfg and replaces the persisted config with it. On
// validation failure the prior config is left untouched.
func (m *Manager) SetConfig(ctx context.Context, cfg model.Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Save(ctx, cfg.Clone())
}

// Update applies fn to the current config under the writer lock and
// persists the result if fn returns nil and the result validates.
func (m *Manager) Update(ctx context.Context, fn func(cfg *model.Config) error) (model.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.store.Load(ctx)
	if err != nil {
		return model.Config{}, err
	}
	next := cfg.Clone()
	if err := fn(&next); err != nil {
		return model.Config{}, err
	}
	if err := Validate(next); err != nil {
		return model.Config{}, err
	}
	if err := m.store.Save(ctx, next); err != nil {
		return model.Config{}, err
	}
	return next, nil
}

// CommitCursors advances last_sync for each named browser to
// max(previous, end). Names no longer tracked are ignored.
func (m *Manager) CommitCursors(ctx context.Context, cursors map[string]int64) (model.Config, error) {
	return m.Update(ctx, func(cfg *model.Config) error {
		for i := range cfg.Browsers {
			end, ok := cursors[cfg.Browsers[i].Name]
			if ok && end > cfg.Browsers[i].LastSync {
				cfg.Browsers[i].LastSync = end
			}
		}
		return nil
	})
}

// Seed appends every name not yet tracked with last_sync 0. Existing
// entries keep their cursor and position. It reports how many were added.
func (m *Manager) Seed(ctx context.Context, names []string) (model.Config, int, error) {
	added := 0
	cfg, err := m.Update(ctx, func(cfg *model.Config) error {
		for _, name := range names {
			if _, ok := cfg.Find(name); ok {
				continue
			}
			cfg.Browsers = append(cfg.Browsers, model.Browser{Name: name})
			added++
		}
		return nil
	})
	return cfg, added, err
}

// Remove stops tracking the given names. Unknown names are ignored.
func (m *Manager) Remove(ctx context.Context, names []string) (model.Config, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	return m.Update(ctx, func(cfg *model.Config) error {
		kept := cfg.Browsers[:0]
		for _, b := range cfg.Browsers {
			if !drop[b.Name] {
				kept = append(kept, b)
			}
		}
		cfg.Browsers = kept
		return nil
	})
}

// Validate checks that every entry has a non-blank, unique name and a
// non-negative cursor.
func Validate(cfg model.Config) error {
	seen := make(map[string]bool, len(cfg.Browsers))
	for i, b := range cfg.Browsers {
		if strings.TrimSpace(b.Name) == "" {
			return model.Errorf(model.KindInvalidConfig, "validate config", "browser %d has an empty name", i)
		}
		if seen[b.Name] {
			return model.Errorf(model.KindInvalidConfig, "validate config", "duplicate browser name %q", b.Name)
		}
		if b.LastSync < 0 {
			return model.Errorf(model.KindInvalidConfig, "validate config", "browser %q has negative last_sync %d", b.Name, b.LastSync)
		}
		seen[b.Name] = true
	}
	return nil
}
