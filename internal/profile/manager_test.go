package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/browsync/internal/model"
)

func newTestManager(t *testing.T) (*Manager, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	return NewManager(store), store
}

// failingStore loads fine but refuses every save.
type failingStore struct {
	cfg model.Config
}

func (s *failingStore) Load(ctx context.Context) (model.Config, error) {
	return s.cfg.Clone(), nil
}

func (s *failingStore) Save(ctx context.Context, cfg model.Config) error {
	return model.Wrap(model.KindStorageUnavailable, "save config", errors.New("read-only filesystem"))
}

func TestGetConfig_FirstRunIsEmpty(t *testing.T) {
	m, _ := newTestManager(t)

	cfg, err := m.GetConfig(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg.Browsers)
	assert.Empty(t, cfg.Browsers)
}

func TestSetConfig_GetConfig_Roundtrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	want := model.Config{Browsers: []model.Browser{
		{Name: "Google Chrome", LastSync: 1000},
		{Name: "Firefox", LastSync: 0},
		{Name: "Arc", LastSync: 1713283200000},
	}}
	require.NoError(t, m.SetConfig(ctx, want))

	got, err := m.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSetConfig_DuplicateNamesRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	prior := model.Config{Browsers: []model.Browser{{Name: "Firefox", LastSync: 5}}}
	require.NoError(t, m.SetConfig(ctx, prior))

	err := m.SetConfig(ctx, model.Config{Browsers: []model.Browser{
		{Name: "Arc"}, {Name: "Arc", LastSync: 3},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	assert.Contains(t, err.Error(), `"Arc"`)

	got, err := m.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, prior, got, "prior config must be unchanged")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.Config
		ok   bool
	}{
		{"empty", model.Config{}, true},
		{"unique", model.Config{Browsers: []model.Browser{{Name: "a"}, {Name: "b"}}}, true},
		{"blank name", model.Config{Browsers: []model.Browser{{Name: "  "}}}, false},
		{"duplicate", model.Config{Browsers: []model.Browser{{Name: "a"}, {Name: "a"}}}, false},
		{"negative cursor", model.Config{Browsers: []model.Browser{{Name: "a", LastSync: -1}}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrInvalidConfig)
			}
		})
	}
}

func TestGetConfig_CorruptFileIsStorageUnavailable(t *testing.T) {
	m, store := newTestManager(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	_, err := m.GetConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestGetConfig_DuplicateNamesOnDiskIsStorageUnavailable(t *testing.T) {
	m, store := newTestManager(t)
	data := `{"browsers":[{"name":"Arc","last_sync":0},{"name":"Arc","last_sync":5}]}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(data), 0644))

	_, err := m.GetConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, model.ErrInvalidConfig)
	assert.Contains(t, err.Error(), `duplicate browser name "Arc"`)

	_, err = m.CommitCursors(context.Background(), map[string]int64{"Arc": 100})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, data, string(raw))
}

func TestSetConfig_SaveFailureIsStorageUnavailable(t *testing.T) {
	m := NewManager(&failingStore{})

	err := m.SetConfig(context.Background(), model.Config{Browsers: []model.Browser{{Name: "Arc"}}})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestCommitCursors_Monotonic(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SetConfig(ctx, model.Config{Browsers: []model.Browser{
		{Name: "chrome", LastSync: 1000},
		{Name: "firefox", LastSync: 5000},
	}}))

	cfg, err := m.CommitCursors(ctx, map[string]int64{
		"chrome":  2000,
		"firefox": 4000, // older than the current cursor
		"safari":  9000, // not tracked
	})
	require.NoError(t, err)

	chrome, _ := cfg.Find("chrome")
	firefox, _ := cfg.Find("firefox")
	assert.Equal(t, int64(2000), chrome.LastSync)
	assert.Equal(t, int64(5000), firefox.LastSync)
	_, tracked := cfg.Find("safari")
	assert.False(t, tracked)

	persisted, err := m.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, persisted)
}

func TestSeed_AppendsOnlyNewNames(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SetConfig(ctx, model.Config{Browsers: []model.Browser{{Name: "Firefox", LastSync: 77}}}))

	cfg, added, err := m.Seed(ctx, []string{"Google Chrome", "Firefox", "Microsoft Edge"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"Firefox", "Google Chrome", "Microsoft Edge"}, cfg.Names())
	ff, _ := cfg.Find("Firefox")
	assert.Equal(t, int64(77), ff.LastSync)

	_, added, err = m.Seed(ctx, []string{"Google Chrome"})
	require.NoError(t, err)
	assert.Equal(t, 0, added, "seeding is idempotent")
}

func TestRemove(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.SetConfig(ctx, model.Config{Browsers: []model.Browser{{Name: "a"}, {Name: "b"}, {Name: "c"}}}))

	cfg, err := m.Remove(ctx, []string{"b", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, cfg.Names())
}

func TestUpdate_ErrorLeavesConfigUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.SetConfig(ctx, model.Config{Browsers: []model.Browser{{Name: "a"}}}))

	_, err := m.Update(ctx, func(cfg *model.Config) error {
		cfg.Browsers = append(cfg.Browsers, model.Browser{Name: "a"})
		return nil
	})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	got, err := m.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Names())
}

func TestCommitCursors_ConcurrentWritersSerialize(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var names []string
	var browsers []model.Browser
	for i := 0; i < 8; i++ {
		n := fmt.Sprintf("b%d", i)
		names = append(names, n)
		browsers = append(browsers, model.Browser{Name: n})
	}
	require.NoError(t, m.SetConfig(ctx, model.Config{Browsers: browsers}))

	var wg sync.WaitGroup
	for i, n := range names {
		wg.Add(1)
		go func(n string, end int64) {
			defer wg.Done()
			_, err := m.CommitCursors(ctx, map[string]int64{n: end})
			assert.NoError(t, err)
		}(n, int64(100*(i+1)))
	}
	wg.Wait()

	cfg, err := m.GetConfig(ctx)
	require.NoError(t, err)
	for i, n := range names {
		b, ok := cfg.Find(n)
		require.True(t, ok)
		assert.Equal(t, int64(100*(i+1)), b.LastSync, "cursor for %s lost to an interleaved write", n)
	}
}
