package browser

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/browsync/internal/model"
)

// newLinuxReader builds a Reader over a fake linux home directory.
func newLinuxReader(t *testing.T, opts ...Option) (*Reader, string) {
	t.Helper()
	home := t.TempDir()
	loc := NewLocator(home, "linux", nil)
	return NewReader(loc, filepath.Join(t.TempDir(), "temp"), opts...), home
}

func chromePath(home, profile string) string {
	return filepath.Join(home, ".config", "google-chrome", profile, "History")
}

func firefoxPath(home, profile string) string {
	return filepath.Join(home, ".mozilla", "firefox", profile, "places.sqlite")
}

func TestReadBrowser_ChromiumWindowInclusive(t *testing.T) {
	r, home := newLinuxReader(t)
	writeChromiumDB(t, chromePath(home, "Default"), []visit{
		{"Before", "https://a.example/before", 999},
		{"Start", "https://a.example/start", 1000},
		{"Middle", "https://a.example/mid", 1500},
		{"End", "https://a.example/end", 2000},
		{"After", "https://a.example/after", 2001},
	})

	got, err := r.ReadBrowser(context.Background(), "Google Chrome", 1000, 2000)
	require.NoError(t, err)
	SortHistory(got)

	require.Len(t, got, 3)
	assert.Equal(t, model.History{Title: "Start", URL: "https://a.example/start", LastVisited: 1000}, got[0])
	assert.Equal(t, int64(1500), got[1].LastVisited)
	assert.Equal(t, int64(2000), got[2].LastVisited)
}

func TestReadBrowser_ChromiumRealisticTimestamps(t *testing.T) {
	r, home := newLinuxReader(t)
	const visited = int64(1713283200000) // 2024-04-16T16:00:00Z
	writeChromiumDB(t, chromePath(home, "Default"), []visit{{"Go", "https://go.dev", visited}})

	got, err := r.ReadBrowser(context.Background(), "Google Chrome", visited-1000, visited+1000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, visited, got[0].LastVisited)
}

func TestReadBrowser_FirefoxEveryVisit(t *testing.T) {
	r, home := newLinuxReader(t)
	writeFirefoxDB(t, firefoxPath(home, "abc.default-release"), []visit{
		{"Docs", "https://docs.example", 100},
		{"Docs", "https://docs.example", 200},
		{"", "https://untitled.example", 300},
		{"Late", "https://late.example", 5000},
	})

	got, err := r.ReadBrowser(context.Background(), "Firefox", 0, 1000)
	require.NoError(t, err)
	SortHistory(got)

	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].LastVisited)
	assert.Equal(t, int64(200), got[1].LastVisited)
	assert.Equal(t, "", got[2].Title, "NULL titles become empty strings")
}

func TestReadBrowser_MergesProfiles(t *testing.T) {
	r, home := newLinuxReader(t)
	writeChromiumDB(t, chromePath(home, "Default"), []visit{{"One", "https://one.example", 10}})
	writeChromiumDB(t, chromePath(home, "Profile 1"), []visit{{"Two", "https://two.example", 20}})

	got, err := r.ReadBrowser(context.Background(), "Google Chrome", 0, 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadBrowser_NoDatabaseIsUnavailable(t *testing.T) {
	r, _ := newLinuxReader(t)

	_, err := r.ReadBrowser(context.Background(), "Firefox", 0, 100)
	assert.ErrorIs(t, err, model.ErrBrowserUnavailable)
}

func TestReadBrowser_WrongSchemaIsUnavailable(t *testing.T) {
	r, home := newLinuxReader(t)
	writeJunkDB(t, chromePath(home, "Default"))

	_, err := r.ReadBrowser(context.Background(), "Google Chrome", 0, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrBrowserUnavailable)
	assert.Contains(t, err.Error(), "urls")
}

func TestReadBrowser_UnknownName(t *testing.T) {
	r, _ := newLinuxReader(t)

	_, err := r.ReadBrowser(context.Background(), "Netscape", 0, 100)
	assert.ErrorIs(t, err, model.ErrUnknownBrowser)
	assert.False(t, r.Known("Netscape"))
	assert.True(t, r.Known("Firefox"))
}

func TestReadBrowser_DoesNotTouchSource(t *testing.T) {
	r, home := newLinuxReader(t)
	path := chromePath(home, "Default")
	writeChromiumDB(t, path, []visit{{"A", "https://a.example", 1}})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = r.ReadBrowser(context.Background(), "Google Chrome", 0, 10)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	leftovers, err := filepath.Glob(filepath.Join(r.tempDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp copies are removed after reading")
}

func TestReadBrowser_ReplaysWriteAheadLog(t *testing.T) {
	r, home := newLinuxReader(t)
	path := chromePath(home, "Default")
	writeChromiumDB(t, path, []visit{{"Checkpointed", "https://a.example/old", 100}})

	// A live browser keeps recent rows in the -wal file until it checkpoints.
	live, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	require.NoError(t, err)
	live.SetMaxOpenConns(1)
	t.Cleanup(func() { live.Close() })
	_, err = live.Exec("PRAGMA wal_autocheckpoint=0")
	require.NoError(t, err)
	_, err = live.Exec(
		"INSERT INTO urls (url, title, visit_count, last_visit_time) VALUES (?, ?, 1, ?)",
		"https://a.example/new", "InWAL", (200+chromiumEpochOffsetMillis)*1000,
	)
	require.NoError(t, err)

	walInfo, err := os.Stat(path + "-wal")
	require.NoError(t, err)
	require.Positive(t, walInfo.Size())

	got, err := r.ReadBrowser(context.Background(), "Google Chrome", 0, 1000)
	require.NoError(t, err)
	SortHistory(got)
	require.Len(t, got, 2)
	assert.Equal(t, "Checkpointed", got[0].Title)
	assert.Equal(t, "InWAL", got[1].Title)
	assert.Equal(t, int64(200), got[1].LastVisited)
}

func TestReadBrowser_CancelledContext(t *testing.T) {
	r, home := newLinuxReader(t)
	writeChromiumDB(t, chromePath(home, "Default"), []visit{{"A", "https://a.example", 1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadBrowser(ctx, "Google Chrome", 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadBrowser_Denylist(t *testing.T) {
	r, home := newLinuxReader(t, WithDenylist([]string{"Bank.example", " "}))
	writeChromiumDB(t, chromePath(home, "Default"), []visit{
		{"Bank", "https://bank.example/login", 1},
		{"Sub", "https://www.bank.example/home", 2},
		{"Lookalike", "https://notbank.example", 3},
	})

	got, err := r.ReadBrowser(context.Background(), "Google Chrome", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://notbank.example", got[0].URL)
}

func TestReadHistory_OneFailureIsDiagnostic(t *testing.T) {
	r, home := newLinuxReader(t)
	writeChromiumDB(t, chromePath(home, "Default"), []visit{{"C", "https://c.example", 50}})
	writeFirefoxDB(t, firefoxPath(home, "p"), []visit{{"F", "https://f.example", 40}})
	// Edge is known but has no database on disk.

	res, err := r.ReadHistory(context.Background(), []string{"Google Chrome", "Firefox", "Microsoft Edge"}, 0, 100)
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, "https://f.example", res.Entries[0].URL)
	assert.Equal(t, "https://c.example", res.Entries[1].URL)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "Microsoft Edge", res.Diagnostics[0].Browser)
	assert.Equal(t, model.KindBrowserUnavailable, res.Diagnostics[0].Kind)
}

func TestReadHistory_UnknownOnlyWhenAllUnknown(t *testing.T) {
	r, home := newLinuxReader(t)
	writeFirefoxDB(t, firefoxPath(home, "p"), []visit{{"F", "https://f.example", 40}})

	res, err := r.ReadHistory(context.Background(), []string{"Netscape", "Firefox"}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, model.KindUnknownBrowser, res.Diagnostics[0].Kind)

	_, err = r.ReadHistory(context.Background(), []string{"Netscape", "Mosaic"}, 0, 100)
	assert.ErrorIs(t, err, model.ErrUnknownBrowser)
}

func TestReadHistory_InvertedWindow(t *testing.T) {
	r, _ := newLinuxReader(t)
	_, err := r.ReadHistory(context.Background(), []string{"Firefox"}, 10, 5)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestCleanTemp(t *testing.T) {
	r, _ := newLinuxReader(t)
	require.NoError(t, os.MkdirAll(r.tempDir, 0755))
	stale := filepath.Join(r.tempDir, "history-123.sqlite")
	keep := filepath.Join(r.tempDir, "notes.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	require.NoError(t, r.CleanTemp())

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}
