package cli

import (
	"bytes"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/browsync/internal/browser"
	"github.com/runnerr0/browsync/internal/config"
	"github.com/runnerr0/browsync/internal/logging"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestApp wires an app whose data dir and fake home live under
// t.TempDir(). It returns the app and the fake home directory.
func newTestApp(t *testing.T) (*app, string) {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	require.NoError(t, os.MkdirAll(home, 0755))

	settings := config.DefaultSettings()
	settings.Storage.Path = filepath.Join(root, "data")

	a, err := newApp(settings, browser.NewLocator(home, "linux", nil), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, home
}

type visit struct {
	title string
	url   string
	at    time.Time
}

// chromiumOffsetMillis is 1601-01-01 to 1970-01-01 in milliseconds.
const chromiumOffsetMillis = 11644473600000

// writeChromeProfile creates a Google Chrome "Default" profile History
// database under home.
func writeChromeProfile(t *testing.T, home string, visits []visit) string {
	t.Helper()
	path := filepath.Join(home, ".config", "google-chrome", "Default", "History")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url LONGVARCHAR,
		title LONGVARCHAR,
		last_visit_time INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	for _, v := range visits {
		micros := (v.at.UnixMilli() + chromiumOffsetMillis) * 1000
		_, err := db.Exec("INSERT INTO urls (url, title, last_visit_time) VALUES (?, ?, ?)", v.url, v.title, micros)
		require.NoError(t, err)
	}
	return path
}

func ptr(v int64) *int64 { return &v }
