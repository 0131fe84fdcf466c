package browser

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

type visit struct {
	title string
	url   string
	ms    int64 // epoch millis
}

// writeChromiumDB creates a minimal Chromium History database at path.
func writeChromiumDB(t *testing.T, path string, visits []visit) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url LONGVARCHAR,
		title LONGVARCHAR,
		visit_count INTEGER DEFAULT 0 NOT NULL,
		last_visit_time INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	for _, v := range visits {
		micros := (v.ms + chromiumEpochOffsetMillis) * 1000
		_, err := db.Exec(
			"INSERT INTO urls (url, title, visit_count, last_visit_time) VALUES (?, ?, 1, ?)",
			v.url, v.title, micros,
		)
		require.NoError(t, err)
	}
}

// writeFirefoxDB creates a minimal places.sqlite at path. Each visit gets
// its own row in moz_historyvisits; places are shared by URL.
func writeFirefoxDB(t *testing.T, path string, visits []visit) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE moz_places (id INTEGER PRIMARY KEY, url LONGVARCHAR, title LONGVARCHAR)`,
		`CREATE TABLE moz_historyvisits (id INTEGER PRIMARY KEY, place_id INTEGER, visit_date INTEGER)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	places := map[string]int64{}
	for _, v := range visits {
		id, ok := places[v.url]
		if !ok {
			var title any = v.title
			if v.title == "" {
				title = nil
			}
			res, err := db.Exec("INSERT INTO moz_places (url, title) VALUES (?, ?)", v.url, title)
			require.NoError(t, err)
			id, err = res.LastInsertId()
			require.NoError(t, err)
			places[v.url] = id
		}
		_, err := db.Exec("INSERT INTO moz_historyvisits (place_id, visit_date) VALUES (?, ?)", id, v.ms*1000)
		require.NoError(t, err)
	}
}

// writeJunkDB creates a sqlite database without any history tables.
func writeJunkDB(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE other (x INTEGER)")
	require.NoError(t, err)
}
