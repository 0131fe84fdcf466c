package browser

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/runnerr0/browsync/internal/model"
)

// StorageReader reads one family's history schema from an open database.
type StorageReader interface {
	Family() Family
	// Check reports whether db has the tables this reader needs.
	Check(ctx context.Context, db *sql.DB) error
	// Read returns entries visited in [start, end] epoch millis, inclusive.
	Read(ctx context.Context, db *sql.DB, start, end int64) ([]model.History, error)
}

// Chromium stores last_visit_time as microseconds since 1601-01-01 UTC.
const chromiumEpochOffsetMillis int64 = 11644473600000

// ChromiumReader reads the `urls` table used by Chrome, Edge, Arc, Brave
// and other Chromium derivatives. One entry per URL, stamped with its last
// visit.
type ChromiumReader struct{}

func (ChromiumReader) Family() Family { return FamilyChromium }

func (ChromiumReader) Check(ctx context.Context, db *sql.DB) error {
	return requireTables(ctx, db, "urls")
}

func (ChromiumReader) Read(ctx context.Context, db *sql.DB, start, end int64) ([]model.History, error) {
	lo := millisToMicros(saturatingAdd(start, chromiumEpochOffsetMillis))
	hi := millisToMicrosCeil(saturatingAdd(end, chromiumEpochOffsetMillis))

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(title, ''), url, last_visit_time
		FROM urls
		WHERE last_visit_time > 0 AND last_visit_time >= ? AND last_visit_time <= ?
	`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	var out []model.History
	for rows.Next() {
		var h model.History
		var micros int64
		if err := rows.Scan(&h.Title, &h.URL, &micros); err != nil {
			return nil, fmt.Errorf("scan urls row: %w", err)
		}
		h.LastVisited = floorDiv(micros, 1000) - chromiumEpochOffsetMillis
		out = append(out, h)
	}
	return out, rows.Err()
}

// FirefoxReader reads places.sqlite. Every visit in the window becomes an
// entry, matching what moz_historyvisits records.
type FirefoxReader struct{}

func (FirefoxReader) Family() Family { return FamilyFirefox }

func (FirefoxReader) Check(ctx context.Context, db *sql.DB) error {
	return requireTables(ctx, db, "moz_places", "moz_historyvisits")
}

func (FirefoxReader) Read(ctx context.Context, db *sql.DB, start, end int64) ([]model.History, error) {
	lo := millisToMicros(start)
	hi := millisToMicrosCeil(end)

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(p.title, ''), p.url, h.visit_date
		FROM moz_historyvisits h
		JOIN moz_places p ON p.id = h.place_id
		WHERE h.visit_date >= ? AND h.visit_date <= ?
	`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query moz_historyvisits: %w", err)
	}
	defer rows.Close()

	var out []model.History
	for rows.Next() {
		var h model.History
		var micros int64
		if err := rows.Scan(&h.Title, &h.URL, &micros); err != nil {
			return nil, fmt.Errorf("scan moz_historyvisits row: %w", err)
		}
		h.LastVisited = floorDiv(micros, 1000)
		out = append(out, h)
	}
	return out, rows.Err()
}

// requireTables fails unless every named table exists in db.
func requireTables(ctx context.Context, db *sql.DB, tables ...string) error {
	for _, t := range tables {
		var n int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", t,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("missing table %q", t)
		}
	}
	return nil
}

// millisToMicros converts the lower bound of a millisecond window.
func millisToMicros(ms int64) int64 {
	if ms > math.MaxInt64/1000 {
		return math.MaxInt64
	}
	if ms < math.MinInt64/1000 {
		return math.MinInt64
	}
	return ms * 1000
}

// millisToMicrosCeil converts the upper bound so every microsecond inside
// the final millisecond is included.
func millisToMicrosCeil(ms int64) int64 {
	us := millisToMicros(ms)
	if us > math.MaxInt64-999 {
		return math.MaxInt64
	}
	if us == math.MinInt64 {
		return us
	}
	return us + 999
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
